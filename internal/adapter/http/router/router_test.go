package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/winisorts/classifier-api/internal/domain/service"
	"github.com/winisorts/classifier-api/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedModel struct {
	logits []float32
}

func (m fixedModel) Logits(context.Context, *service.Encoding) ([]float32, error) {
	return m.logits, nil
}

func (m fixedModel) OutputWidth() int { return len(m.logits) }

type fixedTokenizer struct{}

func (fixedTokenizer) Encode(string) (*service.Encoding, error) {
	return &service.Encoding{InputIDs: []int64{1}, AttentionMask: []int64{1}, TypeIDs: []int64{0}}, nil
}

func (fixedTokenizer) MaxLength() int { return 1 }

func testDeps(t *testing.T) Deps {
	t.Helper()
	block := func(name string, labels ...string) *service.ModelBlock {
		logits := make([]float32, len(labels))
		for i := range logits {
			logits[i] = -4
		}
		logits[0] = 4
		b, err := service.NewModelBlock(name, fixedModel{logits: logits}, labels)
		require.NoError(t, err)
		return b
	}
	return Deps{
		Config: &config.Config{
			Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		},
		Bundle: &service.Bundle{
			Config:     service.InferenceConfig{MaxLength: 1, MultilabelThreshold: 0.5},
			Tokenizer:  fixedTokenizer{},
			Primary:    block(service.HeadPrimary, "Physics", "Biology"),
			Method:     block(service.HeadMethod, "Experimental", "Theoretical"),
			Categories: block(service.HeadCategories, "Optics", "Genomics"),
		},
		Logger: zap.NewNop(),
	}
}

func TestSetup(t *testing.T) {
	router := Setup(testDeps(t))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "health", method: "GET", path: "/health", status: http.StatusOK},
		{name: "ready", method: "GET", path: "/ready", status: http.StatusOK},
		{name: "metrics", method: "GET", path: "/metrics", status: http.StatusOK},
		{name: "classify", method: "POST", path: "/classify", body: `{"abstract":"lasers"}`, status: http.StatusOK},
		{name: "classify rejects empty", method: "POST", path: "/classify", body: `{"abstract":" "}`, status: http.StatusBadRequest},
		{name: "papers need a database", method: "GET", path: "/api/v1/papers", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestSetup_ClassifyBody(t *testing.T) {
	router := Setup(testDeps(t))

	req, _ := http.NewRequest("POST", "/classify", bytes.NewBufferString(`{"abstract":"lasers"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"primary_category":"Physics"`)
	assert.Contains(t, w.Body.String(), `"categories":["Optics"]`)
}

func TestSetup_MetricsDisabled(t *testing.T) {
	deps := testDeps(t)
	deps.Config.Metrics.Enabled = false
	router := Setup(deps)

	req, _ := http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
