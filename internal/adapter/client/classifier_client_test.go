package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{"primary_category":"Physics","research_methodology":"Experimental",` +
	`"categories":["Optics","Quantum"],"confidence":{"primary_category":0.91,` +
	`"research_methodology":0.8,"categories":{"Optics":0.88,"Quantum":0.51}}}`

func TestClassifierClient_Classify(t *testing.T) {
	t.Run("successful classification", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/classify", r.URL.Path)
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req ClassifyRequest
			err := json.NewDecoder(r.Body).Decode(&req)
			require.NoError(t, err)
			assert.Equal(t, "Entangled photons.", req.Abstract)

			w.Header().Set("Content-Type", "application/json")
			_, err = w.Write([]byte(sampleBody))
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewClassifierClient(server.URL+"/", 5*time.Second)
		result, err := client.Classify(context.Background(), "Entangled photons.")

		require.NoError(t, err)
		assert.Equal(t, "Physics", result.PrimaryCategory)
		assert.Equal(t, "Experimental", result.ResearchMethodology)
		assert.Equal(t, []string{"Optics", "Quantum"}, result.Categories)
		assert.Equal(t, 0.88, result.Confidence.Categories["Optics"])
		assert.JSONEq(t, sampleBody, string(result.Raw))
	})

	t.Run("validation error carries the message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, err := w.Write([]byte(`{"error":"abstract is required"}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewClassifierClient(server.URL, 5*time.Second)
		_, err := client.Classify(context.Background(), " ")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "abstract is required", apiErr.Message)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, err := w.Write([]byte("internal error"))
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewClassifierClient(server.URL, 5*time.Second)
		_, err := client.Classify(context.Background(), "test")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), "internal error")
	})

	t.Run("connection error", func(t *testing.T) {
		client := NewClassifierClient("http://localhost:99999", 1*time.Second)
		_, err := client.Classify(context.Background(), "test")

		assert.Error(t, err)
	})
}

func TestClassifierClient_Health(t *testing.T) {
	t.Run("healthy service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			resp := HealthResponse{Status: "ok", TS: 1760000000}
			err := json.NewEncoder(w).Encode(resp)
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewClassifierClient(server.URL, 5*time.Second)
		result, err := client.Health(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "ok", result.Status)
		assert.Equal(t, int64(1760000000), result.TS)
	})
}

func TestClassifierClient_Ready(t *testing.T) {
	t.Run("ready service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ready", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClassifierClient(server.URL, 5*time.Second)
		err := client.Ready(context.Background())

		assert.NoError(t, err)
	})

	t.Run("not ready service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClassifierClient(server.URL, 5*time.Second)
		err := client.Ready(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}
