package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winisorts/classifier-api/internal/domain/service"
	"github.com/winisorts/classifier-api/internal/usecase"
)

// ClassifyRequest is the body of POST /classify
type ClassifyRequest struct {
	Abstract string `json:"abstract"`
}

// ClassifyResponse is the body of a successful POST /classify
type ClassifyResponse struct {
	PrimaryCategory     string     `json:"primary_category"`
	ResearchMethodology string     `json:"research_methodology"`
	Categories          []string   `json:"categories"`
	Confidence          Confidence `json:"confidence"`
}

// Confidence nests the per-head scores of a classification
type Confidence struct {
	PrimaryCategory     float64  `json:"primary_category"`
	ResearchMethodology float64  `json:"research_methodology"`
	Categories          ScoreMap `json:"categories"`
}

// ScoreMap is a label to confidence object that keeps its entries in
// ranked order when encoded.
type ScoreMap []service.LabelScore

// MarshalJSON encodes the scores as a JSON object in slice order
func (m ScoreMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Label)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.Confidence)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewClassifyResponse flattens a classification into the response shape
func NewClassifyResponse(r *service.Classification) *ClassifyResponse {
	scores := ScoreMap(r.Categories)
	if scores == nil {
		scores = ScoreMap{}
	}
	return &ClassifyResponse{
		PrimaryCategory:     r.PrimaryCategory.Label,
		ResearchMethodology: r.ResearchMethodology.Label,
		Categories:          r.CategoryLabels(),
		Confidence: Confidence{
			PrimaryCategory:     r.PrimaryCategory.Confidence,
			ResearchMethodology: r.ResearchMethodology.Confidence,
			Categories:          scores,
		},
	}
}

// ClassifyHandler handles abstract classification
type ClassifyHandler struct {
	classifyUC usecase.ClassifyUsecase
}

// NewClassifyHandler creates a new classify handler
func NewClassifyHandler(classifyUC usecase.ClassifyUsecase) *ClassifyHandler {
	return &ClassifyHandler{classifyUC: classifyUC}
}

// Classify handles POST /classify
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondPlainError(c, http.StatusBadRequest, usecase.ErrAbstractRequired.Error())
		return
	}

	result, err := h.classifyUC.Classify(c.Request.Context(), req.Abstract)
	if err != nil {
		if errors.Is(err, usecase.ErrAbstractRequired) {
			respondPlainError(c, http.StatusBadRequest, usecase.ErrAbstractRequired.Error())
			return
		}
		_ = c.Error(err)
		respondPlainError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, NewClassifyResponse(result))
}
