package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winisorts/classifier-api/internal/usecase"
)

// PaperHandler handles the paper library endpoints
type PaperHandler struct {
	paperUC usecase.PaperUsecase
}

// NewPaperHandler creates a new paper handler
func NewPaperHandler(paperUC usecase.PaperUsecase) *PaperHandler {
	return &PaperHandler{paperUC: paperUC}
}

// CreatePaper handles POST /api/v1/papers
func (h *PaperHandler) CreatePaper(c *gin.Context) {
	var input usecase.CreatePaperInput
	if err := c.ShouldBindJSON(&input); err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}

	output, err := h.paperUC.Create(c.Request.Context(), &input)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, output)
}

// GetPaper handles GET /api/v1/papers/:id
func (h *PaperHandler) GetPaper(c *gin.Context) {
	id, err := ExtractUUIDParam(c, "id")
	if err != nil {
		HandleInvalidUUID(c, "paper id")
		return
	}

	output, err := h.paperUC.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// ListPapers handles GET /api/v1/papers
func (h *PaperHandler) ListPapers(c *gin.Context) {
	pagination := ParsePagination(c)
	filters := ParsePaperFilters(c)

	output, err := h.paperUC.List(c.Request.Context(), &usecase.ListPapersInput{
		Discipline:  filters.Discipline,
		Methodology: filters.Methodology,
		Category:    filters.Category,
		Limit:       pagination.Limit,
		Offset:      pagination.Offset,
	})
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}
