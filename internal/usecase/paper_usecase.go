package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/winisorts/classifier-api/internal/domain/entity"
	"github.com/winisorts/classifier-api/internal/domain/repository"
)

// Error definitions for paper usecase
var (
	ErrPaperNotFound  = errors.New("paper not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// CreatePaperInput represents the input for submitting a paper
type CreatePaperInput struct {
	Title       string `json:"title"`
	Abstract    string `json:"abstract"`
	SubmittedBy string `json:"submitted_by"`
}

// ListPapersInput represents the filters and paging for a paper listing
type ListPapersInput struct {
	Discipline  string
	Methodology string
	Category    string
	Limit       int
	Offset      int
}

// PaperOutput represents the output for paper operations
type PaperOutput struct {
	PaperID               uuid.UUID          `json:"paper_id"`
	Title                 string             `json:"title"`
	Abstract              string             `json:"abstract"`
	SubmittedBy           string             `json:"submitted_by,omitempty"`
	PrimaryCategory       string             `json:"primary_category"`
	PrimaryConfidence     float64            `json:"primary_confidence"`
	ResearchMethodology   string             `json:"research_methodology"`
	MethodologyConfidence float64            `json:"methodology_confidence"`
	Categories            []string           `json:"categories"`
	CategoryScores        map[string]float64 `json:"category_scores"`
	CreatedAt             string             `json:"created_at"`
}

// PaperListOutput represents paginated paper list
type PaperListOutput struct {
	Papers  []*PaperOutput `json:"papers"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// PaperUsecase defines the interface for the paper library
type PaperUsecase interface {
	Create(ctx context.Context, input *CreatePaperInput) (*PaperOutput, error)
	GetByID(ctx context.Context, id uuid.UUID) (*PaperOutput, error)
	List(ctx context.Context, input *ListPapersInput) (*PaperListOutput, error)
}

type paperUsecase struct {
	paperRepo  repository.PaperRepository
	classifier ClassifyUsecase
}

// NewPaperUsecase creates a new paper usecase
func NewPaperUsecase(paperRepo repository.PaperRepository, classifier ClassifyUsecase) PaperUsecase {
	return &paperUsecase{
		paperRepo:  paperRepo,
		classifier: classifier,
	}
}

// Create classifies the abstract and stores the paper with its labels
func (u *paperUsecase) Create(ctx context.Context, input *CreatePaperInput) (*PaperOutput, error) {
	if strings.TrimSpace(input.Abstract) == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, ErrAbstractRequired)
	}

	result, err := u.classifier.Classify(ctx, input.Abstract)
	if err != nil {
		return nil, err
	}

	paper := entity.NewPaper(input.Title, input.Abstract, input.SubmittedBy, result)
	if err := u.paperRepo.Create(ctx, paper); err != nil {
		return nil, err
	}

	return toPaperOutput(paper), nil
}

func (u *paperUsecase) GetByID(ctx context.Context, id uuid.UUID) (*PaperOutput, error) {
	paper, err := u.paperRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if paper == nil {
		return nil, ErrPaperNotFound
	}

	return toPaperOutput(paper), nil
}

func (u *paperUsecase) List(ctx context.Context, input *ListPapersInput) (*PaperListOutput, error) {
	limit, offset := input.Limit, input.Offset
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	filter := repository.PaperFilter{
		PrimaryCategory:     strings.TrimSpace(input.Discipline),
		ResearchMethodology: strings.TrimSpace(input.Methodology),
		Category:            strings.TrimSpace(input.Category),
	}

	papers, total, err := u.paperRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	outputs := make([]*PaperOutput, len(papers))
	for i, p := range papers {
		outputs[i] = toPaperOutput(p)
	}

	return &PaperListOutput{
		Papers:  outputs,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}, nil
}

func toPaperOutput(p *entity.Paper) *PaperOutput {
	categories := p.Categories
	if categories == nil {
		categories = []string{}
	}
	scores := p.CategoryScores
	if scores == nil {
		scores = map[string]float64{}
	}
	return &PaperOutput{
		PaperID:               p.ID,
		Title:                 p.Title,
		Abstract:              p.Abstract,
		SubmittedBy:           p.SubmittedBy,
		PrimaryCategory:       p.PrimaryCategory,
		PrimaryConfidence:     p.PrimaryConfidence,
		ResearchMethodology:   p.ResearchMethodology,
		MethodologyConfidence: p.MethodologyConfidence,
		Categories:            categories,
		CategoryScores:        scores,
		CreatedAt:             p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
