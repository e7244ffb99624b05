package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/winisorts/classifier-api/internal/domain/entity"
)

// PaperFilter narrows a paper listing. Empty fields match everything.
type PaperFilter struct {
	PrimaryCategory     string
	ResearchMethodology string
	Category            string
}

// PaperRepository defines the interface for paper library operations
type PaperRepository interface {
	// Create stores a new paper
	Create(ctx context.Context, paper *entity.Paper) error

	// GetByID retrieves a paper by its ID, returning nil when absent
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Paper, error)

	// List retrieves papers newest first with pagination
	List(ctx context.Context, filter PaperFilter, limit, offset int) ([]*entity.Paper, int64, error)
}
