package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/winisorts/classifier-api/internal/domain/entity"
	"github.com/winisorts/classifier-api/internal/domain/repository"
)

type paperRepository struct {
	db *gorm.DB
}

// NewPaperRepository creates a new paper repository
func NewPaperRepository(db *gorm.DB) repository.PaperRepository {
	return &paperRepository{db: db}
}

func (r *paperRepository) Create(ctx context.Context, paper *entity.Paper) error {
	return r.db.WithContext(ctx).Create(paper).Error
}

func (r *paperRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Paper, error) {
	var paper entity.Paper
	err := r.db.WithContext(ctx).First(&paper, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &paper, nil
}

func (r *paperRepository) List(ctx context.Context, filter repository.PaperFilter, limit, offset int) ([]*entity.Paper, int64, error) {
	var papers []*entity.Paper
	var total int64

	query, err := applyFilter(r.db.WithContext(ctx).Model(&entity.Paper{}), filter)
	if err != nil {
		return nil, 0, err
	}

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&papers).Error
	if err != nil {
		return nil, 0, err
	}

	return papers, total, nil
}

func applyFilter(query *gorm.DB, filter repository.PaperFilter) (*gorm.DB, error) {
	if filter.PrimaryCategory != "" {
		query = query.Where("primary_category = ?", filter.PrimaryCategory)
	}
	if filter.ResearchMethodology != "" {
		query = query.Where("research_methodology = ?", filter.ResearchMethodology)
	}
	if filter.Category != "" {
		contains, err := json.Marshal([]string{filter.Category})
		if err != nil {
			return nil, err
		}
		query = query.Where("categories @> ?::jsonb", string(contains))
	}
	return query, nil
}
