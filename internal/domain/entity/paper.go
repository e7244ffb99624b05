package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/winisorts/classifier-api/internal/domain/service"
)

// UntitledPaper is stored when a paper is submitted without a title
const UntitledPaper = "N/A"

// Paper is a classified abstract kept in the library
type Paper struct {
	ID                    uuid.UUID          `json:"id" gorm:"type:uuid;primary_key"`
	Title                 string             `json:"title" gorm:"type:varchar(512);not null"`
	Abstract              string             `json:"abstract" gorm:"type:text;not null"`
	SubmittedBy           string             `json:"submitted_by" gorm:"type:varchar(128);index"`
	PrimaryCategory       string             `json:"primary_category" gorm:"type:varchar(128);not null;index"`
	PrimaryConfidence     float64            `json:"primary_confidence"`
	ResearchMethodology   string             `json:"research_methodology" gorm:"type:varchar(128);not null;index"`
	MethodologyConfidence float64            `json:"methodology_confidence"`
	Categories            []string           `json:"categories" gorm:"type:jsonb;serializer:json"`
	CategoryScores        map[string]float64 `json:"category_scores" gorm:"type:jsonb;serializer:json"`
	CreatedAt             time.Time          `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName returns the table name for GORM
func (Paper) TableName() string {
	return "papers"
}

// NewPaper creates a Paper from a classification result
func NewPaper(title, abstract, submittedBy string, result *service.Classification) *Paper {
	title = strings.TrimSpace(title)
	if title == "" {
		title = UntitledPaper
	}

	scores := make(map[string]float64, len(result.Categories))
	for _, s := range result.Categories {
		scores[s.Label] = s.Confidence
	}

	return &Paper{
		ID:                    uuid.New(),
		Title:                 title,
		Abstract:              strings.TrimSpace(abstract),
		SubmittedBy:           strings.TrimSpace(submittedBy),
		PrimaryCategory:       result.PrimaryCategory.Label,
		PrimaryConfidence:     result.PrimaryCategory.Confidence,
		ResearchMethodology:   result.ResearchMethodology.Label,
		MethodologyConfidence: result.ResearchMethodology.Confidence,
		Categories:            result.CategoryLabels(),
		CategoryScores:        scores,
	}
}
