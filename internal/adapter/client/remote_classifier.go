package client

import (
	"context"
	"strings"

	"github.com/winisorts/classifier-api/internal/domain/service"
	"github.com/winisorts/classifier-api/internal/usecase"
)

// RemoteClassifier adapts ClassifierClient to the ClassifyUsecase interface
type RemoteClassifier struct {
	client *ClassifierClient
}

var _ usecase.ClassifyUsecase = (*RemoteClassifier)(nil)

// NewRemoteClassifier creates a new RemoteClassifier
func NewRemoteClassifier(client *ClassifierClient) *RemoteClassifier {
	return &RemoteClassifier{client: client}
}

// Classify classifies an abstract on the remote service. Empty input is
// rejected locally with the same error the service would return.
func (c *RemoteClassifier) Classify(ctx context.Context, abstract string) (*service.Classification, error) {
	if strings.TrimSpace(abstract) == "" {
		return nil, usecase.ErrAbstractRequired
	}

	resp, err := c.client.Classify(ctx, abstract)
	if err != nil {
		return nil, err
	}

	// categories arrives ranked; scores come from the confidence object
	categories := make([]service.LabelScore, len(resp.Categories))
	for i, label := range resp.Categories {
		categories[i] = service.LabelScore{Label: label, Confidence: resp.Confidence.Categories[label]}
	}

	return &service.Classification{
		PrimaryCategory: service.LabelScore{
			Label:      resp.PrimaryCategory,
			Confidence: resp.Confidence.PrimaryCategory,
		},
		ResearchMethodology: service.LabelScore{
			Label:      resp.ResearchMethodology,
			Confidence: resp.Confidence.ResearchMethodology,
		},
		Categories: categories,
	}, nil
}
