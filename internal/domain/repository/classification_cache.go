package repository

import (
	"context"

	"github.com/winisorts/classifier-api/internal/domain/service"
)

// ClassificationCache stores finished classifications by content key.
// Get returns nil, nil on a miss.
type ClassificationCache interface {
	Get(ctx context.Context, key string) (*service.Classification, error)
	Set(ctx context.Context, key string, result *service.Classification) error
}
