package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/winisorts/classifier-api/internal/domain/repository"
	"github.com/winisorts/classifier-api/internal/domain/service"
	"github.com/winisorts/classifier-api/internal/infrastructure/logger"
	"github.com/winisorts/classifier-api/internal/infrastructure/metrics"
)

// Error definitions for classify usecase
var (
	ErrAbstractRequired = errors.New("abstract is required")
	ErrInference        = errors.New("inference failed")
)

// ClassifyOptions tunes how a request is executed
type ClassifyOptions struct {
	// ParallelHeads runs the three heads concurrently on one encoding
	ParallelHeads bool
	// CacheNamespace prefixes cache keys
	CacheNamespace string
}

// ClassifyUsecase defines the interface for abstract classification
type ClassifyUsecase interface {
	Classify(ctx context.Context, abstract string) (*service.Classification, error)
}

type classifyUsecase struct {
	bundle *service.Bundle
	cache  repository.ClassificationCache
	opts   ClassifyOptions
}

// NewClassifyUsecase creates a new classify usecase. cache may be nil.
func NewClassifyUsecase(bundle *service.Bundle, cache repository.ClassificationCache, opts ClassifyOptions) ClassifyUsecase {
	return &classifyUsecase{
		bundle: bundle,
		cache:  cache,
		opts:   opts,
	}
}

// Classify trims the abstract, encodes it once and runs every head on the
// shared encoding. A failing head fails the whole request.
func (u *classifyUsecase) Classify(ctx context.Context, abstract string) (*service.Classification, error) {
	text := strings.TrimSpace(abstract)
	if text == "" {
		metrics.Classifications.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, ErrAbstractRequired
	}

	log := logger.FromContext(ctx)
	key := CacheKey(u.opts.CacheNamespace, u.bundle.Fingerprint, text)

	if u.cache != nil {
		cached, err := u.cache.Get(ctx, key)
		if err != nil {
			log.Warn("Classification cache lookup failed", zap.Error(err))
		}
		if cached != nil {
			metrics.Classifications.WithLabelValues(metrics.OutcomeCached).Inc()
			return cached, nil
		}
	}

	enc, err := u.bundle.Tokenizer.Encode(text)
	if err != nil {
		metrics.Classifications.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: encode: %w", ErrInference, err)
	}

	result, err := u.predict(ctx, enc)
	if err != nil {
		metrics.Classifications.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	if u.cache != nil {
		if err := u.cache.Set(ctx, key, result); err != nil {
			log.Warn("Classification cache store failed", zap.Error(err))
		}
	}

	metrics.Classifications.WithLabelValues(metrics.OutcomeOK).Inc()
	log.Debug("Classified abstract",
		zap.String("primary_category", result.PrimaryCategory.Label),
		zap.String("research_methodology", result.ResearchMethodology.Label),
		zap.Int("categories", len(result.Categories)),
	)
	return result, nil
}

func (u *classifyUsecase) predict(ctx context.Context, enc *service.Encoding) (*service.Classification, error) {
	b := u.bundle
	result := &service.Classification{}

	primary := func(ctx context.Context) (err error) {
		defer observe(service.HeadPrimary, time.Now())
		result.PrimaryCategory, err = service.PredictSingle(ctx, enc, b.Primary)
		return err
	}
	method := func(ctx context.Context) (err error) {
		defer observe(service.HeadMethod, time.Now())
		result.ResearchMethodology, err = service.PredictSingle(ctx, enc, b.Method)
		return err
	}
	categories := func(ctx context.Context) (err error) {
		defer observe(service.HeadCategories, time.Now())
		_, result.Categories, err = service.PredictMulti(ctx, enc, b.Categories, b.Config.MultilabelThreshold)
		return err
	}
	heads := []func(context.Context) error{primary, method, categories}

	if !u.opts.ParallelHeads {
		for _, head := range heads {
			if err := head(ctx); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, head := range heads {
		head := head
		g.Go(func() error { return head(gctx) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func observe(head string, start time.Time) {
	metrics.InferenceDuration.WithLabelValues(head).Observe(time.Since(start).Seconds())
}

// CacheKey derives the cache key for an abstract under a model fingerprint
func CacheKey(namespace, fingerprint, abstract string) string {
	sum := sha256.Sum256([]byte(fingerprint + "\x00" + abstract))
	key := hex.EncodeToString(sum[:])
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
