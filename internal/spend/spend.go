// Package spend supplies observed service spend to the scorer.
package spend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"credit-coupling-api/internal/cache"
	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/upstream"
	"credit-coupling-api/internal/validation"
)

// Collaborator names the spend source in upstream errors.
const Collaborator = "spend source"

// Source returns spend per service over the lookback window.
type Source interface {
	CurrentSpend(ctx context.Context) (models.ServiceSpend, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (models.ServiceSpend, error)

func (f SourceFunc) CurrentSpend(ctx context.Context) (models.ServiceSpend, error) {
	return f(ctx)
}

// DefaultFallback is used when no billing credentials are available.
func DefaultFallback() models.ServiceSpend {
	return models.ServiceSpend{
		"Amazon Elastic Compute Cloud - Compute": decimal.RequireFromString("150.30"),
		"Amazon Simple Storage Service":          decimal.RequireFromString("45.20"),
		"AWS Lambda":                             decimal.RequireFromString("25.10"),
		"Amazon SageMaker":                       decimal.RequireFromString("52.20"),
	}
}

// StaticSource always returns the same mapping.
type StaticSource struct {
	spend models.ServiceSpend
}

// NewStaticSource validates spend and wraps it.
func NewStaticSource(spend models.ServiceSpend) (*StaticSource, error) {
	if err := validation.ValidateSpend(spend); err != nil {
		return nil, err
	}
	return &StaticSource{spend: Clone(spend)}, nil
}

func (s *StaticSource) CurrentSpend(ctx context.Context) (models.ServiceSpend, error) {
	return Clone(s.spend), nil
}

// FallbackSource degrades to a fallback mapping when the primary source is unavailable.
type FallbackSource struct {
	primary  Source
	fallback Source
	logger   *slog.Logger
}

func NewFallbackSource(primary, fallback Source, logger *slog.Logger) *FallbackSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSource{primary: primary, fallback: fallback, logger: logger}
}

func (f *FallbackSource) CurrentSpend(ctx context.Context) (models.ServiceSpend, error) {
	spend, err := f.primary.CurrentSpend(ctx)
	if err == nil {
		if err := validation.ValidateSpend(spend); err != nil {
			return nil, err
		}
		return spend, nil
	}

	var upErr *upstream.Error
	if !errors.As(err, &upErr) {
		return nil, err
	}

	f.logger.Warn("spend source unavailable, using fallback", "error", err)
	return f.fallback.CurrentSpend(ctx)
}

// CachedSource caches snapshots from another source for a TTL.
type CachedSource struct {
	src   Source
	cache cache.Cache
	key   string
	ttl   time.Duration
}

func NewCachedSource(src Source, c cache.Cache, key string, ttl time.Duration) *CachedSource {
	return &CachedSource{src: src, cache: c, key: key, ttl: ttl}
}

func (c *CachedSource) CurrentSpend(ctx context.Context) (models.ServiceSpend, error) {
	var cached models.ServiceSpend
	err := cache.GetJSON(ctx, c.cache, c.key, &cached)
	if err == nil {
		return cached, nil
	}

	spend, err := c.src.CurrentSpend(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateSpend(spend); err != nil {
		return nil, err
	}

	// Cache failures only cost a refetch.
	_ = cache.SetJSON(ctx, c.cache, c.key, spend, c.ttl)
	return spend, nil
}

// Invalidate drops the cached snapshot.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	if err := c.cache.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("failed to invalidate spend cache: %w", err)
	}
	return nil
}

// Clone copies a spend mapping.
func Clone(spend models.ServiceSpend) models.ServiceSpend {
	out := make(models.ServiceSpend, len(spend))
	for k, v := range spend {
		out[k] = v
	}
	return out
}
