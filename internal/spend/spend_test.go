package spend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-coupling-api/internal/cache"
	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/upstream"
	"credit-coupling-api/internal/validation"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestStaticSource_ReturnsCopy(t *testing.T) {
	src, err := NewStaticSource(DefaultFallback())
	require.NoError(t, err)

	first, err := src.CurrentSpend(context.Background())
	require.NoError(t, err)
	first["AWS Lambda"] = decimal.NewFromInt(999)

	second, err := src.CurrentSpend(context.Background())
	require.NoError(t, err)
	assert.True(t, second["AWS Lambda"].Equal(decimal.RequireFromString("25.10")))
}

func TestStaticSource_RejectsNegative(t *testing.T) {
	_, err := NewStaticSource(models.ServiceSpend{"AWS Lambda": decimal.NewFromInt(-1)})

	var vErr *validation.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestFallbackSource_DegradesOnUpstreamError(t *testing.T) {
	primary := SourceFunc(func(ctx context.Context) (models.ServiceSpend, error) {
		return nil, upstream.Unavailable(Collaborator, errors.New("no credentials"))
	})
	fallback, err := NewStaticSource(DefaultFallback())
	require.NoError(t, err)

	got, err := NewFallbackSource(primary, fallback, quietLogger).CurrentSpend(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestFallbackSource_PropagatesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	primary := SourceFunc(func(ctx context.Context) (models.ServiceSpend, error) {
		return nil, boom
	})
	fallback, _ := NewStaticSource(DefaultFallback())

	_, err := NewFallbackSource(primary, fallback, quietLogger).CurrentSpend(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFallbackSource_RejectsNegativePrimary(t *testing.T) {
	primary := SourceFunc(func(ctx context.Context) (models.ServiceSpend, error) {
		return models.ServiceSpend{"AWS Lambda": decimal.NewFromInt(-3)}, nil
	})
	fallback, _ := NewStaticSource(DefaultFallback())

	_, err := NewFallbackSource(primary, fallback, quietLogger).CurrentSpend(context.Background())
	assert.Error(t, err)
}

func TestCachedSource_FetchesOnce(t *testing.T) {
	calls := 0
	src := SourceFunc(func(ctx context.Context) (models.ServiceSpend, error) {
		calls++
		return models.ServiceSpend{"AWS Lambda": decimal.RequireFromString("25.10")}, nil
	})
	cached := NewCachedSource(src, cache.NewInMemoryCache(), "spend:30d", time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cached.CurrentSpend(ctx)
		require.NoError(t, err)
		assert.True(t, got["AWS Lambda"].Equal(decimal.RequireFromString("25.10")))
	}
	assert.Equal(t, 1, calls)

	require.NoError(t, cached.Invalidate(ctx))
	_, err := cached.CurrentSpend(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedSource_DoesNotCacheErrors(t *testing.T) {
	calls := 0
	src := SourceFunc(func(ctx context.Context) (models.ServiceSpend, error) {
		calls++
		return nil, upstream.Unavailable(Collaborator, errors.New("timeout"))
	})
	cached := NewCachedSource(src, cache.NewInMemoryCache(), "spend:30d", time.Minute)

	_, err := cached.CurrentSpend(context.Background())
	assert.Error(t, err)
	_, err = cached.CurrentSpend(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spend.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"AWS Lambda": "25.10", "Amazon SageMaker": 52.2}`), 0o600))

	got, err := NewFileSource(path).CurrentSpend(context.Background())
	require.NoError(t, err)
	assert.True(t, got["AWS Lambda"].Equal(decimal.RequireFromString("25.10")))
	assert.True(t, got["Amazon SageMaker"].Equal(decimal.RequireFromString("52.2")))
}

func TestFileSource_MissingFileIsUpstream(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.json"))

	_, err := src.CurrentSpend(context.Background())
	var upErr *upstream.Error
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, Collaborator, upErr.Collaborator)

	fallback, _ := NewStaticSource(DefaultFallback())
	got, err := NewFallbackSource(src, fallback, quietLogger).CurrentSpend(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestParseJSON_Invalid(t *testing.T) {
	_, err := ParseJSON([]byte(`{"AWS Lambda": "-3"}`))
	var vErr *validation.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = ParseJSON([]byte(`not json`))
	assert.True(t, errors.As(err, &vErr))

	_, err = ParseJSON([]byte(`{"AWS Lambda": 10, "AWS Lambda ": 15}`))
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "spend[AWS Lambda]", vErr.Field)
}
