package enrichment

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryCache(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Hour)
	defer c.Close()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "k", &Result{Source: SourceLusha, Success: true, Email: "a@b.io"})
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "a@b.io", got.Email)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Cleanup())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Zero(t, stats.Size)
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemoryCache(time.Minute, time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	noLoop := NewMemoryCache(0, 0)
	require.NoError(t, noLoop.Close())
}

func TestSQLiteCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache", "enrichment.db")

	c, err := OpenSQLiteCache(path, time.Hour)
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "coresignal:person|ada", &Result{Source: SourceCoreSignal, Success: true, JobTitle: "CTO", Confidence: 0.9})
	c.Set(ctx, "lusha:person|ada", &Result{Source: SourceLusha, Success: true, Email: "ada@x.io"})

	got, ok := c.Get(ctx, "coresignal:person|ada")
	require.True(t, ok)
	assert.Equal(t, "CTO", got.JobTitle)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)

	c.Set(ctx, "coresignal:person|ada", &Result{Source: SourceCoreSignal, Success: true, JobTitle: "CEO"})
	got, ok = c.Get(ctx, "coresignal:person|ada")
	require.True(t, ok)
	assert.Equal(t, "CEO", got.JobTitle)

	now = now.Add(2 * time.Hour)
	_, ok = c.Get(ctx, "lusha:person|ada")
	assert.False(t, ok)

	purged, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Zero(t, stats.Size)
	require.NoError(t, c.Close())
}

func TestSQLiteCache_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "enrichment.db")

	c, err := OpenSQLiteCache(path, 0)
	require.NoError(t, err)
	c.Set(ctx, "website:company|acme.com", &Result{Source: SourceWebsite, Success: true, CompanyName: "Acme"})
	require.NoError(t, c.Close())

	reopened, err := OpenSQLiteCache(path, 0)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Get(ctx, "website:company|acme.com")
	require.True(t, ok)
	assert.Equal(t, "Acme", got.CompanyName)
}
