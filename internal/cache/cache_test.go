package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/lp-report/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingRecorder map[string]int

func (r countingRecorder) CacheResult(op, result string) { r[op+":"+result]++ }

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}
func (brokenStore) Set(context.Context, string, []byte) error { return errors.New("disk on fire") }
func (brokenStore) Clear(context.Context) error                { return errors.New("disk on fire") }
func (brokenStore) Close() error                               { return nil }

// bloquea hasta que el contexto vence
type slowStore struct{ MemoryStore }

func (s *slowStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	<-ctx.Done()
	return nil, false, ctx.Err()
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "cache", "lp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sq}
}

func TestCacheRoundTrip(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := New(st, quiet)

			var got []models.CostRecord
			assert.False(t, c.Load(ctx, "costs", &got))

			in := []models.CostRecord{{Date: "2025-01-28", Media: "Acom", LPNumber: "LP1", TotalCost: 1234.5}}
			c.Save(ctx, "costs", in)
			require.True(t, c.Load(ctx, "costs", &got))
			assert.Equal(t, in, got)

			c.Save(ctx, "costs", []models.CostRecord{})
			require.True(t, c.Load(ctx, "costs", &got))
			assert.Empty(t, got)

			c.Clear(ctx)
			assert.False(t, c.Load(ctx, "costs", &got))
		})
	}
}

func TestCacheRetentionWindow(t *testing.T) {
	now := time.Date(2025, 1, 28, 9, 0, 0, 0, time.UTC)
	rec := countingRecorder{}
	c := New(NewMemoryStore(), quiet, WithRecorder(rec))
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Save(ctx, "k", []string{"a"})

	now = now.Add(11 * time.Hour)
	var got []string
	assert.True(t, c.Load(ctx, "k", &got))

	now = now.Add(2 * time.Hour)
	assert.False(t, c.Load(ctx, "k", &got))
	assert.Equal(t, 1, rec["get:stale"])
	assert.Equal(t, 1, rec["get:hit"])
}

func TestCacheFailuresAreMisses(t *testing.T) {
	rec := countingRecorder{}
	c := New(brokenStore{}, quiet, WithRecorder(rec))
	ctx := context.Background()

	c.Save(ctx, "k", 1)
	var v int
	assert.False(t, c.Load(ctx, "k", &v))
	c.Clear(ctx)

	assert.Equal(t, 1, rec["set:error"])
	assert.Equal(t, 1, rec["get:error"])
	assert.Equal(t, 1, rec["clear:error"])
}

func TestCacheTimeoutIsBounded(t *testing.T) {
	c := New(&slowStore{}, quiet, WithTimeout(50*time.Millisecond))
	start := time.Now()
	var v int
	assert.False(t, c.Load(context.Background(), "k", &v))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCacheCorruptEntry(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "k", []byte("not msgpack at all")))

	c := New(st, quiet)
	var v []string
	assert.False(t, c.Load(ctx, "k", &v))
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	var v int
	assert.False(t, c.Load(context.Background(), "k", &v))
	c.Save(context.Background(), "k", 1)
	c.Clear(context.Background())
}
