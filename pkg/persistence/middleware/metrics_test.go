package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewStoreMetrics(reg)
	store := middleware.NewMetricsMiddleware(m)(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", checkpoint("s1", `{}`)))
	_, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	_, err = store.Load(ctx, "missing")
	require.Error(t, err)

	failing := middleware.NewMetricsMiddleware(m)(failingStore{memory.NewStore()})
	assert.ErrorIs(t, failing.Save(ctx, "s1", checkpoint("s1", `{}`)), errDisk)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["tendril_store_operation_duration_seconds"])
	assert.True(t, names["tendril_store_errors_total"])

	// Not-found is a normal outcome, only the disk failure counts.
	count, err := testutil.GatherAndCount(reg, "tendril_store_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChain_Order(t *testing.T) {
	reg := prometheus.NewRegistry()
	key := generateKey(t)
	inner := memory.NewStore()

	store := middleware.Chain(
		middleware.NewMetricsMiddleware(middleware.NewStoreMetrics(reg)),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)(inner)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", checkpoint("s1", `{"a":1}`)))

	raw, err := inner.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.EnvelopePrefix+"json", raw.Codec)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(loaded.State))
}
