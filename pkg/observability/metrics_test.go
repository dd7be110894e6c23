package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewMetrics(reg).Hooks()
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: "classify"})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{NodeID: "classify", Duration: time.Millisecond})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: "respond"})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{NodeID: "respond", Err: errors.New("boom")})
	hooks.OnPause(ctx, &domain.NodeEvent{NodeID: "respond"})
	hooks.OnCheckpoint(ctx, &domain.CheckpointEvent{})
	hooks.OnRunEnd(ctx, &domain.RunEvent{Status: domain.StatusPaused})

	for name, want := range map[string]int{
		"tendril_node_visits_total":       2,
		"tendril_node_duration_seconds":   2,
		"tendril_node_errors_total":       1,
		"tendril_pauses_total":            1,
		"tendril_runs_total":              1,
		"tendril_checkpoints_saved_total": 1,
	} {
		got, err := testutil.GatherAndCount(reg, name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: domain.EventBase{SessionID: "s1"}, NodeID: "classify"})
	hooks.OnPause(ctx, &domain.NodeEvent{EventBase: domain.EventBase{SessionID: "s1"}, NodeID: "respond"})
	hooks.OnRunEnd(ctx, &domain.RunEvent{EventBase: domain.EventBase{SessionID: "s1"}, Status: domain.StatusPaused})

	out := buf.String()
	assert.Contains(t, out, "node_enter")
	assert.Contains(t, out, "before=respond")
	assert.Contains(t, out, "status=paused")
}
