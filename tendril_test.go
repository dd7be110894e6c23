package tendril_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/chatbot"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time { return time.Date(2025, 7, 16, 23, 25, 0, 0, time.UTC) }

func newChat(t *testing.T, opts ...tendril.Option) *tendril.Engine[chatbot.ChatState] {
	t.Helper()
	g, err := chatbot.NewGraph(fixedClock)
	require.NoError(t, err)
	opts = append([]tendril.Option{tendril.WithInterruptBefore(chatbot.DefaultInterrupts...)}, opts...)
	eng, err := tendril.New(g, opts...)
	require.NoError(t, err)
	return eng
}

func TestChat_PauseBeforeRespondThenResume(t *testing.T) {
	eng := newChat(t)
	ctx := context.Background()

	res, err := eng.Run(ctx, "user_123", chatbot.NewState("I'm feeling great today!"))
	require.NoError(t, err)
	assert.Equal(t, tendril.StatusPaused, res.Status)
	assert.Equal(t, chatbot.NodeRespond, res.PausedBefore)
	assert.Equal(t, chatbot.Positive, res.State.Sentiment)
	require.Len(t, res.State.Messages, 1)
	assert.Equal(t, "2025-07-16 23:25:00", res.State.Messages[0].Timestamp)

	res, err = eng.Run(ctx, "user_123", chatbot.ChatState{}, tendril.Resume())
	require.NoError(t, err)
	assert.Equal(t, tendril.StatusCompleted, res.Status)
	require.Len(t, res.State.Messages, 2)
	reply := res.State.Messages[1]
	assert.Equal(t, chatbot.RoleAssistant, reply.Role)
	assert.Equal(t, "That’s awesome to hear! 😊 What’s making you feel so i'm feeling great today!?", reply.Content)
}

func TestChat_SummarizeSkipsGate(t *testing.T) {
	eng := newChat(t)
	ctx := context.Background()

	state := chatbot.NewState("hello").WithUserMessage("summarize")
	res, err := eng.Run(ctx, "user_456", state)
	require.NoError(t, err)
	assert.Equal(t, tendril.StatusCompleted, res.Status)
	assert.Empty(t, res.PausedBefore)
	require.Len(t, res.State.Messages, 3)
	assert.Equal(t, "Conversation Summary:\n"+
		"User (): hello\n"+
		"User (2025-07-16 23:25:00): summarize\n", res.State.Messages[2].Content)
}

func TestChat_ResumeAcrossEngines(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	first := newChat(t, tendril.WithStore(store))
	res, err := first.Run(ctx, "durable", chatbot.NewState("this is terrible"))
	require.NoError(t, err)
	require.Equal(t, tendril.StatusPaused, res.Status)

	// A second engine over the same directory stands in for a restarted process.
	second := newChat(t, tendril.WithStore(store))
	snap, err := second.State(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, chatbot.NodeRespond, snap.Cursor)
	assert.Equal(t, domain.CheckpointPaused, snap.Status)

	res, err = second.Run(ctx, "durable", chatbot.ChatState{}, tendril.Resume())
	require.NoError(t, err)
	assert.Equal(t, tendril.StatusCompleted, res.Status)
	assert.Equal(t, "I’m sorry you’re feeling that way. 😔 Want to share more about this is terrible?",
		res.State.Messages[1].Content)

	ids, err := second.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"durable"}, ids)
}

func TestChat_EditBeforeApproval(t *testing.T) {
	eng := newChat(t)
	ctx := context.Background()

	_, err := eng.Run(ctx, "edit", chatbot.NewState("great"))
	require.NoError(t, err)

	require.NoError(t, eng.UpdateState(ctx, "edit", func(s chatbot.ChatState) (chatbot.ChatState, error) {
		s.Sentiment = chatbot.Neutral
		return s, nil
	}))

	res, err := eng.Run(ctx, "edit", chatbot.ChatState{}, tendril.Resume())
	require.NoError(t, err)
	assert.Equal(t, "Got it! Tell me more about great.", res.State.Messages[1].Content)
}

func TestChat_WithoutInterrupts(t *testing.T) {
	eng := newChat(t)
	res, err := eng.Run(context.Background(), "auto", chatbot.NewState("ok"), tendril.WithoutInterrupts())
	require.NoError(t, err)
	assert.Equal(t, tendril.StatusCompleted, res.Status)
	assert.Len(t, res.State.Messages, 2)
}

func TestWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eng := newChat(t, tendril.WithMetrics(reg))
	ctx := context.Background()

	_, err := eng.Run(ctx, "m", chatbot.NewState("good"))
	require.NoError(t, err)
	_, err = eng.Run(ctx, "m", chatbot.ChatState{}, tendril.Resume())
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "tendril_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per status: paused and completed")

	count, err = testutil.GatherAndCount(reg, "tendril_pauses_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTopology(t *testing.T) {
	eng := newChat(t)
	topo := eng.Topology()
	assert.ElementsMatch(t, []string{chatbot.NodeClassify, chatbot.NodeRespond, chatbot.NodeSummarize}, topo.Nodes)
	assert.ElementsMatch(t, []string{chatbot.NodeRespond, chatbot.NodeSummarize}, topo.Successors(chatbot.NodeClassify))
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, tendril.Version)
}
