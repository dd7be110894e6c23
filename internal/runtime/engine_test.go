package runtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tally struct {
	Visits []string `json:"visits" yaml:"visits"`
	Route  string   `json:"route" yaml:"route"`
}

// counted records every invocation so tests can assert exactly-once behaviour.
type counted struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *counted) node(name string) graph.Transform[tally] {
	return func(_ context.Context, s tally) (tally, error) {
		c.mu.Lock()
		c.calls[name]++
		c.mu.Unlock()
		s.Visits = append(append([]string(nil), s.Visits...), name)
		return s, nil
	}
}

func (c *counted) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// linear builds START -> a -> b -> END.
func linear(t *testing.T) (*graph.Graph[tally], *counted) {
	t.Helper()
	c := &counted{calls: map[string]int{}}
	b := graph.NewBuilder[tally]()
	require.NoError(t, b.AddNode("a", c.node("a")))
	require.NoError(t, b.AddNode("b", c.node("b")))
	require.NoError(t, b.SetEntryPoint("a"))
	require.NoError(t, b.AddEdge("a", "b"))
	require.NoError(t, b.SetFinishPoint("b"))
	g, err := b.Compile()
	require.NoError(t, err)
	return g, c
}

// flakyStore fails exactly one Save, the failAt-th call (1-based).
type flakyStore struct {
	*memory.Store
	mu     sync.Mutex
	saves  int
	failAt int
}

var errFlaky = errors.New("write failed")

func (f *flakyStore) Save(ctx context.Context, id string, cp *domain.Checkpoint) error {
	f.mu.Lock()
	f.saves++
	n := f.saves
	f.mu.Unlock()
	if n == f.failAt {
		return errFlaky
	}
	return f.Store.Save(ctx, id, cp)
}

func newEngine(t *testing.T, g *graph.Graph[tally], opts ...runtime.Option) *runtime.Engine[tally] {
	t.Helper()
	e, err := runtime.NewEngine(g, opts...)
	require.NoError(t, err)
	return e
}

func TestEngine_RunToCompletion(t *testing.T) {
	g, c := linear(t)
	store := memory.NewStore()
	e := newEngine(t, g, runtime.WithStore(store), runtime.WithRunIDGenerator(func() string { return "run-1" }))

	res, err := e.Run(context.Background(), "s1", tally{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, []string{"a", "b"}, res.State.Visits)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 3, res.Steps) // START -> a -> b -> END
	assert.Empty(t, res.PausedBefore)
	assert.Equal(t, 1, c.count("a"))

	cp, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, graph.END, cp.Cursor)
	assert.Equal(t, domain.CheckpointCompleted, cp.Status)
	assert.Equal(t, "json", cp.Codec)
	assert.Equal(t, "run-1", cp.RunID)
}

func TestEngine_IdempotentReplay(t *testing.T) {
	g, c := linear(t)
	e := newEngine(t, g)
	ctx := context.Background()

	first, err := e.Run(ctx, "s1", tally{})
	require.NoError(t, err)

	again, err := e.Run(ctx, "s1", tally{}, domain.Resume())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, again.Status)
	assert.Equal(t, first.State, again.State)
	assert.Equal(t, 0, again.Steps)
	assert.Equal(t, 1, c.count("a"), "replay must not re-run nodes")
	assert.Equal(t, 1, c.count("b"))
}

func TestEngine_PauseResumeExactlyOnce(t *testing.T) {
	g, c := linear(t)
	store := memory.NewStore()
	e := newEngine(t, g, runtime.WithStore(store), runtime.WithInterruptBefore("b"))
	ctx := context.Background()

	res, err := e.Run(ctx, "s1", tally{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, res.Status)
	assert.Equal(t, "b", res.PausedBefore)
	assert.Equal(t, []string{"a"}, res.State.Visits)
	assert.Equal(t, 0, c.count("b"))

	cp, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "b", cp.Cursor)
	assert.Equal(t, domain.CheckpointPaused, cp.Status)

	res, err = e.Run(ctx, "s1", tally{}, domain.Resume())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, []string{"a", "b"}, res.State.Visits)
	assert.Equal(t, 1, c.count("a"))
	assert.Equal(t, 1, c.count("b"))
}

func TestEngine_ResumeWithoutCheckpoint(t *testing.T) {
	g, _ := linear(t)
	e := newEngine(t, g)

	res, err := e.Run(context.Background(), "ghost", tally{}, domain.Resume())
	assert.ErrorIs(t, err, domain.ErrNoCheckpoint)
	require.NotNil(t, res)
	assert.Equal(t, domain.StatusFailed, res.Status)
}

func TestEngine_EmptySessionID(t *testing.T) {
	g, _ := linear(t)
	e := newEngine(t, g)

	_, err := e.Run(context.Background(), "", tally{})
	assert.ErrorIs(t, err, domain.ErrEmptySessionID)
}

func TestEngine_FreshRunOverwrites(t *testing.T) {
	g, c := linear(t)
	e := newEngine(t, g)
	ctx := context.Background()

	_, err := e.Run(ctx, "s1", tally{Visits: []string{"old"}})
	require.NoError(t, err)

	res, err := e.Run(ctx, "s1", tally{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.State.Visits)
	assert.Equal(t, 2, c.count("a"))
}

func TestEngine_UnmappedRouteFailsFast(t *testing.T) {
	b := graph.NewBuilder[tally]()
	c := &counted{calls: map[string]int{}}
	require.NoError(t, b.AddNode("pick", c.node("pick")))
	require.NoError(t, b.AddNode("left", c.node("left")))
	require.NoError(t, b.SetEntryPoint("pick"))
	require.NoError(t, b.AddConditionalEdge("pick", func(s tally) string { return s.Route },
		map[string]string{"left": "left"}))
	require.NoError(t, b.SetFinishPoint("left"))
	g, err := b.Compile()
	require.NoError(t, err)

	store := memory.NewStore()
	e := newEngine(t, g, runtime.WithStore(store))
	ctx := context.Background()

	res, err := e.Run(ctx, "s1", tally{Route: "right"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnmappedRoute)
	var re *domain.RouteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "pick", re.Node)
	assert.Equal(t, "right", re.Key)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Empty(t, res.State.Visits, "result carries the last committed state")

	// The checkpoint still points at the step that failed to route.
	cp, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "pick", cp.Cursor)
	assert.Equal(t, 1, cp.Step)
	assert.Equal(t, 0, c.count("left"))
}

func TestEngine_NodeFailureLeavesCheckpoint(t *testing.T) {
	boom := errors.New("boom")
	b := graph.NewBuilder[tally]()
	require.NoError(t, b.AddNode("a", func(context.Context, tally) (tally, error) { return tally{}, boom }))
	require.NoError(t, b.SetEntryPoint("a"))
	require.NoError(t, b.SetFinishPoint("a"))
	g, err := b.Compile()
	require.NoError(t, err)

	store := memory.NewStore()
	e := newEngine(t, g, runtime.WithStore(store))

	res, err := e.Run(context.Background(), "s1", tally{Route: "keep"})
	assert.ErrorIs(t, err, boom)
	var ne *domain.NodeExecutionError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "a", ne.Node)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, "keep", res.State.Route)

	cp, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", cp.Cursor)
	assert.Equal(t, domain.CheckpointRunning, cp.Status)
}

func TestEngine_FailureReturnsCommittedState(t *testing.T) {
	b := graph.NewBuilder[map[string]int]()
	require.NoError(t, b.AddNode("a", func(_ context.Context, s map[string]int) (map[string]int, error) {
		s["n"]++
		return s, errors.New("boom")
	}))
	require.NoError(t, b.SetEntryPoint("a"))
	require.NoError(t, b.SetFinishPoint("a"))
	g, err := b.Compile()
	require.NoError(t, err)

	store := memory.NewStore()
	e, err := runtime.NewEngine(g, runtime.WithStore(store))
	require.NoError(t, err)

	res, err := e.Run(context.Background(), "s1", map[string]int{"n": 0})
	require.Error(t, err)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, 0, res.State["n"], "in-place edits of a failed node are not reported")

	snap, err := e.State(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.State["n"])

	// Same on a resumed run, where the committed bytes come from the store.
	res, err = e.Run(context.Background(), "s1", nil, domain.Resume())
	require.Error(t, err)
	assert.Equal(t, 0, res.State["n"])
}

func TestEngine_FailedSaveReexecutesStep(t *testing.T) {
	g, c := linear(t)
	// Saves: #1 initial, #2 START->a, #3 a->b (fails), ...
	store := &flakyStore{Store: memory.NewStore(), failAt: 3}
	e := newEngine(t, g, runtime.WithStore(store))
	ctx := context.Background()

	res, err := e.Run(ctx, "s1", tally{})
	require.Error(t, err)
	var se *domain.CheckpointStoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "save", se.Op)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Empty(t, res.State.Visits)

	cp, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", cp.Cursor, "last committed step points back at a")

	res, err = e.Run(ctx, "s1", tally{}, domain.Resume())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, []string{"a", "b"}, res.State.Visits)
	assert.Equal(t, 2, c.count("a"), "uncommitted step is executed again")
	assert.Equal(t, 1, c.count("b"))
}

func TestEngine_Cancellation(t *testing.T) {
	g, c := linear(t)
	store := memory.NewStore()
	e := newEngine(t, g, runtime.WithStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Run(ctx, "s1", tally{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StatusCancelled, res.Status)
	assert.Equal(t, 0, c.count("a"))

	_, err = store.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "nothing is saved for a cancelled run")
}

func TestEngine_CancelMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := graph.NewBuilder[tally]()
	require.NoError(t, b.AddNode("a", func(_ context.Context, s tally) (tally, error) {
		cancel()
		s.Visits = append(s.Visits, "a")
		return s, nil
	}))
	require.NoError(t, b.AddNode("b", func(_ context.Context, s tally) (tally, error) {
		t.Error("b must not run after cancellation")
		return s, nil
	}))
	require.NoError(t, b.SetEntryPoint("a"))
	require.NoError(t, b.AddEdge("a", "b"))
	require.NoError(t, b.SetFinishPoint("b"))
	g, err := b.Compile()
	require.NoError(t, err)

	store := memory.NewStore()
	e := newEngine(t, g, runtime.WithStore(store))

	res, err := e.Run(ctx, "s1", tally{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StatusCancelled, res.Status)
	assert.Equal(t, []string{"a"}, res.State.Visits)

	// a was committed before the cancellation was observed, so resume continues at b.
	cp, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "b", cp.Cursor)
}

func TestEngine_StepLimit(t *testing.T) {
	b := graph.NewBuilder[tally]()
	c := &counted{calls: map[string]int{}}
	require.NoError(t, b.AddNode("loop", c.node("loop")))
	require.NoError(t, b.SetEntryPoint("loop"))
	require.NoError(t, b.AddConditionalEdge("loop", func(s tally) string {
		if len(s.Visits) >= 10 {
			return "done"
		}
		return "again"
	}, map[string]string{"again": "loop", "done": graph.END}))
	g, err := b.Compile()
	require.NoError(t, err)

	store := memory.NewStore()
	e := newEngine(t, g, runtime.WithStore(store), runtime.WithMaxSteps(4))
	ctx := context.Background()

	res, err := e.Run(ctx, "s1", tally{})
	assert.ErrorIs(t, err, domain.ErrStepLimit)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Len(t, res.State.Visits, 4)

	// Each call gets a fresh budget, so the loop finishes over several resumes.
	for i := 0; i < 2; i++ {
		res, err = e.Run(ctx, "s1", tally{}, domain.Resume())
	}
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Len(t, res.State.Visits, 10)
}

func TestEngine_InterruptOverrides(t *testing.T) {
	g, c := linear(t)
	e := newEngine(t, g, runtime.WithInterruptBefore("b"))
	ctx := context.Background()

	res, err := e.Run(ctx, "override", tally{}, domain.InterruptBefore("a"))
	require.NoError(t, err)
	assert.Equal(t, "a", res.PausedBefore)

	res, err = e.Run(ctx, "none", tally{}, domain.WithoutInterrupts())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, 1, c.count("b"))

	_, err = e.Run(ctx, "bad", tally{}, domain.InterruptBefore("typo"))
	assert.ErrorIs(t, err, graph.ErrUnknownNode)
}

func TestNewEngine_UnknownInterruptNode(t *testing.T) {
	g, _ := linear(t)
	_, err := runtime.NewEngine(g, runtime.WithInterruptBefore("nope"))
	assert.ErrorIs(t, err, graph.ErrUnknownNode)

	_, err = runtime.NewEngine[tally](nil)
	assert.Error(t, err)
}

func TestEngine_PausedResumeRepausesLaterGates(t *testing.T) {
	g, c := linear(t)
	e := newEngine(t, g, runtime.WithInterruptBefore("a", "b"))
	ctx := context.Background()

	res, err := e.Run(ctx, "s1", tally{})
	require.NoError(t, err)
	assert.Equal(t, "a", res.PausedBefore)

	res, err = e.Run(ctx, "s1", tally{}, domain.Resume())
	require.NoError(t, err)
	assert.Equal(t, "b", res.PausedBefore, "bypass applies only to the node that was paused")
	assert.Equal(t, 1, c.count("a"))

	res, err = e.Run(ctx, "s1", tally{}, domain.Resume())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
}

func TestEngine_StateAndUpdate(t *testing.T) {
	g, _ := linear(t)
	e := newEngine(t, g, runtime.WithInterruptBefore("b"))
	ctx := context.Background()

	_, err := e.Run(ctx, "s1", tally{})
	require.NoError(t, err)

	snap, err := e.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "b", snap.Cursor)
	assert.Equal(t, domain.CheckpointPaused, snap.Status)
	assert.Equal(t, []string{"a"}, snap.State.Visits)

	require.NoError(t, e.UpdateState(ctx, "s1", func(s tally) (tally, error) {
		s.Visits = append(s.Visits, "edited")
		return s, nil
	}))

	snap, err = e.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "b", snap.Cursor, "cursor is unchanged by an edit")
	assert.Equal(t, domain.CheckpointPaused, snap.Status)

	res, err := e.Run(ctx, "s1", tally{}, domain.Resume())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "edited", "b"}, res.State.Visits)

	fail := errors.New("rejected")
	assert.ErrorIs(t, e.UpdateState(ctx, "s1", func(s tally) (tally, error) { return s, fail }), fail)

	_, err = e.State(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, e.UpdateState(ctx, "ghost", func(s tally) (tally, error) { return s, nil }), domain.ErrSessionNotFound)
}

func TestEngine_ResetAndSessions(t *testing.T) {
	g, _ := linear(t)
	e := newEngine(t, g)
	ctx := context.Background()

	for _, id := range []string{"a1", "a2"} {
		_, err := e.Run(ctx, id, tally{})
		require.NoError(t, err)
	}
	ids, err := e.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)

	require.NoError(t, e.Reset(ctx, "a1"))
	ids, err = e.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, ids)

	_, err = e.Run(ctx, "a1", tally{}, domain.Resume())
	assert.ErrorIs(t, err, domain.ErrNoCheckpoint)
}

func TestEngine_YAMLCodec(t *testing.T) {
	g, _ := linear(t)
	store := memory.NewStore()
	e := newEngine(t, g, runtime.WithStore(store), runtime.WithCodec(codec.YAML), runtime.WithInterruptBefore("b"))
	ctx := context.Background()

	_, err := e.Run(ctx, "s1", tally{Route: "x"})
	require.NoError(t, err)

	cp, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "yaml", cp.Codec)
	assert.Contains(t, string(cp.State), "visits:")

	res, err := e.Run(ctx, "s1", tally{}, domain.Resume())
	require.NoError(t, err)
	assert.Equal(t, tally{Visits: []string{"a", "b"}, Route: "x"}, res.State)
}

func TestEngine_CorruptCheckpoint(t *testing.T) {
	g, _ := linear(t)
	store := memory.NewStore()
	e := newEngine(t, g, runtime.WithStore(store))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", &domain.Checkpoint{
		SessionID: "s1", State: []byte("{not json"), Codec: "json", Cursor: "a", Status: domain.CheckpointRunning,
	}))

	res, err := e.Run(ctx, "s1", tally{}, domain.Resume())
	assert.ErrorIs(t, err, domain.ErrStateDecode)
	assert.Equal(t, domain.StatusFailed, res.Status)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	g, _ := linear(t)
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { record("enter:" + e.NodeID) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { record("leave:" + e.NodeID + "->" + e.Next) },
		OnPause:     func(_ context.Context, e *domain.NodeEvent) { record("pause:" + e.NodeID) },
		OnRunEnd:    func(_ context.Context, e *domain.RunEvent) { record("end:" + string(e.Status)) },
	}
	var checkpoints int32
	more := domain.LifecycleHooks{
		OnCheckpoint: func(context.Context, *domain.CheckpointEvent) { atomic.AddInt32(&checkpoints, 1) },
	}

	e := newEngine(t, g,
		runtime.WithInterruptBefore("b"),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithLifecycleHooks(more),
	)
	ctx := context.Background()

	_, err := e.Run(ctx, "s1", tally{})
	require.NoError(t, err)
	_, err = e.Run(ctx, "s1", tally{}, domain.Resume())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"enter:a", "leave:a->b", "pause:b", "end:paused",
		"enter:b", "leave:b->" + graph.END, "end:completed",
	}, events)
	// initial, START->a, a->b, paused | b->END, completed
	assert.Equal(t, int32(6), atomic.LoadInt32(&checkpoints))
}

func TestEngine_ConcurrentSessions(t *testing.T) {
	g, c := linear(t)
	e := newEngine(t, g)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "s" + string(rune('a'+i))
			res, err := e.Run(ctx, id, tally{})
			assert.NoError(t, err)
			assert.Equal(t, domain.StatusCompleted, res.Status)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, c.count("a"))
}

func TestEngine_SameSessionIsSerialized(t *testing.T) {
	var inside, overlap int32
	b := graph.NewBuilder[tally]()
	require.NoError(t, b.AddNode("slow", func(_ context.Context, s tally) (tally, error) {
		if atomic.AddInt32(&inside, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inside, -1)
		return s, nil
	}))
	require.NoError(t, b.SetEntryPoint("slow"))
	require.NoError(t, b.SetFinishPoint("slow"))
	g, err := b.Compile()
	require.NoError(t, err)

	e := newEngine(t, g)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Run(context.Background(), "shared", tally{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&overlap))
}
