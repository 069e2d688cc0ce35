package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clementus360/task-insights/llm"
	"clementus360/task-insights/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okReply = "```json\n{\"statusSummary\":\"ok\",\"nextSteps\":\"go\",\"riskLevel\":\"high\",\"intelligentActions\":[]}\n```"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeProvider struct {
	calls atomic.Int64
	err   error
}

func (p *fakeProvider) GetSubject(_ context.Context, id string) (types.SubjectSnapshot, error) {
	p.calls.Add(1)
	if p.err != nil {
		return types.SubjectSnapshot{}, p.err
	}
	return types.SubjectSnapshot{
		Task: types.Task{ID: id, Title: "Write report", Status: types.TaskStatusInProgress},
	}, nil
}

// fakeGenerator returns reply, or err, or, when gate is set, whatever is sent on gate.
type fakeGenerator struct {
	calls   atomic.Int64
	reply   string
	err     error
	gate    chan string
	started chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, _, _ string) (string, error) {
	g.calls.Add(1)
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.err != nil {
		return "", g.err
	}
	if g.gate != nil {
		select {
		case r := <-g.gate:
			return r, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, nil
}

func newGatedGenerator() *fakeGenerator {
	return &fakeGenerator{gate: make(chan string), started: make(chan struct{}, 8)}
}

func newTestOrchestrator(p SubjectProvider, g llm.TextGenerator, clock *fakeClock, mutate ...func(*Options)) *Orchestrator {
	opts := Options{ModelID: "test-model", Now: clock.Now}
	for _, m := range mutate {
		m(&opts)
	}
	return New(p, g, opts)
}

func waitStarted(t *testing.T, g *fakeGenerator) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(2 * time.Second):
		t.Fatal("generator was not called")
	}
}

type execResult struct {
	res types.AnalysisResult
	err error
}

func executeAsync(o *Orchestrator, ctx context.Context, id string) <-chan execResult {
	ch := make(chan execResult, 1)
	go func() {
		res, err := o.ExecuteAnalysis(ctx, id)
		ch <- execResult{res, err}
	}()
	return ch
}

func receive(t *testing.T, ch <-chan execResult) execResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("ExecuteAnalysis did not return")
		return execResult{}
	}
}

func TestExecuteAnalysis_EndToEnd(t *testing.T) {
	gen := &fakeGenerator{reply: okReply}
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock())

	res, err := o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)

	assert.Equal(t, types.AnalysisResult{
		StatusSummary:      "ok",
		NextSteps:          "go",
		RiskLevel:          types.RiskHigh,
		IntelligentActions: []types.IntelligentAction{},
	}, res)

	outcome, ok := o.Outcome("T1")
	require.True(t, ok)
	assert.Equal(t, llm.TierParsed, outcome.Tier)
	assert.Equal(t, StateCached, o.State("T1"))
}

func TestExecuteAnalysis_CoalescesConcurrentCalls(t *testing.T) {
	gen := newGatedGenerator()
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock())

	first := executeAsync(o, context.Background(), "T1")
	waitStarted(t, gen)

	second := executeAsync(o, context.Background(), "T1")
	require.Eventually(t, func() bool { return o.Stats().CoalescedWaits == 1 }, 2*time.Second, 5*time.Millisecond)

	gen.gate <- okReply

	r1, r2 := receive(t, first), receive(t, second)
	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	assert.Equal(t, r1.res, r2.res)
	assert.Equal(t, "ok", r1.res.StatusSummary)
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestExecuteAnalysis_ClearMidFlightDiscardsResult(t *testing.T) {
	gen := newGatedGenerator()
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock())

	pending := executeAsync(o, context.Background(), "T1")
	waitStarted(t, gen)

	o.ClearAnalysis("T1")
	gen.gate <- `{"statusSummary":"old"}`

	// The waiting caller sees its flight go stale and starts a new one.
	waitStarted(t, gen)
	gen.gate <- `{"statusSummary":"new"}`

	r := receive(t, pending)
	require.NoError(t, r.err)
	assert.Equal(t, "new", r.res.StatusSummary)

	res, err := o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "new", res.StatusSummary)

	stats := o.Stats()
	assert.EqualValues(t, 2, stats.ExternalCalls)
	assert.EqualValues(t, 1, stats.StaleResults)
	assert.EqualValues(t, 1, stats.CacheHits)
	assert.EqualValues(t, 1, o.Generation("T1"))
}

func TestExecuteAnalysis_StaleResolutionAfterNewResultIsIgnored(t *testing.T) {
	gen := newGatedGenerator()
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock())

	// The first caller gives up; its flight keeps running.
	ctx, cancel := context.WithCancel(context.Background())
	abandoned := executeAsync(o, ctx, "T1")
	waitStarted(t, gen)
	cancel()
	assert.ErrorIs(t, receive(t, abandoned).err, context.Canceled)

	o.ClearAnalysis("T1")

	fresh := executeAsync(o, context.Background(), "T1")
	waitStarted(t, gen)

	gen.gate <- `{"statusSummary":"A"}`
	gen.gate <- `{"statusSummary":"B"}`

	r := receive(t, fresh)
	require.NoError(t, r.err)

	require.Eventually(t, func() bool { return o.Stats().StaleResults == 1 }, 2*time.Second, 5*time.Millisecond)

	res, err := o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, r.res.StatusSummary, res.StatusSummary, "only the current generation is cached")
}

func TestExecuteAnalysis_CacheTTL(t *testing.T) {
	clock := newFakeClock()
	provider := &fakeProvider{}
	gen := &fakeGenerator{reply: okReply}
	o := newTestOrchestrator(provider, gen, clock)

	for i := 0; i < 3; i++ {
		_, err := o.ExecuteAnalysis(context.Background(), "T1")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, gen.calls.Load())
	assert.EqualValues(t, 2, o.Stats().CacheHits)

	clock.Advance(9 * time.Minute)
	_, err := o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen.calls.Load())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, StateIdle, o.State("T1"))
	_, err = o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, gen.calls.Load())
	assert.EqualValues(t, 2, provider.calls.Load(), "context cache expired as well")
}

func TestExecuteAnalysis_ContextCacheOutlivesResult(t *testing.T) {
	clock := newFakeClock()
	provider := &fakeProvider{}
	gen := &fakeGenerator{reply: okReply}
	o := newTestOrchestrator(provider, gen, clock, func(opts *Options) {
		opts.AnalysisTTL = time.Minute
		opts.ContextTTL = 10 * time.Minute
	})

	_, err := o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, err = o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)

	assert.EqualValues(t, 2, gen.calls.Load())
	assert.EqualValues(t, 1, provider.calls.Load())

	o.ClearAnalysis("T1")
	_, err = o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, provider.calls.Load(), "clearing drops the context cache")
}

func TestExecuteAnalysis_ManualTrigger(t *testing.T) {
	gen := &fakeGenerator{reply: okReply}
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock(), func(opts *Options) {
		opts.ManualTrigger = true
	})

	assert.False(t, o.Trigger("T1"), "nothing to trigger yet")

	pending := executeAsync(o, context.Background(), "T1")
	require.Eventually(t, func() bool { return o.State("T1") == StateContextReady }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, gen.calls.Load())

	assert.True(t, o.Trigger("T1"))
	r := receive(t, pending)
	require.NoError(t, r.err)
	assert.Equal(t, "ok", r.res.StatusSummary)
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestExecuteAnalysis_ClearAbandonsUntriggeredFlight(t *testing.T) {
	gen := &fakeGenerator{reply: okReply}
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock(), func(opts *Options) {
		opts.ManualTrigger = true
	})

	pending := executeAsync(o, context.Background(), "T1")
	require.Eventually(t, func() bool { return o.State("T1") == StateContextReady }, 2*time.Second, 5*time.Millisecond)

	o.ClearAnalysis("T1")
	require.Eventually(t, func() bool {
		return o.Generation("T1") == 1 && o.State("T1") == StateContextReady
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, o.Trigger("T1"))
	r := receive(t, pending)
	require.NoError(t, r.err)
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestExecuteAnalysis_TransportFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection reset")}
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock())

	res, err := o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, types.RiskMedium, res.RiskLevel)
	assert.Contains(t, res.StatusSummary, "Write report")
	assert.Empty(t, res.IntelligentActions)

	outcome, ok := o.Outcome("T1")
	require.True(t, ok)
	assert.Equal(t, llm.TierFallback, outcome.Tier)

	_, err = o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen.calls.Load(), "fallback results are cached too")
}

type panickingGenerator struct{ calls atomic.Int64 }

func (g *panickingGenerator) Generate(context.Context, string, string) (string, error) {
	g.calls.Add(1)
	panic("backend sdk bug")
}

type panickingProvider struct{}

func (panickingProvider) GetSubject(context.Context, string) (types.SubjectSnapshot, error) {
	panic("nil row")
}

func TestExecuteAnalysis_GeneratorPanicFallsBack(t *testing.T) {
	gen := &panickingGenerator{}
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock())

	first := executeAsync(o, context.Background(), "T1")
	second := executeAsync(o, context.Background(), "T1")

	for _, r := range []execResult{receive(t, first), receive(t, second)} {
		require.NoError(t, r.err)
		assert.Equal(t, types.RiskMedium, r.res.RiskLevel)
		assert.Contains(t, r.res.StatusSummary, "Write report")
	}

	outcome, ok := o.Outcome("T1")
	require.True(t, ok)
	assert.Equal(t, llm.TierFallback, outcome.Tier)
	assert.Equal(t, StateCached, o.State("T1"))
	assert.LessOrEqual(t, gen.calls.Load(), int64(2))
}

func TestExecuteAnalysis_ProviderPanicIsContextError(t *testing.T) {
	o := newTestOrchestrator(panickingProvider{}, &fakeGenerator{reply: okReply}, newFakeClock())

	_, err := o.ExecuteAnalysis(context.Background(), "T1")
	var ctxErr *ContextError
	require.ErrorAs(t, err, &ctxErr)
	assert.Contains(t, ctxErr.Error(), "panicked")
}

func TestExecuteAnalysis_MalformedReplyIsNotAnError(t *testing.T) {
	gen := &fakeGenerator{reply: "Sorry, I think you should review the outline first."}
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock())

	res, err := o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	require.Len(t, res.IntelligentActions, 1)
	assert.Equal(t, types.RiskLow, res.RiskLevel)

	outcome, _ := o.Outcome("T1")
	assert.Equal(t, llm.TierExtracted, outcome.Tier)
}

func TestExecuteAnalysis_SubjectNotFound(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("task T9: %w", ErrSubjectNotFound)}
	gen := &fakeGenerator{reply: okReply}
	o := newTestOrchestrator(provider, gen, newFakeClock())

	_, err := o.ExecuteAnalysis(context.Background(), "T9")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	var ctxErr *ContextError
	require.ErrorAs(t, err, &ctxErr)
	assert.Equal(t, "T9", ctxErr.SubjectID)
	assert.Equal(t, StateContextError, o.State("T9"))
	assert.Zero(t, gen.calls.Load())

	_, err = o.ExecuteAnalysis(context.Background(), "T9")
	require.Error(t, err)
	assert.EqualValues(t, 2, provider.calls.Load(), "errors are not cached")
}

func TestExecuteAnalysis_ProviderFailureIsContextError(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{err: errors.New("connection refused")}, &fakeGenerator{reply: okReply}, newFakeClock())

	_, err := o.ExecuteAnalysis(context.Background(), "T1")
	var ctxErr *ContextError
	require.ErrorAs(t, err, &ctxErr)
	assert.NotErrorIs(t, err, ErrSubjectNotFound)
}

func TestExecuteAnalysis_CallerCancellationKeepsFlight(t *testing.T) {
	gen := newGatedGenerator()
	o := newTestOrchestrator(&fakeProvider{}, gen, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	pending := executeAsync(o, ctx, "T1")
	waitStarted(t, gen)
	cancel()
	assert.ErrorIs(t, receive(t, pending).err, context.Canceled)

	gen.gate <- okReply
	require.Eventually(t, func() bool { return o.State("T1") == StateCached }, 2*time.Second, 5*time.Millisecond)

	res, err := o.ExecuteAnalysis(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.StatusSummary)
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestBuildContext(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	snap := types.SubjectSnapshot{
		Task: types.Task{ID: "T1", Title: "Launch"},
		Subtasks: []types.Task{
			{Status: types.TaskStatusCompleted},
			{Status: types.TaskStatusPending},
			{Status: types.TaskStatusCompleted},
			{Status: types.TaskStatusInProgress},
		},
		Activities: []types.UserActivity{
			{Content: "oldest", CreatedAt: now.Add(-3 * time.Hour)},
			{Content: "newest", CreatedAt: now.Add(-time.Minute)},
			{Content: "middle", CreatedAt: now.Add(-time.Hour)},
		},
		BlockingCount:  2,
		DependentCount: 1,
	}
	trends := []types.Trend{{Metric: "completed", Direction: types.TrendIncreasing}}

	actx := BuildContext(snap, trends, 2, now)

	assert.Equal(t, 4, actx.SubtaskCount)
	assert.Equal(t, 2, actx.SubtasksCompleted)
	assert.InDelta(t, 0.5, actx.CompletionRatio, 1e-9)
	require.Len(t, actx.RecentActivity, 2)
	assert.Equal(t, "newest", actx.RecentActivity[0].Content)
	assert.Equal(t, "middle", actx.RecentActivity[1].Content)
	assert.Equal(t, 2, actx.BlockingCount)
	assert.Equal(t, trends, actx.Trends)
	assert.Equal(t, now, actx.BuiltAt)
	assert.Equal(t, "oldest", snap.Activities[0].Content, "snapshot is not reordered")
}
