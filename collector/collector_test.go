package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"clementus360/task-insights/aggregation"
	"clementus360/task-insights/config"
	"clementus360/task-insights/contextstore"
	"clementus360/task-insights/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC) // a Tuesday

type staticSource struct {
	name   string
	kind   types.DataKind
	points []types.ContextualDataPoint
	err    error
	calls  atomic.Int64
	// entered and release make Collect block until the test lets it go.
	entered chan struct{}
	release chan struct{}
}

func (s *staticSource) Name() string         { return s.name }
func (s *staticSource) Kind() types.DataKind { return s.kind }

func (s *staticSource) Collect(ctx context.Context, _ Request, _ time.Time) ([]types.ContextualDataPoint, error) {
	s.calls.Add(1)
	if s.entered != nil {
		s.entered <- struct{}{}
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.points, s.err
}

func point(id string, relevance float64) types.ContextualDataPoint {
	return types.ContextualDataPoint{
		ID:             id,
		RelevanceScore: relevance,
		Payload:        types.Payload{Metrics: map[string]float64{"sessions": 1}},
	}
}

func newCollector(store *contextstore.Store, sources []Source, mutate ...func(*types.EngineConfig)) *Collector {
	cfg := config.DefaultEngineConfig
	for _, m := range mutate {
		m(&cfg)
	}
	return New(store, aggregation.NewEngine(store), sources, Options{
		Config: cfg,
		Now:    func() time.Time { return now },
	})
}

func TestCollect_StoresRelevantPoints(t *testing.T) {
	store := contextstore.New(contextstore.Options{Retention: time.Hour})
	src := &staticSource{
		name:   "behavior",
		kind:   types.KindUserBehavior,
		points: []types.ContextualDataPoint{point("p1", 0.8), point("p2", 0.05), point("", 0.5)},
	}
	c := newCollector(store, []Source{src})

	added, err := c.Collect(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, added, "the point below the relevance floor is dropped")

	p, ok := store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, types.KindUserBehavior, p.Kind)
	assert.Equal(t, "behavior", p.Source)
	assert.Equal(t, now, p.Timestamp)
	assert.Equal(t, types.CollectionAutomatic, p.Metadata.CollectionMethod)
	require.NotNil(t, p.ExpiresAt)

	added, err = c.Collect(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, added, "known IDs are not stored twice; the ID-less point gets a fresh one")
}

func TestCollect_SkipsDisabledKindsAndFailingSources(t *testing.T) {
	store := contextstore.New(contextstore.Options{})
	disabled := &staticSource{name: "env", kind: types.KindEnvironmental, points: []types.ContextualDataPoint{point("e1", 1)}}
	failing := &staticSource{name: "broken", kind: types.KindTaskPatterns, err: errors.New("db down")}
	ok := &staticSource{name: "behavior", kind: types.KindUserBehavior, points: []types.ContextualDataPoint{point("b1", 1)}}

	c := newCollector(store, []Source{disabled, failing, ok}, func(cfg *types.EngineConfig) {
		cfg.CollectEnvironmental = false
	})

	added, err := c.Collect(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Zero(t, disabled.calls.Load())
	assert.EqualValues(t, 1, failing.calls.Load())
}

func TestCollect_SweepsExpiredPoints(t *testing.T) {
	store := contextstore.New(contextstore.Options{})
	past := now.Add(-time.Minute)
	expired := point("old", 1)
	expired.ExpiresAt = &past
	store.Insert(expired)

	c := newCollector(store, nil)
	_, err := c.Collect(context.Background(), Request{})
	require.NoError(t, err)

	_, found := store.Get("old")
	assert.False(t, found)
}

func TestCollect_InFlightGuard(t *testing.T) {
	store := contextstore.New(contextstore.Options{})
	slow := &staticSource{
		name:    "slow",
		kind:    types.KindUserBehavior,
		points:  []types.ContextualDataPoint{point("s1", 1)},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := newCollector(store, []Source{slow})

	done := make(chan int, 1)
	go func() {
		n, _ := c.Collect(context.Background(), Request{})
		done <- n
	}()
	<-slow.entered

	n, err := c.Collect(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrCollectionInFlight)
	assert.Zero(t, n)

	// A timer tick while busy is a no-op, not a queued retry.
	c.tick(context.Background())
	assert.EqualValues(t, 1, slow.calls.Load())

	close(slow.release)
	assert.Equal(t, 1, <-done)

	slow.entered = nil
	_, err = c.Collect(context.Background(), Request{})
	assert.NoError(t, err, "the guard is released after the cycle")
}

func TestAggregate_ExposesLatestTrends(t *testing.T) {
	store := contextstore.New(contextstore.Options{})
	for i := 0; i < 3; i++ {
		early := point("", 1)
		early.ID = "early" + string(rune('a'+i))
		early.Kind = types.KindUserBehavior
		early.Timestamp = now.Add(-20*time.Hour + time.Duration(i)*time.Hour)
		early.Payload.Metrics = map[string]float64{"focus_minutes": 20}

		late := early
		late.ID = "late" + string(rune('a'+i))
		late.Timestamp = now.Add(-5*time.Hour + time.Duration(i)*time.Hour)
		late.Payload.Metrics = map[string]float64{"focus_minutes": 40}

		store.Insert(early, late)
	}

	c := newCollector(store, nil)
	assert.Empty(t, c.Latest())

	results := c.Aggregate()
	require.Contains(t, results, types.KindUserBehavior)
	assert.Equal(t, 6, results[types.KindUserBehavior].DataPointCount)

	trends := c.LatestTrends()
	require.Len(t, trends, 1)
	assert.Equal(t, "user_behavior.focus_minutes", trends[0].Metric)
	assert.Equal(t, types.TrendIncreasing, trends[0].Direction)
	assert.InDelta(t, 100, trends[0].Magnitude, 1e-9)
}

func TestStartStop(t *testing.T) {
	store := contextstore.New(contextstore.Options{})
	c := newCollector(store, []Source{TemporalSource{}})

	require.NoError(t, c.Start())
	assert.Error(t, c.Start(), "already running")

	require.Eventually(t, func() bool { return store.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(c.Latest()) > 0 }, 2*time.Second, 5*time.Millisecond)

	c.Stop()
	c.Stop()
}

func TestTemporalSource(t *testing.T) {
	points, err := TemporalSource{}.Collect(context.Background(), Request{}, now)
	require.NoError(t, err)
	require.Len(t, points, 1)

	m := points[0].Payload.Metrics
	assert.Equal(t, 10.0, m["hour_of_day"])
	assert.Equal(t, float64(time.Tuesday), m["day_of_week"])
	assert.Equal(t, 0.0, m["is_weekend"])
	assert.Equal(t, 1.0, m["is_working_hours"])
	assert.Equal(t, "morning", points[0].Payload.Labels["time_of_day"])
	assert.Equal(t, types.KindTemporal, points[0].Kind)
}

func TestAggregate_NotifiesHook(t *testing.T) {
	store := contextstore.New(contextstore.Options{})
	var got map[types.DataKind]types.AggregationResult
	c := New(store, aggregation.NewEngine(store), nil, Options{
		Config:      config.DefaultEngineConfig,
		Now:         func() time.Time { return now },
		OnAggregate: func(r map[types.DataKind]types.AggregationResult) { got = r },
	})

	c.Aggregate()
	assert.Len(t, got, len(types.AllKinds))
}
