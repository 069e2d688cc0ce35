package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"clementus360/task-insights/config"
	"clementus360/task-insights/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrCollectionInFlight is returned when a cycle is requested while another one runs.
var ErrCollectionInFlight = errors.New("collection already in flight")

// Request carries optional hints for one collection cycle.
type Request struct {
	UserID string `json:"user_id,omitempty"`
	TaskID string `json:"task_id,omitempty"`
}

// Source produces data points of a single kind.
type Source interface {
	Name() string
	Kind() types.DataKind
	Collect(ctx context.Context, req Request, now time.Time) ([]types.ContextualDataPoint, error)
}

type Store interface {
	Insert(points ...types.ContextualDataPoint) int
	SweepExpired(now time.Time) int
}

type Aggregator interface {
	AggregateRecent(kind types.DataKind, d time.Duration, now time.Time) types.AggregationResult
}

type Options struct {
	Config types.EngineConfig
	Now    func() time.Time
	// AggregationWindow is how far back each aggregation pass looks.
	AggregationWindow time.Duration
	// OnAggregate, when set, receives every fresh aggregation snapshot.
	OnAggregate func(map[types.DataKind]types.AggregationResult)
}

// Collector runs collection cycles against its sources and keeps the latest
// aggregation per kind. At most one cycle runs at a time.
type Collector struct {
	store       Store
	aggregator  Aggregator
	sources     []Source
	cfg         types.EngineConfig
	now         func() time.Time
	window      time.Duration
	onAggregate func(map[types.DataKind]types.AggregationResult)

	inFlight atomic.Bool

	mu     sync.RWMutex
	latest map[types.DataKind]types.AggregationResult

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func New(store Store, aggregator Aggregator, sources []Source, opts Options) *Collector {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AggregationWindow <= 0 {
		opts.AggregationWindow = 24 * time.Hour
	}
	config.ApplyDefaults(&opts.Config)

	return &Collector{
		store:       store,
		aggregator:  aggregator,
		sources:     sources,
		cfg:         opts.Config,
		now:         opts.Now,
		window:      opts.AggregationWindow,
		onAggregate: opts.OnAggregate,
		latest:      make(map[types.DataKind]types.AggregationResult),
	}
}

// Collect runs one cycle and returns the number of new points stored.
// Sources that fail are logged and skipped.
func (c *Collector) Collect(ctx context.Context, req Request) (int, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return 0, ErrCollectionInFlight
	}
	defer c.inFlight.Store(false)

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := c.now()
	var points []types.ContextualDataPoint
	for _, src := range c.sources {
		if !c.cfg.CollectionEnabled(src.Kind()) {
			continue
		}

		collected, err := src.Collect(ctx, req, now)
		if err != nil {
			config.Logger.WithFields(logrus.Fields{
				"source": src.Name(),
				"kind":   src.Kind(),
			}).Warn("Collection source failed:", err)
			continue
		}

		for _, p := range collected {
			if p.RelevanceScore < c.cfg.MinRelevanceScore {
				continue
			}
			points = append(points, c.complete(p, src, now))
		}
	}

	added := c.store.Insert(points...)
	swept := c.store.SweepExpired(now)

	config.Logger.WithFields(logrus.Fields{
		"collected": len(points),
		"added":     added,
		"expired":   swept,
	}).Debug("Collection cycle finished")

	return added, nil
}

func (c *Collector) complete(p types.ContextualDataPoint, src Source, now time.Time) types.ContextualDataPoint {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Kind == "" {
		p.Kind = src.Kind()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = now
	}
	if p.Source == "" {
		p.Source = src.Name()
	}
	if p.Category == "" {
		p.Category = types.CategoryRealTime
	}
	if p.Metadata.CollectionMethod == "" {
		p.Metadata.CollectionMethod = types.CollectionAutomatic
	}
	return p
}

// Aggregate refreshes the latest aggregation of every enabled kind.
func (c *Collector) Aggregate() map[types.DataKind]types.AggregationResult {
	now := c.now()
	results := make(map[types.DataKind]types.AggregationResult, len(types.AllKinds))
	for _, kind := range types.AllKinds {
		if !c.cfg.CollectionEnabled(kind) {
			continue
		}
		results[kind] = c.aggregator.AggregateRecent(kind, c.window, now)
	}

	c.mu.Lock()
	c.latest = results
	c.mu.Unlock()

	if c.onAggregate != nil {
		c.onAggregate(results)
	}
	return results
}

// Latest returns the aggregation produced by the last Aggregate call.
func (c *Collector) Latest() map[types.DataKind]types.AggregationResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[types.DataKind]types.AggregationResult, len(c.latest))
	for k, v := range c.latest {
		out[k] = v
	}
	return out
}

// LatestTrends flattens the latest trends in kind order, naming each metric
// "<kind>.<metric>".
func (c *Collector) LatestTrends() []types.Trend {
	latest := c.Latest()

	var trends []types.Trend
	for _, kind := range types.AllKinds {
		for _, t := range latest[kind].Trends {
			t.Metric = fmt.Sprintf("%s.%s", kind, t.Metric)
			trends = append(trends, t)
		}
	}
	return trends
}

// Start runs an initial cycle and then collects and aggregates on the
// configured intervals until Stop is called.
func (c *Collector) Start() error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.running {
		return fmt.Errorf("collector is already running")
	}
	c.stopCh = make(chan struct{})
	c.running = true

	c.wg.Add(1)
	go c.run(c.stopCh)

	config.Logger.WithFields(logrus.Fields{
		"collection_interval_minutes":  c.cfg.CollectionIntervalMinutes,
		"aggregation_interval_minutes": c.cfg.AggregationIntervalMinutes,
	}).Info("Collector started")
	return nil
}

// Stop signals the loop to exit and waits for in-progress cycles.
func (c *Collector) Stop() {
	c.runMu.Lock()
	if !c.running {
		c.runMu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.runMu.Unlock()

	c.wg.Wait()
	config.Logger.Info("Collector stopped")
}

func (c *Collector) run(stop <-chan struct{}) {
	defer c.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	c.tick(ctx)
	c.Aggregate()

	collectTicker := time.NewTicker(time.Duration(c.cfg.CollectionIntervalMinutes) * time.Minute)
	defer collectTicker.Stop()
	aggregateTicker := time.NewTicker(time.Duration(c.cfg.AggregationIntervalMinutes) * time.Minute)
	defer aggregateTicker.Stop()

	for {
		select {
		case <-collectTicker.C:
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.tick(ctx)
			}()
		case <-aggregateTicker.C:
			c.Aggregate()
		case <-stop:
			return
		}
	}
}

// tick is a timer-driven cycle; a busy collector turns it into a no-op.
func (c *Collector) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			config.Logger.WithField("panic", r).Error("Collection cycle panicked")
		}
	}()

	if _, err := c.Collect(ctx, Request{}); err != nil {
		if errors.Is(err, ErrCollectionInFlight) || errors.Is(err, context.Canceled) {
			return
		}
		config.Logger.Warn("Scheduled collection failed:", err)
	}
}
