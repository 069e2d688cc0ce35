// Package insights wires the context store, aggregation, pattern recording,
// background collection and the analysis orchestrator into one engine per user.
package insights

import (
	"context"
	"time"

	"clementus360/task-insights/aggregation"
	"clementus360/task-insights/analysis"
	"clementus360/task-insights/collector"
	"clementus360/task-insights/config"
	"clementus360/task-insights/contextstore"
	"clementus360/task-insights/llm"
	"clementus360/task-insights/patterns"
	"clementus360/task-insights/types"
)

type Options struct {
	Config    types.EngineConfig
	Provider  analysis.SubjectProvider
	Generator llm.TextGenerator
	// Sources feed the collector; nil means only the temporal source.
	Sources []collector.Source
	// OnAggregate receives every scheduled aggregation snapshot.
	OnAggregate func(map[types.DataKind]types.AggregationResult)
	Now         func() time.Time
}

type Engine struct {
	cfg          types.EngineConfig
	now          func() time.Time
	store        *contextstore.Store
	aggregator   *aggregation.Engine
	recorder     *patterns.Recorder
	collector    *collector.Collector
	orchestrator *analysis.Orchestrator
}

func New(opts Options) *Engine {
	cfg := opts.Config
	config.ApplyDefaults(&cfg)

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	sources := opts.Sources
	if sources == nil {
		sources = []collector.Source{collector.TemporalSource{}}
	}

	store := contextstore.New(contextstore.Options{
		MaxDataPoints: cfg.MaxDataPoints,
		Retention:     time.Duration(cfg.RetentionHours) * time.Hour,
	})
	aggregator := aggregation.NewEngine(store)
	coll := collector.New(store, aggregator, sources, collector.Options{
		Config:      cfg,
		Now:         now,
		OnAggregate: opts.OnAggregate,
	})

	orchestrator := analysis.New(opts.Provider, opts.Generator, analysis.Options{
		ModelID:             cfg.Model,
		AnalysisTTL:         cfg.AnalysisTTL,
		ContextTTL:          cfg.ContextTTL,
		ManualTrigger:       cfg.ManualTrigger,
		CallTimeout:         cfg.CallTimeout,
		MaxRecentActivities: cfg.MaxRecentActivities,
		MaxPromptTokens:     cfg.MaxPromptTokens,
		Now:                 now,
		Parser:              llm.NewResponseParser(llm.ExtractionConfig{Verbs: cfg.ExtractionVerbs}),
		Trends:              coll.LatestTrends,
	})

	return &Engine{
		cfg:          cfg,
		now:          now,
		store:        store,
		aggregator:   aggregator,
		recorder:     patterns.NewRecorder(store, now),
		collector:    coll,
		orchestrator: orchestrator,
	}
}

func (e *Engine) Config() types.EngineConfig { return e.cfg }

// Start begins background collection and aggregation.
func (e *Engine) Start() error { return e.collector.Start() }

func (e *Engine) Stop() { e.collector.Stop() }

// Collect runs one collection cycle and returns the number of new points.
func (e *Engine) Collect(ctx context.Context, req collector.Request) (int, error) {
	return e.collector.Collect(ctx, req)
}

func (e *Engine) Query(filter types.QueryFilter) []types.ContextualDataPoint {
	return e.store.Query(filter)
}

func (e *Engine) Aggregate(kind types.DataKind, window types.TimeRange) types.AggregationResult {
	return e.aggregator.Aggregate(kind, window)
}

func (e *Engine) AggregateRecent(kind types.DataKind, d time.Duration) types.AggregationResult {
	return e.aggregator.AggregateRecent(kind, d, e.now())
}

// LatestAggregation is the snapshot from the last scheduled aggregation pass.
func (e *Engine) LatestAggregation() map[types.DataKind]types.AggregationResult {
	return e.collector.Latest()
}

func (e *Engine) Recorder() *patterns.Recorder { return e.recorder }

func (e *Engine) ExecuteAnalysis(ctx context.Context, subjectID string) (types.AnalysisResult, error) {
	return e.orchestrator.ExecuteAnalysis(ctx, subjectID)
}

func (e *Engine) ClearAnalysis(subjectID string) { e.orchestrator.ClearAnalysis(subjectID) }

func (e *Engine) Trigger(subjectID string) bool { return e.orchestrator.Trigger(subjectID) }

func (e *Engine) AnalysisState(subjectID string) analysis.State {
	return e.orchestrator.State(subjectID)
}

func (e *Engine) AnalysisOutcome(subjectID string) (analysis.Outcome, bool) {
	return e.orchestrator.Outcome(subjectID)
}

func (e *Engine) Stats() analysis.Stats { return e.orchestrator.Stats() }

// StoreSize is the number of data points currently held.
func (e *Engine) StoreSize() int { return e.store.Len() }

// Generation is the subject's current invalidation counter.
func (e *Engine) Generation(subjectID string) uint64 {
	return e.orchestrator.Generation(subjectID)
}
