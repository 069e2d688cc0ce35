package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"clementus360/task-insights/config"
	"clementus360/task-insights/llm"
	"clementus360/task-insights/types"

	"github.com/sirupsen/logrus"
)

// State is where a subject sits in the analysis cycle.
type State string

const (
	StateIdle             State = "idle"
	StateContextLoading   State = "context_loading"
	StateContextReady     State = "context_ready"
	StateContextError     State = "context_error"
	StateLLMInFlight      State = "llm_in_flight"
	StateParseAndValidate State = "parse_and_validate"
	StateTransportFailed  State = "transport_failed"
	StateCached           State = "cached"
)

type Options struct {
	ModelID             string
	AnalysisTTL         time.Duration
	ContextTTL          time.Duration
	ManualTrigger       bool
	CallTimeout         time.Duration
	MaxRecentActivities int
	MaxPromptTokens     int
	Now                 func() time.Time
	Parser              *llm.ResponseParser
	// Trends supplies the owner's latest trends for the prompt; may be nil.
	Trends  func() []types.Trend
	Metrics *Metrics
}

func (o Options) withDefaults() Options {
	d := config.DefaultEngineConfig
	if o.ModelID == "" {
		o.ModelID = d.Model
	}
	if o.AnalysisTTL <= 0 {
		o.AnalysisTTL = d.AnalysisTTL
	}
	if o.ContextTTL <= 0 {
		o.ContextTTL = d.ContextTTL
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.MaxRecentActivities <= 0 {
		o.MaxRecentActivities = d.MaxRecentActivities
	}
	if o.MaxPromptTokens <= 0 {
		o.MaxPromptTokens = d.MaxPromptTokens
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Parser == nil {
		o.Parser = llm.NewResponseParser(llm.ExtractionConfig{Verbs: d.ExtractionVerbs})
	}
	if o.Metrics == nil {
		o.Metrics = NewMetrics()
	}
	return o
}

// Outcome records how the latest current-generation analysis was produced.
type Outcome struct {
	Tier       llm.Tier  `json:"tier"`
	Generation uint64    `json:"generation"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type Stats struct {
	ExternalCalls  int64 `json:"external_calls"`
	CoalescedWaits int64 `json:"coalesced_waits"`
	CacheHits      int64 `json:"cache_hits"`
	StaleResults   int64 `json:"stale_results"`
}

type flightKey struct {
	subjectID  string
	modelID    string
	generation uint64
}

// flight is one analysis cycle shared by every caller of the same key.
type flight struct {
	done        chan struct{}
	trigger     chan struct{}
	triggerOnce sync.Once
	abandon     chan struct{}
	abandonOnce sync.Once

	result types.AnalysisResult
	err    error
}

func newFlight() *flight {
	return &flight{
		done:    make(chan struct{}),
		trigger: make(chan struct{}),
		abandon: make(chan struct{}),
	}
}

func (f *flight) release() bool {
	released := false
	f.triggerOnce.Do(func() {
		close(f.trigger)
		released = true
	})
	return released
}

func (f *flight) drop() {
	f.abandonOnce.Do(func() { close(f.abandon) })
}

type cachedResult struct {
	result     types.AnalysisResult
	generation uint64
	expiresAt  time.Time
}

type cachedContext struct {
	actx       types.AnalysisContext
	generation uint64
	expiresAt  time.Time
}

type subjectState struct {
	generation uint64
	state      State
	result     *cachedResult
	context    *cachedContext
	outcome    *Outcome
}

// Orchestrator runs analysis cycles: it coalesces concurrent requests,
// caches results per generation and recovers every reply into a result.
type Orchestrator struct {
	provider  SubjectProvider
	generator llm.TextGenerator
	opts      Options

	mu       sync.Mutex
	subjects map[string]*subjectState
	flights  map[flightKey]*flight

	externalCalls  atomic.Int64
	coalescedWaits atomic.Int64
	cacheHits      atomic.Int64
	staleResults   atomic.Int64
}

func New(provider SubjectProvider, generator llm.TextGenerator, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	if opts.Parser.Repairer != nil && opts.Parser.Repairer.OnStep == nil {
		metrics := opts.Metrics
		opts.Parser.Repairer.OnStep = func(step int, _ string) {
			metrics.RepairSteps.WithLabelValues(strconv.Itoa(step)).Inc()
		}
	}
	return &Orchestrator{
		provider:  provider,
		generator: generator,
		opts:      opts,
		subjects:  make(map[string]*subjectState),
		flights:   make(map[flightKey]*flight),
	}
}

// must hold o.mu
func (o *Orchestrator) subject(id string) *subjectState {
	s, ok := o.subjects[id]
	if !ok {
		s = &subjectState{state: StateIdle}
		o.subjects[id] = s
	}
	return s
}

// ExecuteAnalysis returns the analysis for subjectID. A fresh cached result is
// served directly; otherwise the caller joins the flight for the current
// generation, starting one if none exists. The only errors are a
// *ContextError and the caller's own ctx error.
func (o *Orchestrator) ExecuteAnalysis(ctx context.Context, subjectID string) (types.AnalysisResult, error) {
	for {
		o.mu.Lock()
		s := o.subject(subjectID)
		if c := s.result; c != nil && c.generation == s.generation {
			if o.opts.Now().Before(c.expiresAt) {
				o.mu.Unlock()
				o.cacheHits.Add(1)
				o.opts.Metrics.CacheLookups.WithLabelValues("hit").Inc()
				return c.result, nil
			}
			s.result = nil
			if s.state == StateCached {
				s.state = StateIdle
			}
		}

		key := flightKey{subjectID: subjectID, modelID: o.opts.ModelID, generation: s.generation}
		f, inFlight := o.flights[key]
		if inFlight {
			o.coalescedWaits.Add(1)
			o.opts.Metrics.CoalescedWaits.Inc()
		} else {
			o.opts.Metrics.CacheLookups.WithLabelValues("miss").Inc()
			f = newFlight()
			o.flights[key] = f
			go o.run(key, f)
		}
		o.mu.Unlock()

		select {
		case <-f.done:
		case <-ctx.Done():
			return types.AnalysisResult{}, ctx.Err()
		}

		if o.Generation(subjectID) != key.generation {
			// Superseded by ClearAnalysis while we waited; start over.
			continue
		}
		if f.err != nil {
			return types.AnalysisResult{}, f.err
		}
		return f.result, nil
	}
}

// ClearAnalysis invalidates every cached or in-flight result for subjectID.
// A call already made is allowed to finish but its result is discarded.
func (o *Orchestrator) ClearAnalysis(subjectID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.subject(subjectID)
	s.generation++
	s.result = nil
	s.context = nil
	s.outcome = nil
	s.state = StateIdle

	for key, f := range o.flights {
		if key.subjectID == subjectID && key.generation < s.generation {
			f.drop()
		}
	}

	config.Logger.WithFields(logrus.Fields{
		"subject_id": subjectID,
		"generation": s.generation,
	}).Debug("Analysis cleared")
}

// Trigger releases the current flight for subjectID when the orchestrator runs
// in manual-trigger mode. It reports whether a waiting flight was released.
func (o *Orchestrator) Trigger(subjectID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.subject(subjectID)
	f, ok := o.flights[flightKey{subjectID: subjectID, modelID: o.opts.ModelID, generation: s.generation}]
	if !ok {
		return false
	}
	return f.release()
}

func (o *Orchestrator) State(subjectID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.subjects[subjectID]
	if !ok {
		return StateIdle
	}
	if s.state == StateCached && (s.result == nil || !o.opts.Now().Before(s.result.expiresAt)) {
		return StateIdle
	}
	return s.state
}

// Outcome reports how the current generation's result was produced.
func (o *Orchestrator) Outcome(subjectID string) (Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.subjects[subjectID]
	if !ok || s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}

func (o *Orchestrator) Generation(subjectID string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.subjects[subjectID]; ok {
		return s.generation
	}
	return 0
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		ExternalCalls:  o.externalCalls.Load(),
		CoalescedWaits: o.coalescedWaits.Load(),
		CacheHits:      o.cacheHits.Load(),
		StaleResults:   o.staleResults.Load(),
	}
}

// setState only moves subjects whose generation still matches the flight.
func (o *Orchestrator) setState(key flightKey, state State) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s := o.subject(key.subjectID); s.generation == key.generation {
		s.state = state
	}
}

// run executes one flight on a background context so that a caller giving up
// does not cancel the work other callers are waiting on.
func (o *Orchestrator) run(key flightKey, f *flight) {
	defer func() {
		o.mu.Lock()
		delete(o.flights, key)
		o.mu.Unlock()
		close(f.done)
	}()

	log := config.Logger.WithFields(logrus.Fields{
		"subject_id": key.subjectID,
		"model":      key.modelID,
		"generation": key.generation,
	})

	o.setState(key, StateContextLoading)
	actx, err := o.loadContext(key)
	if err != nil {
		o.setState(key, StateContextError)
		o.opts.Metrics.ContextErrors.Inc()
		log.WithError(err).Warn("Analysis context unavailable")
		f.err = &ContextError{SubjectID: key.subjectID, Err: err}
		return
	}
	o.setState(key, StateContextReady)

	if o.opts.ManualTrigger {
		log.Debug("Analysis waiting for trigger")
		select {
		case <-f.trigger:
		case <-f.abandon:
			log.Debug("Analysis abandoned before trigger")
			return
		}
	}

	o.setState(key, StateLLMInFlight)
	o.externalCalls.Add(1)
	o.opts.Metrics.ExternalCalls.Inc()

	system, user := llm.BuildAnalysisPrompt(llm.TrimContextForTokens(actx, o.opts.MaxPromptTokens))

	callCtx, cancel := context.WithTimeout(context.Background(), o.opts.CallTimeout)
	started := time.Now()
	raw, err := o.generate(callCtx, system, user)
	cancel()
	o.opts.Metrics.CallDuration.Observe(time.Since(started).Seconds())

	var (
		result types.AnalysisResult
		tier   llm.Tier
	)
	if err == nil {
		o.setState(key, StateParseAndValidate)
		result, tier, err = o.parse(raw)
	}
	if err != nil {
		o.setState(key, StateTransportFailed)
		log.Warn("Text generation failed, using fallback response:", err)
		result, tier = o.opts.Parser.Placeholders.Fallback(actx.Task.Title), llm.TierFallback
	}
	o.opts.Metrics.Resolutions.WithLabelValues(string(tier)).Inc()
	f.result = result

	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.subject(key.subjectID)
	if s.generation != key.generation {
		o.staleResults.Add(1)
		o.opts.Metrics.StaleResults.Inc()
		log.WithField("tier", tier).Debug("Discarding stale analysis result")
		return
	}

	now := o.opts.Now()
	s.result = &cachedResult{result: result, generation: key.generation, expiresAt: now.Add(o.opts.AnalysisTTL)}
	s.outcome = &Outcome{Tier: tier, Generation: key.generation, ResolvedAt: now}
	s.state = StateCached
	log.WithField("tier", tier).Info("Analysis cached")
}

// loadContext serves the context cache or asks the provider for a new snapshot.
func (o *Orchestrator) loadContext(key flightKey) (types.AnalysisContext, error) {
	now := o.opts.Now()

	o.mu.Lock()
	s := o.subject(key.subjectID)
	if c := s.context; c != nil && c.generation == key.generation && now.Before(c.expiresAt) {
		actx := c.actx
		o.mu.Unlock()
		return actx, nil
	}
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), o.opts.CallTimeout)
	defer cancel()

	snap, err := o.getSubject(ctx, key.subjectID)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return types.AnalysisContext{}, err
		}
		return types.AnalysisContext{}, fmt.Errorf("subject data unavailable: %w", err)
	}

	var trends []types.Trend
	if o.opts.Trends != nil {
		trends = o.opts.Trends()
	}
	actx := BuildContext(snap, trends, o.opts.MaxRecentActivities, now)

	o.mu.Lock()
	if s := o.subject(key.subjectID); s.generation == key.generation {
		s.context = &cachedContext{actx: actx, generation: key.generation, expiresAt: now.Add(o.opts.ContextTTL)}
	}
	o.mu.Unlock()

	return actx, nil
}

// generate, parse and getSubject turn a panic in a collaborator into an error
// so the flight still resolves and its waiters are released.
func (o *Orchestrator) generate(ctx context.Context, system, user string) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text generator panicked: %v", r)
		}
	}()
	return o.generator.Generate(ctx, system, user)
}

func (o *Orchestrator) parse(raw string) (result types.AnalysisResult, tier llm.Tier, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("response parser panicked: %v", r)
		}
	}()
	result, tier = o.opts.Parser.Parse(raw)
	return result, tier, nil
}

func (o *Orchestrator) getSubject(ctx context.Context, id string) (snap types.SubjectSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subject provider panicked: %v", r)
		}
	}()
	return o.provider.GetSubject(ctx, id)
}
