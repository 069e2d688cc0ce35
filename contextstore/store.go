// Package contextstore holds the bounded set of contextual data points
// collected for one user. Points are deduplicated by ID, capped at a
// configured maximum (oldest dropped first) and swept once they expire.
package contextstore

import (
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"clementus360/task-insights/types"
)

const DefaultMaxDataPoints = 500

type Options struct {
	// MaxDataPoints caps the store; zero means DefaultMaxDataPoints.
	MaxDataPoints int
	// Retention stamps ExpiresAt on points inserted without one. Zero disables it.
	Retention time.Duration
}

type entry struct {
	point types.ContextualDataPoint
	seq   uint64
}

// Store is safe for concurrent use: one writer at a time, many readers.
type Store struct {
	mu      sync.RWMutex
	entries []entry
	ids     map[string]struct{}
	nextSeq uint64
	max     int
	ttl     time.Duration
}

func New(opts Options) *Store {
	limit := opts.MaxDataPoints
	if limit <= 0 {
		limit = DefaultMaxDataPoints
	}
	return &Store{
		ids: make(map[string]struct{}),
		max: limit,
		ttl: opts.Retention,
	}
}

// Insert adds points whose ID is not already stored and returns how many were added.
// When the cap is exceeded the store keeps only the newest points by timestamp.
func (s *Store) Insert(points ...types.ContextualDataPoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, p := range points {
		if p.ID == "" {
			continue
		}
		if _, exists := s.ids[p.ID]; exists {
			continue
		}
		p = s.sanitize(p)
		s.entries = append(s.entries, entry{point: p, seq: s.nextSeq})
		s.ids[p.ID] = struct{}{}
		s.nextSeq++
		added++
	}

	if len(s.entries) > s.max {
		slices.SortStableFunc(s.entries, byTimestampDesc)
		for _, e := range s.entries[s.max:] {
			delete(s.ids, e.point.ID)
		}
		s.entries = slices.Clip(s.entries[:s.max])
	}

	return added
}

// Query returns a new slice of points matching the filter. The store is not modified.
func (s *Store) Query(filter types.QueryFilter) []types.ContextualDataPoint {
	s.mu.RLock()
	matched := make([]entry, 0, len(s.entries))
	for _, e := range s.entries {
		if matches(e.point, filter) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	switch filter.SortBy {
	case types.SortByRelevance:
		slices.SortStableFunc(matched, byRelevanceDesc)
	default:
		slices.SortStableFunc(matched, byTimestampDesc)
	}

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]types.ContextualDataPoint, len(matched))
	for i, e := range matched {
		out[i] = clonePoint(e.point)
	}
	return out
}

// SweepExpired removes every point whose ExpiresAt is at or before now.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.point.ExpiresAt != nil && !e.point.ExpiresAt.After(now) {
			delete(s.ids, e.point.ID)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	return removed
}

func (s *Store) Get(id string) (types.ContextualDataPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.point.ID == id {
			return clonePoint(e.point), true
		}
	}
	return types.ContextualDataPoint{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) sanitize(p types.ContextualDataPoint) types.ContextualDataPoint {
	p = clonePoint(p)
	p.RelevanceScore = clampUnit(p.RelevanceScore)
	p.Metadata.Confidence = clampUnit(p.Metadata.Confidence)
	if p.ExpiresAt == nil && s.ttl > 0 && !p.Timestamp.IsZero() {
		expires := p.Timestamp.Add(s.ttl)
		p.ExpiresAt = &expires
	}
	return p
}

// clonePoint copies everything a point shares by reference, so neither the
// inserting caller nor a reader can reach stored state.
func clonePoint(p types.ContextualDataPoint) types.ContextualDataPoint {
	p.Payload.Metrics = maps.Clone(p.Payload.Metrics)
	p.Payload.Labels = maps.Clone(p.Payload.Labels)
	p.Metadata.DataSources = slices.Clone(p.Metadata.DataSources)
	if p.ExpiresAt != nil {
		expires := *p.ExpiresAt
		p.ExpiresAt = &expires
	}
	if p.Metadata.ProcessingTimeMs != nil {
		ms := *p.Metadata.ProcessingTimeMs
		p.Metadata.ProcessingTimeMs = &ms
	}
	return p
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func matches(p types.ContextualDataPoint, f types.QueryFilter) bool {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, p.Kind) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, p.Category) {
		return false
	}
	if f.Range != nil && !f.Range.Contains(p.Timestamp) {
		return false
	}
	return p.RelevanceScore >= f.MinRelevance
}

// Ties on the sort key fall back to insertion order, newest insertion first.
func byTimestampDesc(a, b entry) int {
	if c := b.point.Timestamp.Compare(a.point.Timestamp); c != 0 {
		return c
	}
	return compareSeqDesc(a, b)
}

func byRelevanceDesc(a, b entry) int {
	switch {
	case a.point.RelevanceScore > b.point.RelevanceScore:
		return -1
	case a.point.RelevanceScore < b.point.RelevanceScore:
		return 1
	}
	return byTimestampDesc(a, b)
}

func compareSeqDesc(a, b entry) int {
	switch {
	case a.seq > b.seq:
		return -1
	case a.seq < b.seq:
		return 1
	}
	return 0
}
