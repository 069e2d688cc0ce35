package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clementus360/task-insights/collector"
	"clementus360/task-insights/config"
	"clementus360/task-insights/types"
)

// CollectContextHandler runs one collection cycle now.
func (a *API) CollectContextHandler(w http.ResponseWriter, r *http.Request) {
	var req types.CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		config.Logger.Error("Failed to decode collect JSON:", err)
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	engine, userID, ok := a.engine(w, r)
	if !ok {
		return
	}

	n, err := engine.Collect(r.Context(), collector.Request{UserID: userID, TaskID: req.TaskID})
	if err != nil {
		if errors.Is(err, collector.ErrCollectionInFlight) {
			writeError(w, "Collection already running", http.StatusConflict)
			return
		}
		config.Logger.Error("Failed to collect context:", err)
		writeError(w, "Failed to collect context", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, types.CollectResponse{
		Success:   true,
		Collected: n,
		StoreSize: engine.StoreSize(),
	})
}

// GetContextHandler queries stored data points.
//
//	GET /context?kind=temporal,user_behavior&category=real_time&hours=6&min_relevance=0.3&sort_by=relevance&limit=20
func (a *API) GetContextHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseQueryFilter(r, time.Now())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	engine, _, ok := a.engine(w, r)
	if !ok {
		return
	}

	points := engine.Query(filter)
	writeJSON(w, http.StatusOK, types.ContextResponse{
		Success:    true,
		DataPoints: points,
		Total:      len(points),
	})
}

// AggregateContextHandler aggregates the last hours (default 24) for one kind,
// or for every kind when none is given.
func (a *API) AggregateContextHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kinds := types.AllKinds
	if k := q.Get("kind"); k != "" {
		kind, ok := parseKind(k)
		if !ok {
			writeError(w, "Invalid kind", http.StatusBadRequest)
			return
		}
		kinds = []types.DataKind{kind}
	}

	hours := 24.0
	if h := q.Get("hours"); h != "" {
		v, ok := parseHours(h)
		if !ok {
			writeError(w, "Invalid hours value", http.StatusBadRequest)
			return
		}
		hours = v
	}

	engine, _, ok := a.engine(w, r)
	if !ok {
		return
	}

	window := time.Duration(hours * float64(time.Hour))
	results := make(map[types.DataKind]types.AggregationResult, len(kinds))
	for _, kind := range kinds {
		results[kind] = engine.AggregateRecent(kind, window)
	}

	writeJSON(w, http.StatusOK, types.AggregationResponse{Success: true, Aggregations: results})
}

// LatestPatternsHandler returns the snapshot of the last scheduled aggregation.
func (a *API) LatestPatternsHandler(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := a.engine(w, r)
	if !ok {
		return
	}

	latest := engine.LatestAggregation()
	if latest == nil {
		latest = map[types.DataKind]types.AggregationResult{}
	}
	writeJSON(w, http.StatusOK, types.AggregationResponse{Success: true, Aggregations: latest})
}

// maxQueryHours bounds look-back windows to one year.
const maxQueryHours = 24 * 365

func parseHours(v string) (float64, bool) {
	hours, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 || hours > maxQueryHours {
		return 0, false
	}
	return hours, true
}

func parseKind(s string) (types.DataKind, bool) {
	for _, k := range types.AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

func parseQueryFilter(r *http.Request, now time.Time) (types.QueryFilter, error) {
	q := r.URL.Query()
	var filter types.QueryFilter

	if v := q.Get("kind"); v != "" {
		for _, s := range strings.Split(v, ",") {
			kind, ok := parseKind(strings.TrimSpace(s))
			if !ok {
				return filter, errors.New("Invalid kind")
			}
			filter.Kinds = append(filter.Kinds, kind)
		}
	}

	if v := q.Get("category"); v != "" {
		for _, s := range strings.Split(v, ",") {
			switch c := types.Category(strings.TrimSpace(s)); c {
			case types.CategoryRealTime, types.CategoryHistorical, types.CategoryPredictive:
				filter.Categories = append(filter.Categories, c)
			default:
				return filter, errors.New("Invalid category")
			}
		}
	}

	if v := q.Get("hours"); v != "" {
		hours, ok := parseHours(v)
		if !ok {
			return filter, errors.New("Invalid hours value")
		}
		filter.Range = &types.TimeRange{
			Start: now.Add(-time.Duration(hours * float64(time.Hour))),
			End:   now,
		}
	}

	if v := q.Get("min_relevance"); v != "" {
		minRel, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(minRel) || minRel < 0 || minRel > 1 {
			return filter, errors.New("Invalid min_relevance value")
		}
		filter.MinRelevance = minRel
	}

	switch sortBy := types.SortField(q.Get("sort_by")); sortBy {
	case "", types.SortByTimestamp, types.SortByRelevance:
		filter.SortBy = sortBy
	default:
		return filter, errors.New("Invalid sort_by value")
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filter, errors.New("Invalid limit value")
		}
		filter.Limit = limit
	}

	return filter, nil
}
