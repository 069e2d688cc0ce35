package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"clementus360/task-insights/analysis"
	"clementus360/task-insights/config"
	"clementus360/task-insights/insights"
	"clementus360/task-insights/types"

	"github.com/sirupsen/logrus"
)

func (a *API) ExecuteAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	engine, userID, ok := a.engine(w, r)
	if !ok {
		return
	}

	log := config.Logger.WithFields(logrus.Fields{"user_id": userID, "task_id": taskID})

	result, err := engine.ExecuteAnalysis(r.Context(), taskID)
	if err != nil {
		var ctxErr *analysis.ContextError
		switch {
		case errors.Is(err, analysis.ErrSubjectNotFound):
			writeError(w, "Task not found", http.StatusNotFound)
		case errors.As(err, &ctxErr):
			log.Error("Failed to build analysis context:", err)
			writeError(w, "Could not load task data", http.StatusBadGateway)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Info("Analysis request abandoned by caller")
			writeError(w, "Request cancelled", http.StatusRequestTimeout)
		default:
			log.Error("Analysis failed:", err)
			writeError(w, "Analysis failed", http.StatusInternalServerError)
		}
		return
	}

	resp := types.AnalysisResponse{
		Success:    true,
		TaskID:     taskID,
		Analysis:   result,
		Generation: engine.Generation(taskID),
	}
	fillOutcome(engine, taskID, &resp.Tier, &resp.ResolvedAt)

	a.track(r, userID, taskID, config.ActivityTypeAIResponse, result.StatusSummary, types.ActivityMetadata{
		ResponseLength:   len(result.StatusSummary) + len(result.NextSteps),
		ActionItemsCount: len(result.IntelligentActions),
	})

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) ClearAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	engine, _, ok := a.engine(w, r)
	if !ok {
		return
	}

	engine.ClearAnalysis(taskID)

	writeJSON(w, http.StatusOK, types.ClearAnalysisResponse{
		Success:    true,
		TaskID:     taskID,
		Generation: engine.Generation(taskID),
	})
}

// TriggerAnalysisHandler releases a flight waiting for a manual trigger.
func (a *API) TriggerAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	engine, _, ok := a.engine(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, types.TriggerResponse{
		Success:   true,
		TaskID:    taskID,
		Triggered: engine.Trigger(taskID),
	})
}

func (a *API) AnalysisStateHandler(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}
	engine, _, ok := a.engine(w, r)
	if !ok {
		return
	}

	resp := types.AnalysisStateResponse{
		Success:    true,
		TaskID:     taskID,
		State:      string(engine.AnalysisState(taskID)),
		Generation: engine.Generation(taskID),
	}
	fillOutcome(engine, taskID, &resp.Tier, &resp.ResolvedAt)

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) AnalysisStatsHandler(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := a.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, engine.Stats())
}

func fillOutcome(engine *insights.Engine, taskID string, tier *string, resolvedAt **time.Time) {
	out, ok := engine.AnalysisOutcome(taskID)
	if !ok {
		return
	}
	*tier = string(out.Tier)
	at := out.ResolvedAt
	*resolvedAt = &at
}
