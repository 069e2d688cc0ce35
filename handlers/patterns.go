package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"clementus360/task-insights/config"
	"clementus360/task-insights/types"

	"github.com/google/uuid"
)

func (a *API) RecordCompletionHandler(w http.ResponseWriter, r *http.Request) {
	var req types.TaskCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.Logger.Error("Failed to decode completion JSON:", err)
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.TaskID); err != nil {
		writeError(w, "Invalid task ID", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes < 0 {
		writeError(w, "Invalid duration", http.StatusBadRequest)
		return
	}

	engine, userID, ok := a.engine(w, r)
	if !ok {
		return
	}

	took := time.Duration(req.DurationMinutes * float64(time.Minute))
	point := engine.Recorder().RecordTaskCompletion(req.TaskID, took, req.Overdue)

	a.track(r, userID, req.TaskID, config.ActivityTypeTaskCompleted, "Task completed", types.ActivityMetadata{
		CompletionTime:  point.Timestamp,
		DurationMinutes: req.DurationMinutes,
	})

	writeJSON(w, http.StatusCreated, types.PatternResponse{Success: true, DataPoint: point})
}

func (a *API) RecordSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req types.WorkSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.Logger.Error("Failed to decode session JSON:", err)
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 || req.TasksTouched < 0 {
		writeError(w, "Missing or invalid duration_minutes", http.StatusBadRequest)
		return
	}

	engine, userID, ok := a.engine(w, r)
	if !ok {
		return
	}

	duration := time.Duration(req.DurationMinutes * float64(time.Minute))
	point := engine.Recorder().RecordWorkSession(duration, req.TasksTouched)

	a.track(r, userID, "", config.ActivityTypeWorkSession,
		fmt.Sprintf("Worked %.0f minutes on %d tasks", req.DurationMinutes, req.TasksTouched),
		types.ActivityMetadata{DurationMinutes: req.DurationMinutes, TaskCount: req.TasksTouched})

	writeJSON(w, http.StatusCreated, types.PatternResponse{Success: true, DataPoint: point})
}

func (a *API) RecordCreationHandler(w http.ResponseWriter, r *http.Request) {
	var req types.TaskCreationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.Logger.Error("Failed to decode creation JSON:", err)
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.TaskID); err != nil {
		writeError(w, "Invalid task ID", http.StatusBadRequest)
		return
	}

	engine, userID, ok := a.engine(w, r)
	if !ok {
		return
	}

	point := engine.Recorder().RecordTaskCreation(req.TaskID, req.AISuggested)

	a.track(r, userID, req.TaskID, config.ActivityTypeTaskCreated, "Task created", types.ActivityMetadata{
		AIsuggested: req.AISuggested,
	})

	writeJSON(w, http.StatusCreated, types.PatternResponse{Success: true, DataPoint: point})
}
