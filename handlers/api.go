package handlers

import (
	"net/http"

	"clementus360/task-insights/config"
	"clementus360/task-insights/insights"
	"clementus360/task-insights/middleware"
	"clementus360/task-insights/supabase"
	"clementus360/task-insights/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ActivityTracker records a user activity row for the request's caller.
type ActivityTracker func(r *http.Request, userID, taskID, activityType, content string, meta types.ActivityMetadata)

// API serves the insights endpoints. Every handler expects AuthMiddleware to
// have stored the caller's user id on the request context.
type API struct {
	Engines *insights.Registry
	Track   ActivityTracker
}

func NewAPI(engines *insights.Registry) *API {
	return &API{Engines: engines, Track: TrackWithSupabase}
}

// TrackWithSupabase writes the activity in the background with the caller's token.
func TrackWithSupabase(r *http.Request, userID, taskID, activityType, content string, meta types.ActivityMetadata) {
	client, _, err := supabase.ClientFromRequest(r)
	if err != nil {
		config.Logger.Warn("Failed to create Supabase client for activity tracking:", err)
		return
	}

	go func() {
		if err := supabase.TrackUserActivity(client, userID, taskID, activityType, content, meta); err != nil {
			config.Logger.WithFields(logrus.Fields{
				"user_id":       userID,
				"activity_type": activityType,
			}).Warn("Failed to track activity:", err)
		}
	}()
}

func (a *API) engine(w http.ResponseWriter, r *http.Request) (*insights.Engine, string, bool) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, "", false
	}

	engine, err := a.Engines.Get(userID)
	if err != nil {
		config.Logger.Error("Failed to start insights engine:", err)
		writeError(w, "Insights engine unavailable", http.StatusInternalServerError)
		return nil, "", false
	}
	return engine, userID, true
}

func (a *API) track(r *http.Request, userID, taskID, activityType, content string, meta types.ActivityMetadata) {
	if a.Track != nil {
		a.Track(r, userID, taskID, activityType, content, meta)
	}
}

// taskIDParam reads and validates the task_id query parameter.
func taskIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		writeError(w, "Missing task ID", http.StatusBadRequest)
		return "", false
	}
	if _, err := uuid.Parse(taskID); err != nil {
		config.Logger.Error("Invalid task ID format:", err)
		writeError(w, "Invalid task ID", http.StatusBadRequest)
		return "", false
	}
	return taskID, true
}
