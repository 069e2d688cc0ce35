package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clementus360/task-insights/collector"
	"clementus360/task-insights/config"
	"clementus360/task-insights/handlers"
	"clementus360/task-insights/insights"
	"clementus360/task-insights/llm"
	"clementus360/task-insights/middleware"
	"clementus360/task-insights/routes"
	"clementus360/task-insights/supabase"
	"clementus360/task-insights/types"
)

func main() {

	config.LoadEnv()
	config.InitLogger()
	supabase.Init()

	cfg, err := config.LoadEngineConfig()
	if err != nil {
		config.Logger.Fatal("Failed to load engine config:", err)
	}

	generator, err := llm.NewGenerator(llm.Model(cfg.Model), llm.ClientOptions{
		ModelName: os.Getenv("LLM_MODEL_NAME"),
		Timeout:   cfg.CallTimeout,
	})
	if err != nil {
		config.Logger.Fatal("Failed to create LLM client:", err)
	}

	registry := insights.NewRegistry(func(userID string) (*insights.Engine, error) {
		return insights.New(insights.Options{
			Config:    cfg,
			Provider:  supabase.NewSubjectProvider(supabase.Client, userID, cfg.MaxRecentActivities),
			Generator: generator,
			Sources: []collector.Source{
				collector.TemporalSource{},
				&supabase.ActivitySource{Client: supabase.Client, UserID: userID},
				&supabase.TaskStatsSource{Client: supabase.Client, UserID: userID},
			},
			OnAggregate: func(results map[types.DataKind]types.AggregationResult) {
				if err := supabase.SaveUserPatterns(supabase.Client, userID, results); err != nil {
					config.Logger.WithField("user_id", userID).Warn("Failed to persist patterns:", err)
				}
			},
		}), nil
	})
	defer registry.Close()

	limiter := middleware.NewRateLimiter(5, 20)

	mux := http.NewServeMux()
	routes.RegisterAllRoutes(mux, handlers.NewAPI(registry), middleware.Chain(
		middleware.AuthMiddleware,
		limiter.Middleware,
	))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: middleware.Chain(middleware.CORSMiddleware, middleware.LoggingMiddleware)(mux),
	}

	go func() {
		config.Logger.Info("Server is running on port ", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Logger.Fatal("Server failed:", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		config.Logger.Error("Server shutdown failed:", err)
	}
}
