package config

import (
	"testing"
	"time"

	"clementus360/task-insights/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEngineConfig_Defaults(t *testing.T) {
	cfg, err := LoadEngineConfig()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.MaxDataPoints)
	assert.Equal(t, 10*time.Minute, cfg.AnalysisTTL)
	assert.Equal(t, 3*time.Minute, cfg.ContextTTL)
	assert.False(t, cfg.ManualTrigger)
	assert.Equal(t, []string{"create", "review", "contact", "plan", "complete"}, cfg.ExtractionVerbs)
	assert.True(t, cfg.CollectionEnabled(types.KindTemporal))
}

func TestLoadEngineConfig_EnvOverrides(t *testing.T) {
	t.Setenv("INSIGHTS_MAX_DATA_POINTS", "250")
	t.Setenv("INSIGHTS_ANALYSIS_TTL", "5m")
	t.Setenv("INSIGHTS_MANUAL_TRIGGER", "true")
	t.Setenv("INSIGHTS_COLLECT_ENVIRONMENTAL", "false")
	t.Setenv("INSIGHTS_MIN_RELEVANCE_SCORE", "0.4")
	t.Setenv("INSIGHTS_EXTRACTION_VERBS", "crear, revisar")

	cfg, err := LoadEngineConfig()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.MaxDataPoints)
	assert.Equal(t, 5*time.Minute, cfg.AnalysisTTL)
	assert.True(t, cfg.ManualTrigger)
	assert.False(t, cfg.CollectionEnabled(types.KindEnvironmental))
	assert.True(t, cfg.CollectionEnabled(types.KindUserBehavior))
	assert.InDelta(t, 0.4, cfg.MinRelevanceScore, 1e-9)
	assert.Equal(t, []string{"crear", "revisar"}, cfg.ExtractionVerbs)
}

func TestApplyDefaults_RepairsInvalidValues(t *testing.T) {
	cfg := types.EngineConfig{MaxDataPoints: -1, MinRelevanceScore: 3}
	ApplyDefaults(&cfg)

	assert.Equal(t, DefaultEngineConfig.MaxDataPoints, cfg.MaxDataPoints)
	assert.Equal(t, DefaultEngineConfig.MinRelevanceScore, cfg.MinRelevanceScore)
	assert.Equal(t, DefaultEngineConfig.Model, cfg.Model)
	assert.NotEmpty(t, cfg.ExtractionVerbs)
}
