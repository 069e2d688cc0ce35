package config

import (
	"fmt"
	"strings"

	"clementus360/task-insights/types"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "INSIGHTS_"

// LoadEnv loads a .env file into the process environment when one exists.
func LoadEnv() {
	err := godotenv.Load()

	if err != nil {
		Logger.Warn("Error loading .env file, will use environment variables instead:", err)
		// Don't call Fatal here - continue execution
	}
}

// LoadEngineConfig reads INSIGHTS_* variables on top of DefaultEngineConfig.
//
//	INSIGHTS_MAX_DATA_POINTS=300   -> max_data_points
//	INSIGHTS_ANALYSIS_TTL=5m       -> analysis_ttl
//	INSIGHTS_EXTRACTION_VERBS=a,b  -> extraction_verbs ["a", "b"]
func LoadEngineConfig() (types.EngineConfig, error) {
	k := koanf.New(".")

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		name := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if name == "extraction_verbs" {
			var verbs []string
			for _, v := range strings.Split(value, ",") {
				if v = strings.TrimSpace(v); v != "" {
					verbs = append(verbs, v)
				}
			}
			return name, verbs
		}
		return name, value
	}), nil); err != nil {
		return types.EngineConfig{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := DefaultEngineConfig
	// mapstructure reuses a non-nil slice element by element; ApplyDefaults refills it.
	cfg.ExtractionVerbs = nil
	if err := k.Unmarshal("", &cfg); err != nil {
		return types.EngineConfig{}, fmt.Errorf("failed to unmarshal engine config: %w", err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}
