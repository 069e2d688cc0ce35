package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// TextGenerator sends a system instruction and user content to a model and
// returns its raw reply. Any error is a transport failure.
type TextGenerator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type Model string

const (
	OpenAI Model = "openai"
	Gemini Model = "gemini"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 1.0 // requests per second
	defaultBurst     = 3
)

type ClientOptions struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	// RateLimit is requests per second; zero uses the default.
	RateLimit float64
}

// NewGenerator returns the client for model, reading the API key from the
// environment when opts.APIKey is empty.
func NewGenerator(model Model, opts ClientOptions) (TextGenerator, error) {
	switch model {
	case OpenAI:
		if opts.APIKey == "" {
			opts.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIClient(opts)
	case Gemini:
		if opts.APIKey == "" {
			opts.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		return NewGeminiClient(opts)
	default:
		return nil, fmt.Errorf("unsupported model: %s (supported: %s, %s)", model, OpenAI, Gemini)
	}
}

func (o ClientOptions) withDefaults(baseURL, modelName string) ClientOptions {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.ModelName == "" {
		o.ModelName = modelName
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Temperature == 0 {
		o.Temperature = 0.3
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1000
	}
	if o.RateLimit <= 0 {
		o.RateLimit = defaultRateLimit
	}
	return o
}

func (o ClientOptions) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(o.RateLimit), defaultBurst)
}
