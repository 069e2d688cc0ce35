package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"clementus360/task-insights/config"

	"golang.org/x/time/rate"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

type GeminiClient struct {
	opts       ClientOptions
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewGeminiClient(opts ClientOptions) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	opts = opts.withDefaults(geminiBaseURL, "gemini-2.0-flash")
	return &GeminiClient{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    opts.limiter(),
	}, nil
}

func (g *GeminiClient) Generate(ctx context.Context, system, user string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	body := map[string]interface{}{
		"systemInstruction": map[string]interface{}{
			"parts": []map[string]string{{"text": system}},
		},
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": user}},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     g.opts.Temperature,
			"maxOutputTokens": g.opts.MaxTokens,
			"topP":            0.8,
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// The key travels in a header; transport errors echo the URL.
	url := fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(g.opts.BaseURL, "/"), g.opts.ModelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.opts.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var res map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text, err := extractTextFromResponse(res)
	if err != nil {
		return "", err
	}

	config.Logger.WithField("length", len(text)).Debug("Gemini reply received")
	return text, nil
}

// Extract text from Gemini API response with proper error handling
func extractTextFromResponse(res map[string]interface{}) (string, error) {
	candidates, ok := res["candidates"].([]interface{})
	if !ok || len(candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate, ok := candidates[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid candidate format")
	}

	content, ok := candidate["content"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("no content in candidate")
	}

	parts, ok := content["parts"].([]interface{})
	if !ok || len(parts) == 0 {
		return "", fmt.Errorf("no parts in content")
	}

	var text strings.Builder
	for _, p := range parts {
		part, ok := p.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("invalid part format")
		}
		if s, ok := part["text"].(string); ok {
			text.WriteString(s)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text in parts")
	}

	return text.String(), nil
}
