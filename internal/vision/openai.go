package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// httpGenerator speaks the OpenAI-compatible chat-completions dialect used
// by both OpenAI and Groq, attaching the frame as a base64 data URL.
type httpGenerator struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	system  string
	client  *http.Client
	limiter *rate.Limiter
}

type httpGeneratorConfig struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	system  string
	timeout time.Duration
	limiter *rate.Limiter
}

func newHTTPGenerator(cfg httpGeneratorConfig) *httpGenerator {
	return &httpGenerator{
		name:    cfg.name,
		baseURL: cfg.baseURL,
		apiKey:  cfg.apiKey,
		model:   cfg.model,
		system:  cfg.system,
		client:  &http.Client{Timeout: cfg.timeout},
		limiter: cfg.limiter,
	}
}

func (g *httpGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("%s: api key missing", g.name)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	imageBytes, err := os.ReadFile(prompt.ImagePath)
	if err != nil {
		return "", fmt.Errorf("%s: read frame: %w", g.name, err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageBytes)

	payload, _ := json.Marshal(map[string]any{
		"model":       g.model,
		"temperature": 0,
		"max_tokens":  200,
		"messages": []map[string]any{
			{"role": "system", "content": g.system},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": prompt.User},
				{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
			}},
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", g.name, err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s error %d: %s", g.name, resp.StatusCode, string(body))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode %s response: %w", g.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", g.name)
	}
	return parsed.Choices[0].Message.Content, nil
}
