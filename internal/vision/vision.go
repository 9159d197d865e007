// Package vision asks multimodal models questions about single images. The
// pipeline uses it for ROI refinement: proposing a crop rectangle that
// contains the slide content while excluding presenter overlays.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Credential enumerates the kinds of secret an attempt may require. A
// closed set checked through one lookup keeps the attempt chain free of
// string comparisons against env names.
type Credential int

const (
	// CredentialNone marks local models that need no secret.
	CredentialNone Credential = iota
	CredentialOpenAI
	CredentialGroq
)

func (c Credential) String() string {
	switch c {
	case CredentialOpenAI:
		return "OPENAI_API_KEY"
	case CredentialGroq:
		return "GROQ_API_KEY"
	default:
		return "none"
	}
}

// Attempt is one entry of the model attempt chain, tried in list order.
type Attempt struct {
	Name       string // provider label used in logs and warnings
	Model      string
	Credential Credential
}

// Prompt is a single-image question. The system instruction is fixed per
// generator at construction time.
type Prompt struct {
	User      string
	ImagePath string
}

// Generator produces free-form text for an image prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// ChainConfig wires the attempt chain.
type ChainConfig struct {
	Attempts     []Attempt
	SystemPrompt string
	OllamaHost   string
	OllamaPort   int
	Timeout      time.Duration
}

// Chain holds the ordered model attempts and builds a generator for each on
// demand. Credential availability is captured once at construction.
type Chain struct {
	cfg     ChainConfig
	present map[Credential]bool
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewChain builds a chain from config, snapshotting which credentials are
// configured in the environment.
func NewChain(cfg ChainConfig, logger *slog.Logger) *Chain {
	if len(cfg.Attempts) == 0 {
		cfg.Attempts = DefaultAttempts()
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are a vision assistant. Return ONLY JSON or null. No extra text."
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	c := &Chain{
		cfg:     cfg,
		present: map[Credential]bool{CredentialNone: true},
		// Remote vision APIs meter aggressively; one request per second is
		// plenty for a three-frame ROI loop.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
	for _, cred := range []Credential{CredentialOpenAI, CredentialGroq} {
		c.present[cred] = os.Getenv(cred.String()) != ""
	}
	return c
}

// DefaultAttempts prefers the free local model, then remote fallbacks.
func DefaultAttempts() []Attempt {
	return []Attempt{
		{Name: "ollama", Model: "llama3.2-vision:11b", Credential: CredentialNone},
		{Name: "openai", Model: "gpt-4o-mini", Credential: CredentialOpenAI},
		{Name: "groq", Model: "llama-3.2-11b-vision-preview", Credential: CredentialGroq},
	}
}

// ParseAttempts reads a "provider:model|provider:model" list, the same
// shape used for provider lists elsewhere in the config. Unknown providers
// are dropped. An empty result falls back to DefaultAttempts.
func ParseAttempts(raw string) []Attempt {
	var out []Attempt
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, model := part, ""
		if i := strings.IndexByte(part, ':'); i >= 0 {
			name, model = strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+1:])
		}
		attempt, ok := attemptFor(strings.ToLower(name), model)
		if !ok {
			continue
		}
		out = append(out, attempt)
	}
	if len(out) == 0 {
		return DefaultAttempts()
	}
	return out
}

func attemptFor(name, model string) (Attempt, bool) {
	defaults := map[string]Attempt{}
	for _, attempt := range DefaultAttempts() {
		defaults[attempt.Name] = attempt
	}
	attempt, ok := defaults[name]
	if !ok {
		return Attempt{}, false
	}
	if model != "" {
		attempt.Model = model
	}
	return attempt, true
}

// Available returns the attempts whose credential is present, preserving
// chain order.
func (c *Chain) Available() []Attempt {
	var out []Attempt
	for _, attempt := range c.cfg.Attempts {
		if c.credentialPresent(attempt.Credential) {
			out = append(out, attempt)
			continue
		}
		if c.logger != nil {
			c.logger.Debug("skipping vision attempt, credential absent",
				"attempt", attempt.Name, "credential", attempt.Credential.String())
		}
	}
	return out
}

func (c *Chain) credentialPresent(cred Credential) bool {
	return c.present[cred]
}

// Generate runs one prompt against one attempt's model.
func (c *Chain) Generate(ctx context.Context, attempt Attempt, prompt Prompt) (string, error) {
	gen, err := c.generatorFor(ctx, attempt)
	if err != nil {
		return "", err
	}
	return gen.Generate(ctx, prompt)
}

func (c *Chain) generatorFor(ctx context.Context, attempt Attempt) (Generator, error) {
	switch attempt.Credential {
	case CredentialNone:
		return newAgentGenerator(ctx, c.logger, c.cfg.OllamaHost, c.cfg.OllamaPort, attempt.Model, c.cfg.SystemPrompt)
	case CredentialOpenAI:
		return newHTTPGenerator(httpGeneratorConfig{
			name:    attempt.Name,
			baseURL: "https://api.openai.com/v1",
			apiKey:  c.apiKey(CredentialOpenAI),
			model:   attempt.Model,
			system:  c.cfg.SystemPrompt,
			timeout: c.cfg.Timeout,
			limiter: c.limiter,
		}), nil
	case CredentialGroq:
		return newHTTPGenerator(httpGeneratorConfig{
			name:    attempt.Name,
			baseURL: "https://api.groq.com/openai/v1",
			apiKey:  c.apiKey(CredentialGroq),
			model:   attempt.Model,
			system:  c.cfg.SystemPrompt,
			timeout: c.cfg.Timeout,
			limiter: c.limiter,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported vision credential %q", attempt.Credential)
	}
}

func (c *Chain) apiKey(cred Credential) string {
	return os.Getenv(cred.String())
}
