package vision

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agent-api/core/pkg/agent"
	"github.com/agent-api/core/types"
	"github.com/agent-api/ollama"
)

// agentGenerator runs prompts against a local ollama vision model through
// the agent-api provider.
type agentGenerator struct {
	agent *agent.DefaultAgent
}

func newAgentGenerator(ctx context.Context, logger *slog.Logger, host string, port int, model, systemPrompt string) (*agentGenerator, error) {
	if host == "" {
		host = "http://localhost"
	}
	if port == 0 {
		port = 11434
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Cheap reachability check so an absent ollama daemon fails the attempt
	// immediately instead of after a long model load timeout.
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s:%d/api/tags", host, port), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable at %s:%d: %w", host, port, err)
	}
	resp.Body.Close()

	provider := ollama.NewProvider(&ollama.ProviderOpts{
		Logger:  logger,
		BaseURL: host,
		Port:    port,
	})
	provider.UseModel(ctx, &types.Model{ID: model})

	return &agentGenerator{
		agent: agent.NewAgent(&agent.NewAgentConfig{
			Provider:     provider,
			Logger:       logger,
			SystemPrompt: systemPrompt,
		}),
	}, nil
}

func (g *agentGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	response := g.agent.Run(
		ctx,
		agent.WithInput(prompt.User),
		agent.WithImagePath(prompt.ImagePath),
	)
	if response.Err != nil {
		return "", response.Err
	}
	if len(response.Messages) == 0 {
		return "", fmt.Errorf("no response messages received from model")
	}
	return response.Messages[len(response.Messages)-1].Content, nil
}
