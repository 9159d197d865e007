package vision

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAttempts(t *testing.T) {
	attempts := ParseAttempts("ollama:llava:13b|openai:gpt-4o")
	require.Len(t, attempts, 2)
	require.Equal(t, "ollama", attempts[0].Name)
	require.Equal(t, "llava:13b", attempts[0].Model)
	require.Equal(t, CredentialNone, attempts[0].Credential)
	require.Equal(t, "openai", attempts[1].Name)
	require.Equal(t, "gpt-4o", attempts[1].Model)
	require.Equal(t, CredentialOpenAI, attempts[1].Credential)
}

func TestParseAttemptsProviderOnlyKeepsDefaultModel(t *testing.T) {
	attempts := ParseAttempts("groq")
	require.Len(t, attempts, 1)
	require.Equal(t, "llama-3.2-11b-vision-preview", attempts[0].Model)
	require.Equal(t, CredentialGroq, attempts[0].Credential)
}

func TestParseAttemptsDropsUnknownProviders(t *testing.T) {
	attempts := ParseAttempts("anthropic:claude|openai:gpt-4o-mini")
	require.Len(t, attempts, 1)
	require.Equal(t, "openai", attempts[0].Name)
}

func TestParseAttemptsEmptyFallsBackToDefaults(t *testing.T) {
	require.Equal(t, DefaultAttempts(), ParseAttempts(""))
	require.Equal(t, DefaultAttempts(), ParseAttempts("nothing-known|"))
}

func TestChainAvailableFiltersByCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GROQ_API_KEY", "")

	chain := NewChain(ChainConfig{Timeout: time.Second}, slog.New(slog.DiscardHandler))
	available := chain.Available()
	require.Len(t, available, 2)
	require.Equal(t, "ollama", available[0].Name)
	require.Equal(t, "openai", available[1].Name)
}

func TestChainAvailableNoCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")

	chain := NewChain(ChainConfig{}, slog.New(slog.DiscardHandler))
	available := chain.Available()
	require.Len(t, available, 1)
	require.Equal(t, "ollama", available[0].Name)
}

func TestCredentialString(t *testing.T) {
	require.Equal(t, "OPENAI_API_KEY", CredentialOpenAI.String())
	require.Equal(t, "GROQ_API_KEY", CredentialGroq.String())
	require.Equal(t, "none", CredentialNone.String())
}
