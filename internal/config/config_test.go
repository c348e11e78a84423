package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML, formatYAML)
	require.NoError(t, err, "failed to parse default config")

	assert.NotEmpty(t, cfg.Search.Feeds, "expected feeds to be populated")
	assert.Equal(t, "tavily", cfg.Search.Provider)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-3-flash-preview", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.Topics.Count)
	assert.Equal(t, "month", cfg.Topics.Recency)
	assert.Equal(t, "xlsx", cfg.Storage.Backend)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Contains(t, cfg.Image.Templates, "data-card")
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
llm:
  provider: openai
server:
  port: 9000
`)
	cfg, err := parse(data, formatYAML)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 9000, cfg.Server.Port)
	// Defaults should still be set for unspecified fields
	assert.Equal(t, "http://localhost:11434", cfg.LLM.OllamaURL)
	assert.Equal(t, "imagen-4.0-generate-001", cfg.Image.Model)
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
[search]
provider = "newsapi"

[topics]
count = 7
recency = "week"
`)
	cfg, err := parse(data, formatTOML)
	require.NoError(t, err)

	assert.Equal(t, "newsapi", cfg.Search.Provider)
	assert.Equal(t, 7, cfg.Topics.Count)
	assert.Equal(t, "week", cfg.Topics.Recency)
	assert.Equal(t, "TAVILY_API_KEY", cfg.Search.APIKeyEnv)
}

func TestCredentialsFromEnvironment(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", " tvly-key \n")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := parse(nil, formatYAML)
	require.NoError(t, err)

	assert.Equal(t, "tvly-key", cfg.Credentials.Search)
	assert.Equal(t, "gem-key", cfg.Credentials.LLM)
	assert.Equal(t, "gem-key", cfg.Credentials.Image)
	assert.Empty(t, cfg.Credentials.OpenAI)
}

func TestDalleFallsBackToOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DALLE_KEY", "")

	cfg, err := parse([]byte("image:\n  provider: dalle\n  api_key_env: DALLE_KEY\n"), formatYAML)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Credentials.Image)
}

func TestDalleUsesOpenAIKeyWhenBothSet(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, err := parse([]byte("image:\n  provider: dalle\n"), formatYAML)
	require.NoError(t, err)
	assert.Equal(t, "openai-key", cfg.Credentials.Image)
	assert.Equal(t, "OPENAI_API_KEY", cfg.ImageKeyEnv())

	cfg, err = parse([]byte("image:\n  provider: imagen\n"), formatYAML)
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.Credentials.Image)

	t.Setenv("DALLE_KEY", "dalle-key")
	cfg, err = parse([]byte("image:\n  provider: dalle\n  api_key_env: DALLE_KEY\n"), formatYAML)
	require.NoError(t, err)
	assert.Equal(t, "dalle-key", cfg.Credentials.Image)
}

func TestExplicitZeroTemperatureKept(t *testing.T) {
	cfg, err := parse([]byte("topics:\n  temperature: 0\ncontent:\n  temperature: 0\n"), formatYAML)
	require.NoError(t, err)
	assert.Zero(t, cfg.Topics.Temperature)
	assert.Zero(t, cfg.Content.Temperature)

	cfg, err = parse(nil, formatYAML)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, cfg.Topics.Temperature, 0.001)
	assert.InDelta(t, 0.7, cfg.Content.Temperature, 0.001)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, DefaultConfigYAML, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Search.Feeds, "expected feeds to be populated from file")
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tavily", cfg.Search.Provider)
}

func TestResolveConfigPathMissingExplicit(t *testing.T) {
	_, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDirs(t *testing.T) {
	cfg := &Config{}
	assert.NotEmpty(t, cfg.GetDataDir())

	cfg.Storage.DataDir = "/custom/path"
	assert.Equal(t, "/custom/path", cfg.GetDataDir())
	assert.Equal(t, filepath.Join("/custom/path", "output"), cfg.GetOutputDir())

	cfg.Storage.OutputDir = "/images"
	assert.Equal(t, "/images", cfg.GetOutputDir())
}
