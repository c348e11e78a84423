package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Search  Search  `yaml:"search" toml:"search"`
	Topics  Topics  `yaml:"topics" toml:"topics"`
	LLM     LLM     `yaml:"llm" toml:"llm"`
	Content Content `yaml:"content" toml:"content"`
	Image   Image   `yaml:"image" toml:"image"`
	Storage Storage `yaml:"storage" toml:"storage"`
	Server  Server  `yaml:"server" toml:"server"`
	Logging Logging `yaml:"logging" toml:"logging"`

	// Credentials are resolved from the environment once, at load time.
	Credentials Credentials `yaml:"-" toml:"-"`
}

type Search struct {
	Provider       string        `yaml:"provider" toml:"provider"`
	APIKeyEnv      string        `yaml:"api_key_env" toml:"api_key_env"`
	Depth          string        `yaml:"depth" toml:"depth"`
	EnrichSnippets bool          `yaml:"enrich_snippets" toml:"enrich_snippets"`
	NewsAPI        NewsAPIConfig `yaml:"newsapi" toml:"newsapi"`
	Feeds          []Feed        `yaml:"feeds" toml:"feeds"`
}

type NewsAPIConfig struct {
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	Language  string `yaml:"language" toml:"language"`
}

type Feed struct {
	URL  string `yaml:"url" toml:"url"`
	Name string `yaml:"name" toml:"name"`
}

type Topics struct {
	Niche       string  `yaml:"niche" toml:"niche"`
	Count       int     `yaml:"count" toml:"count"`
	Recency     string  `yaml:"recency" toml:"recency"`
	Focus       string  `yaml:"focus" toml:"focus"`
	Widen       string  `yaml:"widen" toml:"widen"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature float32 `yaml:"temperature" toml:"temperature"`
}

type LLM struct {
	Provider    string `yaml:"provider" toml:"provider"`
	Model       string `yaml:"model" toml:"model"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	OpenAIModel string `yaml:"openai_model" toml:"openai_model"`
	OpenAIKey   string `yaml:"openai_api_key_env" toml:"openai_api_key_env"`
	OllamaURL   string `yaml:"ollama_url" toml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model" toml:"ollama_model"`
}

type Content struct {
	Persona     string  `yaml:"persona" toml:"persona"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature float32 `yaml:"temperature" toml:"temperature"`
}

type Image struct {
	Provider    string            `yaml:"provider" toml:"provider"`
	Model       string            `yaml:"model" toml:"model"`
	APIKeyEnv   string            `yaml:"api_key_env" toml:"api_key_env"`
	AspectRatio string            `yaml:"aspect_ratio" toml:"aspect_ratio"`
	Size        string            `yaml:"size" toml:"size"`
	Quality     string            `yaml:"quality" toml:"quality"`
	Style       string            `yaml:"style" toml:"style"`
	Templates   map[string]string `yaml:"templates" toml:"templates"`
}

type Storage struct {
	Backend        string `yaml:"backend" toml:"backend"`
	DataDir        string `yaml:"data_dir" toml:"data_dir"`
	OutputDir      string `yaml:"output_dir" toml:"output_dir"`
	PostgresDSNEnv string `yaml:"postgres_dsn_env" toml:"postgres_dsn_env"`
	MongoURIEnv    string `yaml:"mongo_uri_env" toml:"mongo_uri_env"`
	MongoDatabase  string `yaml:"mongo_database" toml:"mongo_database"`
}

type Server struct {
	Port int `yaml:"port" toml:"port"`
}

type Logging struct {
	Level string `yaml:"level" toml:"level"`
}

// Credentials holds the API keys and DSNs looked up from the environment.
// An empty value means the capability is not configured.
type Credentials struct {
	Search      string
	NewsAPI     string
	LLM         string
	OpenAI      string
	Image       string
	PostgresDSN string
	MongoURI    string
}

// ConfigDir returns the XDG config directory for contentmachine.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "contentmachine")
}

// DataDir returns the XDG data directory for contentmachine.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "contentmachine")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/contentmachine/config.yaml > ./config.yaml.
// An empty path with a nil error means no file was found and defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config file. YAML is the default; a .toml
// extension selects TOML. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return parse(nil, formatYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	format := formatYAML
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = formatTOML
	}
	return parse(data, format)
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

// parse decodes config bytes over the defaults and resolves credentials.
func parse(data []byte, f format) (*Config, error) {
	cfg := defaults()

	if len(data) > 0 {
		var err error
		switch f {
		case formatTOML:
			err = toml.Unmarshal(data, cfg)
		default:
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.Credentials = cfg.resolveCredentials()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Search: Search{
			Provider:  "tavily",
			APIKeyEnv: "TAVILY_API_KEY",
			Depth:     "basic",
			NewsAPI: NewsAPIConfig{
				APIKeyEnv: "NEWSAPI_KEY",
				Language:  "en",
			},
		},
		Topics: Topics{
			Niche:   "AI, Gen AI, Agentic AI, VLSI, Embedded Systems, IT Services and Industry",
			Count:   10,
			Recency: "month",
			Focus: "World Economic Forum WEF Great Workforce Adaptation skills shift AI human collaboration " +
				"workforce resilience productivity automation data statistics insights",
			Widen:       "digital transformation semiconductor embedded systems AI workforce",
			MaxTokens:   2048,
			Temperature: 0.4,
		},
		LLM: LLM{
			Provider:    "gemini",
			Model:       "gemini-3-flash-preview",
			APIKeyEnv:   "GEMINI_API_KEY",
			OpenAIModel: "gpt-4o-mini",
			OpenAIKey:   "OPENAI_API_KEY",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "qwen2.5:7b",
		},
		Content: Content{
			Persona:     "strategist",
			MaxTokens:   8192,
			Temperature: 0.7,
		},
		Image: Image{
			Provider:    "imagen",
			Model:       "imagen-4.0-generate-001",
			AspectRatio: "1:1",
			Size:        "1024x1024",
			Quality:     "standard",
			Style:       "professional, clean, LinkedIn-style graphic",
		},
		Storage: Storage{
			Backend:        "xlsx",
			PostgresDSNEnv: "CONTENTMACHINE_POSTGRES_DSN",
			MongoURIEnv:    "CONTENTMACHINE_MONGO_URI",
			MongoDatabase:  "contentmachine",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}
}

// ImageKeyEnv names the variable holding the image credential. Without an
// explicit image.api_key_env, dalle reads the OpenAI key and imagen the
// Gemini key.
func (c *Config) ImageKeyEnv() string {
	if c.Image.APIKeyEnv != "" {
		return c.Image.APIKeyEnv
	}
	if c.isDalle() {
		return c.LLM.OpenAIKey
	}
	return c.LLM.APIKeyEnv
}

func (c *Config) isDalle() bool {
	return strings.EqualFold(strings.TrimSpace(c.Image.Provider), "dalle")
}

func (c *Config) resolveCredentials() Credentials {
	imageKey := env(c.ImageKeyEnv())
	if c.isDalle() && imageKey == "" {
		imageKey = env(c.LLM.OpenAIKey)
	}
	return Credentials{
		Search:      env(c.Search.APIKeyEnv),
		NewsAPI:     env(c.Search.NewsAPI.APIKeyEnv),
		LLM:         env(c.LLM.APIKeyEnv),
		OpenAI:      env(c.LLM.OpenAIKey),
		Image:       imageKey,
		PostgresDSN: env(c.Storage.PostgresDSNEnv),
		MongoURI:    env(c.Storage.MongoURIEnv),
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// GetOutputDir returns where generated images are written.
func (c *Config) GetOutputDir() string {
	if c.Storage.OutputDir != "" {
		return c.Storage.OutputDir
	}
	return filepath.Join(c.GetDataDir(), "output")
}

func env(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
