package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/metrics"
)

// Request is one text-generation call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Provider is the interface for LLM providers.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	IsConfigured() bool
}

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, log *zap.Logger) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
		log:     logging.OrNop(log),
	}
}

func (o *OllamaProvider) Name() string { return "ollama" }

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	o.log.Warn("ollama model not found", zap.String("model", o.Model))
	return false
}

// Generate sends a chat request to Ollama and returns the reply.
func (o *OllamaProvider) Generate(ctx context.Context, r Request) (_ string, err error) {
	defer metrics.ObserveCall("ollama", time.Now(), &err)

	body := map[string]any{
		"model":    o.Model,
		"messages": chatMessages(r),
		"stream":   false,
		"options": map[string]any{
			"num_predict": r.MaxTokens,
			"temperature": r.Temperature,
		},
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, o.client, "ollama", o.BaseURL+"/api/chat", nil, body, &result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider is an OpenAI chat-completions provider.
type OpenAIProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(model, apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		Model:   model,
		APIKey:  apiKey,
		BaseURL: openAIBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenAIProvider) Name() string { return "openai" }

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends a prompt to OpenAI and returns the response.
func (o *OpenAIProvider) Generate(ctx context.Context, r Request) (_ string, err error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("openai: %w", apierr.ErrCredentialMissing)
	}
	defer metrics.ObserveCall("openai", time.Now(), &err)

	body := map[string]any{
		"model":       o.Model,
		"messages":    chatMessages(r),
		"max_tokens":  r.MaxTokens,
		"temperature": r.Temperature,
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + o.APIKey}
	if err := postJSON(ctx, o.client, "openai", o.BaseURL+"/chat/completions", headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	return result.Choices[0].Message.Content, nil
}

func chatMessages(r Request) []map[string]string {
	var msgs []map[string]string
	if r.System != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": r.System})
	}
	return append(msgs, map[string]string{"role": "user", "content": r.Prompt})
}

// postJSON posts body as JSON and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, service, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	if err := apierr.CheckResponse(service, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", service, err)
	}
	return nil
}

// Settings selects and configures a text provider.
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	OpenAIModel string
	OpenAIKey   string
	OllamaURL   string
	OllamaModel string
}

// CreateProvider returns the configured provider, falling back to OpenAI
// when the preferred one is unavailable. It returns nil when nothing is
// configured; callers treat that as a missing credential.
func CreateProvider(s Settings, log *zap.Logger) Provider {
	log = logging.OrNop(log)

	switch strings.ToLower(s.Provider) {
	case "ollama":
		p := NewOllamaProvider(s.OllamaModel, s.OllamaURL, log)
		if p.IsConfigured() {
			log.Info("using ollama", zap.String("model", s.OllamaModel))
			return p
		}
		log.Info("ollama not available, trying openai fallback")
	case "gemini", "":
		if s.APIKey != "" {
			p, err := NewGeminiProvider(context.Background(), s.Model, s.APIKey)
			if err == nil {
				log.Info("using gemini", zap.String("model", s.Model))
				return p
			}
			log.Warn("gemini client unavailable", zap.Error(err))
		}
	case "openai":
		if s.OpenAIKey == "" && s.APIKey != "" {
			s.OpenAIKey = s.APIKey
		}
	}

	p := NewOpenAIProvider(s.OpenAIModel, s.OpenAIKey)
	if p.IsConfigured() {
		log.Info("using openai", zap.String("model", s.OpenAIModel))
		return p
	}

	log.Info("no text-generation provider configured")
	return nil
}
