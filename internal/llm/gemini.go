package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/metrics"
)

// GeminiProvider generates text through the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini provider. baseURL is optional.
func NewGeminiProvider(ctx context.Context, model, apiKey string, baseURL ...string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", apierr.ErrCredentialMissing)
	}
	if model == "" {
		model = "gemini-3-flash-preview"
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if len(baseURL) > 0 && baseURL[0] != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL[0]}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) IsConfigured() bool { return g.client != nil }

// Generate runs one generateContent call with an optional system instruction.
func (g *GeminiProvider) Generate(ctx context.Context, r Request) (_ string, err error) {
	defer metrics.ObserveCall("gemini", time.Now(), &err)

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(r.Temperature),
	}
	if r.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(r.MaxTokens)
	}
	if r.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(r.Prompt), cfg)
	if err != nil {
		return "", wrapGenAIError("gemini", err)
	}
	return resp.Text(), nil
}

// wrapGenAIError maps a genai API error onto *apierr.UpstreamError.
func wrapGenAIError(service string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &apierr.UpstreamError{Service: service, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("%s request: %w", service, err)
}

// WrapGenAIError is wrapGenAIError for other packages using the genai client.
func WrapGenAIError(service string, err error) error {
	return wrapGenAIError(service, err)
}
