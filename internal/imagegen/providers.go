package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/llm"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/metrics"
)

const maxImageBytes = 20 << 20

// ImagenProvider generates images with Imagen through the Gemini API.
type ImagenProvider struct {
	client      *genai.Client
	model       string
	aspectRatio string
}

// NewImagenProvider creates an Imagen provider. baseURL is optional.
func NewImagenProvider(ctx context.Context, model, apiKey, aspectRatio string, baseURL ...string) (*ImagenProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("imagen: %w", apierr.ErrCredentialMissing)
	}
	if model == "" {
		model = "imagen-4.0-generate-001"
	}
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	cc := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if len(baseURL) > 0 && baseURL[0] != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL[0]}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating imagen client: %w", err)
	}
	return &ImagenProvider{client: client, model: model, aspectRatio: aspectRatio}, nil
}

func (p *ImagenProvider) Name() string { return "imagen" }

// Generate requests one image and returns its inline bytes.
func (p *ImagenProvider) Generate(ctx context.Context, prompt string) (_ []byte, err error) {
	defer metrics.ObserveCall("imagen", time.Now(), &err)

	resp, err := p.client.Models.GenerateImages(ctx, p.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    p.aspectRatio,
	})
	if err != nil {
		return nil, llm.WrapGenAIError("imagen", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 ||
		resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, ErrEmptyImage
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

const openAIBaseURL = "https://api.openai.com/v1"

// DalleProvider generates images through the OpenAI images API.
type DalleProvider struct {
	APIKey  string
	Model   string
	Size    string
	Quality string
	BaseURL string

	client   *http.Client
	download *http.Client
	log      *zap.Logger
}

// NewDalleProvider creates a DALL-E provider.
func NewDalleProvider(apiKey, model, size, quality string, log *zap.Logger) *DalleProvider {
	if model == "" {
		model = "dall-e-3"
	}
	if size == "" {
		size = "1024x1024"
	}
	if quality == "" {
		quality = "standard"
	}
	return &DalleProvider{
		APIKey:   apiKey,
		Model:    model,
		Size:     size,
		Quality:  quality,
		BaseURL:  openAIBaseURL,
		client:   &http.Client{Timeout: generateTimeout},
		download: &http.Client{Timeout: downloadTimeout},
		log:      logging.OrNop(log),
	}
}

func (p *DalleProvider) Name() string { return "dalle" }

// Generate requests one image. The response carries either a URL, which is
// downloaded, or base64 data.
func (p *DalleProvider) Generate(ctx context.Context, prompt string) (_ []byte, err error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("dalle: %w", apierr.ErrCredentialMissing)
	}
	defer metrics.ObserveCall("dalle", time.Now(), &err)

	body, err := json.Marshal(map[string]any{
		"model":   p.Model,
		"prompt":  prompt,
		"size":    p.Size,
		"quality": p.Quality,
		"n":       1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.BaseURL, "/")+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dalle request: %w", err)
	}
	defer resp.Body.Close()

	if err := apierr.CheckResponse("dalle", resp); err != nil {
		return nil, err
	}

	var result struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding dalle response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, ErrEmptyImage
	}

	d := result.Data[0]
	switch {
	case d.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decoding b64_json: %w", err)
		}
		return data, nil
	case d.URL != "":
		return p.fetch(ctx, d.URL)
	default:
		return nil, ErrEmptyImage
	}
}

func (p *DalleProvider) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := p.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if err := apierr.CheckResponse("dalle-download", resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	p.log.Debug("downloaded image", zap.Int("bytes", len(data)))
	return data, nil
}

// Settings selects and configures an image provider.
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	AspectRatio string
	Size        string
	Quality     string
}

// NewProvider returns the configured provider, or nil when its credential
// is missing.
func NewProvider(ctx context.Context, s Settings, log *zap.Logger) (Provider, error) {
	log = logging.OrNop(log)
	if s.APIKey == "" {
		log.Info("no image provider configured", zap.String("provider", s.Provider))
		return nil, nil
	}

	switch strings.ToLower(s.Provider) {
	case "", "imagen":
		p, err := NewImagenProvider(ctx, s.Model, s.APIKey, s.AspectRatio)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "dalle":
		model := s.Model
		if strings.HasPrefix(model, "imagen") {
			model = ""
		}
		return NewDalleProvider(s.APIKey, model, s.Size, s.Quality, log), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", s.Provider)
	}
}
