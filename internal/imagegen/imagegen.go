// Package imagegen produces the image that accompanies a post and writes it
// to the output directory as a PNG file.
package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
)

// ErrEmptyImage is returned when a provider answers without image data.
var ErrEmptyImage = errors.New("no image data in response")

const (
	generateTimeout = 60 * time.Second
	downloadTimeout = 30 * time.Second
	maxTopicRunes   = 50
	maxCollisions   = 100
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Provider turns a prompt into encoded image bytes (any format image.Decode
// understands).
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Request describes one image.
type Request struct {
	Topic string
	// Style overrides the configured style when set.
	Style string
	// Template is a configured layout name or a free-text layout description.
	Template string
	// Headline is rendered on the image; empty means no text overlay.
	Headline string
}

// Options configures a Generator.
type Options struct {
	OutputDir string
	Style     string
	Templates map[string]string
}

// Generator builds prompts and writes generated images.
type Generator struct {
	provider Provider
	opts     Options
	now      func() time.Time
	log      *zap.Logger
}

// NewGenerator creates a generator. A nil provider makes every call fail
// with apierr.ErrCredentialMissing.
func NewGenerator(provider Provider, opts Options, log *zap.Logger) *Generator {
	if opts.Style == "" {
		opts.Style = "professional, clean, LinkedIn-style graphic"
	}
	return &Generator{provider: provider, opts: opts, now: time.Now, log: logging.OrNop(log)}
}

// Generate produces an image for req and returns the written file path.
// On any failure the path is empty and the error says why.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if g.provider == nil {
		return "", fmt.Errorf("generating image: %w", apierr.ErrCredentialMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	prompt := g.Prompt(req)
	data, err := g.provider.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	data, err = toPNG(data)
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}

	path, err := g.write(req.Topic, data)
	if err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}

	g.log.Info("generated image",
		zap.String("provider", g.provider.Name()),
		zap.String("path", path),
		zap.Int("bytes", len(data)))
	return path, nil
}

// Prompt renders the natural-language prompt for req.
func (g *Generator) Prompt(req Request) string {
	style := req.Style
	if style == "" {
		style = g.opts.Style
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a single, professional image suitable for a LinkedIn post. Topic/theme: %s. Style: %s.",
		strings.TrimSpace(req.Topic), style)

	if layout := g.layout(req.Template); layout != "" {
		fmt.Fprintf(&b, " Layout: %s.", layout)
	}
	if h := strings.TrimSpace(req.Headline); h != "" {
		fmt.Fprintf(&b, " Include this headline as clean, legible text in the image: %q.", h)
	} else {
		b.WriteString(" No text overlay in the image.")
	}
	b.WriteString(" High quality, suitable for business audience.")
	return b.String()
}

// layout resolves a template name; unknown names are used as written.
func (g *Generator) layout(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if t, ok := g.opts.Templates[strings.ToLower(name)]; ok {
		return t
	}
	return name
}

// write creates the file exclusively, adding a numeric suffix when the
// timestamped name is taken.
func (g *Generator) write(topic string, data []byte) (string, error) {
	if err := os.MkdirAll(g.opts.OutputDir, 0o755); err != nil {
		return "", err
	}

	base := "linkedin_image_" + SanitizeTopic(topic) + "_" + strconv.FormatInt(g.now().Unix(), 10)
	for i := 1; i <= maxCollisions; i++ {
		name := base + ".png"
		if i > 1 {
			name = base + "_" + strconv.Itoa(i) + ".png"
		}
		path := filepath.Join(g.opts.OutputDir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s", base)
}

// SanitizeTopic keeps the first 50 characters of topic, replacing anything
// other than letters, digits, space, '-' and '_' with '_'.
func SanitizeTopic(topic string) string {
	r := []rune(topic)
	if len(r) > maxTopicRunes {
		r = r[:maxTopicRunes]
	}
	for i, c := range r {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == ' ' || c == '-' || c == '_' {
			continue
		}
		r[i] = '_'
	}
	return string(r)
}

// toPNG returns PNG data as is and re-encodes anything else.
func toPNG(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, pngMagic) {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
