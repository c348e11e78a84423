// Package content writes a post for one selected topic.
package content

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/llm"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
)

// Options tunes the generation call.
type Options struct {
	Persona     string
	MaxTokens   int
	Temperature float32
}

// Generator produces post text through a text-generation provider.
type Generator struct {
	provider llm.Provider
	persona  string
	system   string
	opts     Options
	log      *zap.Logger
}

// NewGenerator creates a generator. Unknown personas are an error; an
// empty persona selects the strategist.
func NewGenerator(provider llm.Provider, opts Options, log *zap.Logger) (*Generator, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Persona))
	if name == "" {
		name = Strategist
	}
	system, ok := personas[name]
	if !ok {
		return nil, fmt.Errorf("unknown persona %q (want one of %s)", opts.Persona, strings.Join(Personas(), ", "))
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 8192
	}
	return &Generator{
		provider: provider,
		persona:  name,
		system:   system,
		opts:     opts,
		log:      logging.OrNop(log),
	}, nil
}

// Persona returns the active persona name.
func (g *Generator) Persona() string { return g.persona }

// Generate writes a post for topic. extra is optional context appended to
// the request. There is no retry and no fallback text.
func (g *Generator) Generate(ctx context.Context, topic, extra string) (string, error) {
	if g.provider == nil {
		return "", fmt.Errorf("generating post: %w", apierr.ErrCredentialMissing)
	}

	text, err := g.provider.Generate(ctx, llm.Request{
		System:      g.system,
		Prompt:      userMessage(topic, extra),
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generating post: %w", err)
	}

	text = strings.TrimSpace(text)
	g.log.Info("generated post",
		zap.String("persona", g.persona),
		zap.String("provider", g.provider.Name()),
		zap.Int("chars", len([]rune(text))))
	return text, nil
}

func userMessage(topic, extra string) string {
	msg := fmt.Sprintf(`Create a LinkedIn post for this topic: "%s"`, topic)
	if extra = strings.TrimSpace(extra); extra != "" {
		msg += "\n\nAdditional context: " + extra
	}
	return msg
}
