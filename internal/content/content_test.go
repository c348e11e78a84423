package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/llm"
)

type mockProvider struct {
	response string
	err      error
	got      llm.Request
}

func (m *mockProvider) Name() string       { return "mock" }
func (m *mockProvider) IsConfigured() bool { return true }

func (m *mockProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	m.got = req
	return m.response, m.err
}

func TestGenerateEmbedsTopicAndContext(t *testing.T) {
	p := &mockProvider{response: "\n  Hook line\n\nBody #AI  \n"}
	g, err := NewGenerator(p, Options{Temperature: 0.7}, nil)
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), "Skills shift by 2030", "Use the 39% figure")
	require.NoError(t, err)
	assert.Equal(t, "Hook line\n\nBody #AI", out)

	assert.Equal(t, "Create a LinkedIn post for this topic: \"Skills shift by 2030\"\n\nAdditional context: Use the 39% figure", p.got.Prompt)
	assert.Equal(t, personas[Strategist], p.got.System)
	assert.Equal(t, 8192, p.got.MaxTokens)
	assert.InDelta(t, 0.7, p.got.Temperature, 0.001)
}

func TestGenerateKeepsZeroTemperature(t *testing.T) {
	p := &mockProvider{response: "post"}
	g, err := NewGenerator(p, Options{Temperature: 0}, nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "T", "")
	require.NoError(t, err)
	assert.Zero(t, p.got.Temperature)
}

func TestGenerateWithoutExtraContext(t *testing.T) {
	p := &mockProvider{response: "post"}
	g, err := NewGenerator(p, Options{Persona: "Educator"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Educator, g.Persona())

	_, err = g.Generate(context.Background(), "T", "   ")
	require.NoError(t, err)
	assert.Equal(t, `Create a LinkedIn post for this topic: "T"`, p.got.Prompt)
	assert.Equal(t, personas[Educator], p.got.System)
}

func TestGenerateWithoutProvider(t *testing.T) {
	g, err := NewGenerator(nil, Options{}, nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "T", "")
	assert.ErrorIs(t, err, apierr.ErrCredentialMissing)
}

func TestGeneratePropagatesUpstreamError(t *testing.T) {
	p := &mockProvider{err: &apierr.UpstreamError{Service: "gemini", StatusCode: 500}}
	g, _ := NewGenerator(p, Options{}, nil)

	_, err := g.Generate(context.Background(), "T", "")
	var ue *apierr.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 500, ue.StatusCode)
}

func TestUnknownPersona(t *testing.T) {
	_, err := NewGenerator(nil, Options{Persona: "pirate"}, nil)
	assert.ErrorContains(t, err, "unknown persona")
}

func TestEveryPersonaRegistered(t *testing.T) {
	for _, name := range Personas() {
		assert.NotEmpty(t, personas[name], name)
	}
}
