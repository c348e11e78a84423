package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
)

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n[1]\n```":   "[1]",
		"```\n[1]\n```":       "[1]",
		"  [1]  ":             "[1]",
		"```json[1]```":       "[1]",
		"```JSON\n[1]\n```\n": "[1]",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFence(in), "input %q", in)
	}
}

func TestParseJSONArray(t *testing.T) {
	arr, err := ParseJSONArray("```json\n[{\"title\":\"T\"}, \"x\"]\n```")
	require.NoError(t, err)
	assert.Len(t, arr, 2)

	_, err = ParseJSONArray(`{"title":"T"}`)
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = ParseJSONArray("[]")
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = ParseJSONArray("")
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = ParseJSONArray("not json at all")
	assert.Error(t, err)
}

func TestOpenAIGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("gpt-test", "sk-test")
	p.BaseURL = srv.URL

	out, err := p.Generate(context.Background(), Request{System: "be brief", Prompt: "hi", MaxTokens: 50, Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "be brief", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "hi", msgs[1].(map[string]any)["content"])
	assert.Equal(t, float64(50), body["max_tokens"])
}

func TestOpenAIWithoutKey(t *testing.T) {
	_, err := NewOpenAIProvider("gpt-test", "").Generate(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, apierr.ErrCredentialMissing)
}

func TestOpenAIUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("gpt-test", "sk-test")
	p.BaseURL = srv.URL

	_, err := p.Generate(context.Background(), Request{Prompt: "hi"})
	var ue *apierr.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			fmt.Fprint(w, `{"models":[{"name":"qwen2.5:7b"}]}`)
		case "/api/chat":
			data, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(data), `"stream":false`)
			fmt.Fprint(w, `{"message":{"content":"local reply"}}`)
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider("qwen2.5:7b", srv.URL+"/", nil)
	assert.True(t, p.IsConfigured())

	out, err := p.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "local reply", out)
}

func TestOllamaMissingModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"llama3:8b"}]}`)
	}))
	defer srv.Close()

	assert.False(t, NewOllamaProvider("qwen2.5:7b", srv.URL, nil).IsConfigured())
}

func TestGeminiGenerate(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"gemini says hi"}]}}]}`)
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(context.Background(), "gemini-test", "g-key", srv.URL)
	require.NoError(t, err)

	out, err := p.Generate(context.Background(), Request{System: "persona", Prompt: "hi", MaxTokens: 64, Temperature: 0.4})
	require.NoError(t, err)
	assert.Equal(t, "gemini says hi", out)
	assert.Contains(t, body, "persona")
}

func TestGeminiWithoutKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "")
	assert.ErrorIs(t, err, apierr.ErrCredentialMissing)
}

func TestCreateProviderNothingConfigured(t *testing.T) {
	assert.Nil(t, CreateProvider(Settings{Provider: "gemini"}, nil))
}

func TestCreateProviderOpenAIUsesKey(t *testing.T) {
	p := CreateProvider(Settings{Provider: "openai", OpenAIModel: "gpt-test", OpenAIKey: "sk"}, nil)
	require.NotNil(t, p)
	assert.Equal(t, "openai", p.Name())
}

func TestCreateProviderGemini(t *testing.T) {
	p := CreateProvider(Settings{Provider: "gemini", Model: "gemini-test", APIKey: "g"}, nil)
	require.NotNil(t, p)
	assert.Equal(t, "gemini", p.Name())
}
