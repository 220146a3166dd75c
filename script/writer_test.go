package script

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelpipe/config"
	"reelpipe/types"
)

func testTopic() types.Topic {
	return types.Topic{
		Main:      "AI + Life Tips",
		Subtopic:  "Productivity hacks",
		Tone:      "conversational",
		LengthSec: 45,
	}
}

func groqServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req groqRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[0].Content, "Productivity hacks")

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestRunUsesGeneratedScript(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "test-key")
	srv := groqServer(t, "  Hey bestie, listen up!  ")
	defer srv.Close()

	w := New(config.Script{GroqModel: "llama-3.3-70b-versatile", Temperature: 0.7, MaxTokens: 300})
	w.endpoint = srv.URL

	out := w.Run(context.Background(), testTopic())
	assert.False(t, out.Fallback)
	assert.Equal(t, "Hey bestie, listen up!", out.Body)
}

func TestRunFallsBackWithoutAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	w := New(config.Script{})
	out := w.Run(context.Background(), testTopic())
	assert.True(t, out.Fallback)
	assert.Contains(t, out.Body, "Productivity hacks")
	assert.Contains(t, out.Body, "AI + Life Tips")
}

func TestRunFallsBackOnAPIError(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded"},
		})
	}))
	defer srv.Close()

	w := New(config.Script{})
	w.endpoint = srv.URL

	out := w.Run(context.Background(), testTopic())
	assert.True(t, out.Fallback)
}

func TestRunFallsBackOnEmptyChoices(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	w := New(config.Script{})
	w.endpoint = srv.URL

	out := w.Run(context.Background(), testTopic())
	assert.True(t, out.Fallback)
}
