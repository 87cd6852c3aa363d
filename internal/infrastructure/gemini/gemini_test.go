package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gdugdh24/rakshak-backend/internal/config"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessmentSchema(t *testing.T) {
	s := assessmentSchema()
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"command", "context", "emergencyType", "severity"}, s.Required)
	assert.Contains(t, s.Properties["emergencyType"].Enum, "Uncertain")
	assert.Equal(t, []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}, s.Properties["severity"].Enum)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(" {\"a\":"), genai.Text("1} ")}},
	}}}
	got, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}

func newSpeechClient(t *testing.T, handler http.HandlerFunc) *SpeechClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewSpeechClient(config.GeminiConfig{APIKey: "key", TTSModel: "tts-model", TTSVoice: "Zephyr"})
	c.endpoint = srv.URL
	return c
}

func TestSynthesize(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f}
	c := newSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/tts-model:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))

		var req speechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Zephyr", req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
		assert.Equal(t, []string{"AUDIO"}, req.GenerationConfig.ResponseModalities)
		assert.Equal(t, "stay calm", req.Contents[0].Parts[0].Text)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{
					"inlineData": map[string]any{"mimeType": "audio/L16;rate=24000", "data": base64.StdEncoding.EncodeToString(pcm)},
				}}},
			}},
		})
	})

	audio, err := c.Synthesize(context.Background(), "stay calm")
	require.NoError(t, err)
	assert.Equal(t, pcm, audio)
}

func TestSynthesizeErrors(t *testing.T) {
	c := newSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})
	_, err := c.Synthesize(context.Background(), "x")
	assert.ErrorContains(t, err, "status 429")

	c = newSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"no audio"}]}}]}`))
	})
	_, err = c.Synthesize(context.Background(), "x")
	assert.ErrorContains(t, err, "no audio")
}
