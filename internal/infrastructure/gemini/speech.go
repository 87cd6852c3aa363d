package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/config"
)

const defaultSpeechEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Audio returned by the speech model is 16-bit little-endian mono PCM.
const (
	SpeechSampleRate = 24000
	SpeechChannels   = 1
	SpeechEncoding   = "s16le"
)

// SpeechClient calls the text-to-speech model over REST.
type SpeechClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	voice      string
}

func NewSpeechClient(cfg config.GeminiConfig) *SpeechClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &SpeechClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   defaultSpeechEndpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.TTSModel,
		voice:      cfg.TTSVoice,
	}
}

type speechRequest struct {
	Contents         []speechContent `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
		SpeechConfig       struct {
			VoiceConfig struct {
				PrebuiltVoiceConfig struct {
					VoiceName string `json:"voiceName"`
				} `json:"prebuiltVoiceConfig"`
			} `json:"voiceConfig"`
		} `json:"speechConfig"`
	} `json:"generationConfig"`
}

type speechContent struct {
	Parts []speechPart `json:"parts"`
}

type speechPart struct {
	Text       string `json:"text,omitempty"`
	InlineData *struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData,omitempty"`
}

type speechResponse struct {
	Candidates []struct {
		Content speechContent `json:"content"`
	} `json:"candidates"`
}

// Synthesize returns raw PCM samples for text.
func (c *SpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var body speechRequest
	body.Contents = []speechContent{{Parts: []speechPart{{Text: text}}}}
	body.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	body.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = c.voice

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("speech request: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out speechResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode speech response: %w", err)
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return base64.StdEncoding.DecodeString(part.InlineData.Data)
			}
		}
	}
	return nil, fmt.Errorf("speech response carried no audio")
}
