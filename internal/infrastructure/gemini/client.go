package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/config"
	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const maxDirectiveTokens = 200

// GeminiClient implements the assistant's Generator on the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	directive *genai.GenerativeModel
	vision    *genai.GenerativeModel
	assistant *genai.GenerativeModel
	timeout   time.Duration
}

func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	directive := client.GenerativeModel(cfg.ChatModel)
	directive.SystemInstruction = genai.NewUserContent(genai.Text(emergencyInstruction))
	directive.SetTemperature(0)
	directive.SetMaxOutputTokens(maxDirectiveTokens)
	directive.ResponseMIMEType = "application/json"
	directive.ResponseSchema = assessmentSchema()

	vision := client.GenerativeModel(cfg.ChatModel)
	vision.SystemInstruction = genai.NewUserContent(genai.Text(emergencyInstruction))
	vision.ResponseMIMEType = "application/json"
	vision.ResponseSchema = assessmentSchema()

	assistant := client.GenerativeModel(cfg.AssistantModel)
	assistant.SystemInstruction = genai.NewUserContent(genai.Text(assistantInstruction))

	return &GeminiClient{
		client:    client,
		directive: directive,
		vision:    vision,
		assistant: assistant,
		timeout:   cfg.Timeout,
	}, nil
}

func (c *GeminiClient) Close() {
	c.client.Close()
}

// assessmentSchema constrains the model to the assessment object.
func assessmentSchema() *genai.Schema {
	types := make([]string, 0, len(domain.EmergencyTypes))
	for _, t := range domain.EmergencyTypes {
		types = append(types, string(t))
	}
	severities := make([]string, 0, len(domain.Severities))
	for _, s := range domain.Severities {
		severities = append(severities, string(s))
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"command": {
				Type:        genai.TypeString,
				Description: "Professional medical or tactical command (max 8 words).",
			},
			"context": {
				Type:        genai.TypeString,
				Description: "Immediate safety context (max 4 words).",
			},
			"emergencyType": {
				Type:        genai.TypeString,
				Format:      "enum",
				Enum:        types,
				Description: "Category.",
			},
			"severity": {
				Type:        genai.TypeString,
				Format:      "enum",
				Enum:        severities,
				Description: "Threat level.",
			},
		},
		Required: []string{"command", "context", "emergencyType", "severity"},
	}
}

func (c *GeminiClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *GeminiClient) Assess(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.directive.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate directive: %w", err)
	}
	return responseText(resp)
}

func (c *GeminiClient) AssessImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.vision.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: image}, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("analyze image: %w", err)
	}
	return responseText(resp)
}

func (c *GeminiClient) Ask(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.assistant.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
