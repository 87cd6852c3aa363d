package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/qri-io/jsonschema"
	"go.uber.org/zap"
)

const historyTurns = 4

const defaultImagePrompt = "Analyze visual field for immediate life threats. Identify injuries, fire sources, or human threats. Provide professional tactical directives."

// Scripted replies used whenever the model cannot answer.
const (
	FallbackDirective = "MAINTAIN CURRENT POSITION. RAKSHAK AI IS COORDINATING ASSISTANCE."
	FallbackVision    = "VISUAL ANALYSIS SUSPENDED. DESCRIBE HAZARD VERBALLY TO RAKSHAK AI."
	FallbackSyncing   = "Synchronizing Rakshak AI with regional safety layers..."
	FallbackAsk       = "Intelligence synchronization failure. Rakshak AI suggests confirming device connectivity."
)

var errNoModel = errors.New("assistant model not configured")

// Generator is the hosted generative model.
type Generator interface {
	// Assess returns the JSON assessment of a conversation prompt.
	Assess(ctx context.Context, prompt string) (string, error)
	// AssessImage returns the JSON assessment of an image.
	AssessImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
	// Ask answers a free-form safety question.
	Ask(ctx context.Context, prompt string) (string, error)
}

// Speaker turns text into raw audio samples.
type Speaker interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Classifier stores the assessment on a live emergency raised by requesterID.
type Classifier interface {
	Classify(ctx context.Context, id, requesterID string, t domain.EmergencyType, s domain.Severity) (*domain.EmergencySession, error)
}

type AssistantUseCase struct {
	generator  Generator
	speaker    Speaker
	classifier Classifier
	schema     *jsonschema.Schema
	logger     *zap.Logger
}

// NewAssistantUseCase builds the gateway. generator and speaker may be nil,
// in which case every call returns its fallback.
func NewAssistantUseCase(generator Generator, speaker Speaker, classifier Classifier, logger *zap.Logger) (*AssistantUseCase, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile assessment schema: %w", err)
	}
	return &AssistantUseCase{
		generator:  generator,
		speaker:    speaker,
		classifier: classifier,
		schema:     schema,
		logger:     logger,
	}, nil
}

// ChatRequest is one conversation turn. UserID is the caller and is set by
// the transport; the assessment is stored on EmergencyID only when the
// caller raised it.
type ChatRequest struct {
	History     []domain.ChatMessage `json:"history" binding:"omitempty,max=50,dive"`
	Text        string               `json:"text" binding:"required,max=2000"`
	EmergencyID string               `json:"emergency_id"`
	UserID      string               `json:"-"`
}

type ImageRequest struct {
	Image       []byte
	MimeType    string
	Prompt      string
	EmergencyID string
	UserID      string
}

type AskRequest struct {
	Text     string               `json:"text" binding:"required,max=2000"`
	Mode     domain.AssistantMode `json:"mode" binding:"omitempty,oneof=chat maps"`
	Location *domain.GeoPoint     `json:"location"`
}

// BuildPrompt renders the last turns of history followed by text.
func BuildPrompt(history []domain.ChatMessage, text string) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		speaker := "Rakshak AI"
		if msg.Sender == domain.SenderUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+msg.Text)
	}
	if len(lines) > historyTurns {
		lines = lines[len(lines)-historyTurns:]
	}
	return fmt.Sprintf("%s\nUser: %s\nRakshak AI: PROFESSIONAL DIRECTIVE NOW.", strings.Join(lines, "\n"), text)
}

// Respond classifies the conversation. It never fails; model errors yield
// the scripted directive.
func (uc *AssistantUseCase) Respond(ctx context.Context, req ChatRequest) domain.Assessment {
	assessment, err := uc.respond(ctx, req)
	if err != nil {
		uc.logger.Warn("assistant chat fallback", zap.Error(err))
		return domain.Assessment{
			Text:     FallbackDirective,
			Type:     domain.TypeUncertain,
			Severity: domain.SeverityCritical,
			Fallback: true,
		}
	}
	uc.forward(ctx, req.EmergencyID, req.UserID, assessment)
	return assessment
}

func (uc *AssistantUseCase) respond(ctx context.Context, req ChatRequest) (domain.Assessment, error) {
	if uc.generator == nil {
		return domain.Assessment{}, errNoModel
	}
	raw, err := uc.generator.Assess(ctx, BuildPrompt(req.History, req.Text))
	if err != nil {
		return domain.Assessment{}, err
	}
	return uc.parse(ctx, raw)
}

// AnalyzeImage classifies a photo of the scene with the same discipline as
// Respond.
func (uc *AssistantUseCase) AnalyzeImage(ctx context.Context, req ImageRequest) domain.Assessment {
	assessment, err := uc.analyzeImage(ctx, req)
	if err != nil {
		uc.logger.Warn("assistant vision fallback", zap.Error(err))
		return domain.Assessment{
			Text:     FallbackVision,
			Type:     domain.TypeUncertain,
			Severity: domain.SeverityHigh,
			Fallback: true,
		}
	}
	uc.forward(ctx, req.EmergencyID, req.UserID, assessment)
	return assessment
}

func (uc *AssistantUseCase) analyzeImage(ctx context.Context, req ImageRequest) (domain.Assessment, error) {
	if uc.generator == nil {
		return domain.Assessment{}, errNoModel
	}
	if len(req.Image) == 0 {
		return domain.Assessment{}, domain.ErrInvalidInput
	}
	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultImagePrompt
	}
	raw, err := uc.generator.AssessImage(ctx, req.Image, req.MimeType, prompt)
	if err != nil {
		return domain.Assessment{}, err
	}
	return uc.parse(ctx, raw)
}

func (uc *AssistantUseCase) parse(ctx context.Context, raw string) (domain.Assessment, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	verrs, err := uc.schema.ValidateBytes(ctx, []byte(raw))
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("invalid model output: %w", err)
	}
	if len(verrs) > 0 {
		return domain.Assessment{}, fmt.Errorf("model output violates schema: %s", verrs[0].Error())
	}

	var out modelAssessment
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return domain.Assessment{}, fmt.Errorf("decode model output: %w", err)
	}
	return domain.Assessment{
		Text:     strings.ToUpper(out.Command) + ". " + strings.ToUpper(out.Context),
		Command:  out.Command,
		Type:     domain.ParseEmergencyType(out.EmergencyType),
		Severity: domain.ParseSeverity(out.Severity),
	}, nil
}

// forward records a model assessment on the emergency it was made for.
func (uc *AssistantUseCase) forward(ctx context.Context, emergencyID, userID string, a domain.Assessment) {
	if emergencyID == "" || userID == "" || uc.classifier == nil {
		return
	}
	if _, err := uc.classifier.Classify(ctx, emergencyID, userID, a.Type, a.Severity); err != nil {
		uc.logger.Warn("failed to classify emergency",
			zap.String("emergency_id", emergencyID), zap.Error(err))
	}
}

// Ask answers a safety-asset question. In maps mode the caller's coordinate
// grounds the answer.
func (uc *AssistantUseCase) Ask(ctx context.Context, req AskRequest) domain.AssistantReply {
	if uc.generator == nil {
		return domain.AssistantReply{Text: FallbackAsk, Fallback: true}
	}
	prompt := req.Text
	if req.Mode == domain.ModeMaps && req.Location != nil && req.Location.Valid() {
		prompt = fmt.Sprintf("%s\n\nUser location: latitude %.6f, longitude %.6f. Rank nearby safety assets by distance from this point.",
			req.Text, req.Location.Lat, req.Location.Lng)
	}
	text, err := uc.generator.Ask(ctx, prompt)
	if err != nil {
		uc.logger.Warn("assistant ask fallback", zap.Error(err))
		return domain.AssistantReply{Text: FallbackAsk, Fallback: true}
	}
	if strings.TrimSpace(text) == "" {
		return domain.AssistantReply{Text: FallbackSyncing, Fallback: true}
	}
	return domain.AssistantReply{Text: strings.TrimSpace(text)}
}

// Speak returns PCM audio for text, or nil when speech is unavailable.
func (uc *AssistantUseCase) Speak(ctx context.Context, text string) []byte {
	if uc.speaker == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	audio, err := uc.speaker.Synthesize(ctx, text)
	if err != nil {
		uc.logger.Warn("speech synthesis failed", zap.Error(err))
		return nil
	}
	return audio
}
