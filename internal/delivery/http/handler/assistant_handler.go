package handler

import (
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gdugdh24/rakshak-backend/internal/infrastructure/gemini"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/assistant"
	"github.com/gin-gonic/gin"
)

const maxImageBytes = 8 << 20

type AssistantHandler struct {
	assistantUseCase *assistant.AssistantUseCase
}

func NewAssistantHandler(assistantUseCase *assistant.AssistantUseCase) *AssistantHandler {
	return &AssistantHandler{
		assistantUseCase: assistantUseCase,
	}
}

type SpeechRequest struct {
	Text string `json:"text" binding:"required,max=1000"`
}

// SpeechResponse carries base64 raw PCM samples.
type SpeechResponse struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Encoding   string `json:"encoding"`
}

// Chat handles POST /assistant/chat
// @Summary Tactical directive
// @Description Classify the conversation and return one directive. Falls back to a scripted reply when the model is unavailable
// @Tags assistant
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body assistant.ChatRequest true "Conversation"
// @Success 200 {object} domain.Assessment
// @Failure 400 {object} ErrorResponse
// @Router /assistant/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req assistant.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}
	req.UserID = userID

	c.JSON(http.StatusOK, h.assistantUseCase.Respond(c.Request.Context(), req))
}

// Image handles POST /assistant/image
// @Summary Visual hazard assessment
// @Tags assistant
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Scene photo"
// @Param prompt formData string false "Question about the photo"
// @Param emergency_id formData string false "Emergency to classify"
// @Success 200 {object} domain.Assessment
// @Failure 400 {object} ErrorResponse
// @Router /assistant/image [post]
func (h *AssistantHandler) Image(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image is required")
		return
	}
	if file.Size > maxImageBytes {
		badRequest(c, "image too large")
		return
	}

	f, err := file.Open()
	if err != nil {
		badRequest(c, "unreadable image")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		badRequest(c, "unreadable image")
		return
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	c.JSON(http.StatusOK, h.assistantUseCase.AnalyzeImage(c.Request.Context(), assistant.ImageRequest{
		Image:       data,
		MimeType:    mimeType,
		Prompt:      c.PostForm("prompt"),
		EmergencyID: c.PostForm("emergency_id"),
		UserID:      userID,
	}))
}

// Ask handles POST /assistant/ask
// @Summary Safety question
// @Description Free-form question. In maps mode the location grounds the answer
// @Tags assistant
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body assistant.AskRequest true "Question"
// @Success 200 {object} domain.AssistantReply
// @Router /assistant/ask [post]
func (h *AssistantHandler) Ask(c *gin.Context) {
	var req assistant.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	c.JSON(http.StatusOK, h.assistantUseCase.Ask(c.Request.Context(), req))
}

// Speech handles POST /assistant/speech
// @Summary Text to speech
// @Description 16-bit mono PCM at 24kHz, or 204 when speech is unavailable
// @Tags assistant
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body SpeechRequest true "Text"
// @Success 200 {object} SpeechResponse
// @Success 204
// @Router /assistant/speech [post]
func (h *AssistantHandler) Speech(c *gin.Context) {
	var req SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	audio := h.assistantUseCase.Speak(c.Request.Context(), req.Text)
	if len(audio) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, SpeechResponse{
		Audio:      base64.StdEncoding.EncodeToString(audio),
		SampleRate: gemini.SpeechSampleRate,
		Channels:   gemini.SpeechChannels,
		Encoding:   gemini.SpeechEncoding,
	})
}
