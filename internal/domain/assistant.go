package domain

type ChatSender string

const (
	SenderUser   ChatSender = "user"
	SenderAI     ChatSender = "ai"
	SenderSystem ChatSender = "system"
)

type ChatMessage struct {
	Sender ChatSender `json:"sender" binding:"required,oneof=user ai system"`
	Text   string     `json:"text" binding:"required"`
}

// Assessment is the classified reply of the assistant.
type Assessment struct {
	Text     string        `json:"text"`
	Command  string        `json:"command,omitempty"`
	Type     EmergencyType `json:"type"`
	Severity Severity      `json:"severity"`
	Fallback bool          `json:"fallback,omitempty"`
}

type AssistantMode string

const (
	ModeChat AssistantMode = "chat"
	ModeMaps AssistantMode = "maps"
)

type AssistantReply struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback,omitempty"`
}

type CommunityStats struct {
	TotalLivesImpacted int    `json:"total_lives_impacted"`
	ActiveHelpers      int    `json:"active_helpers"`
	OpenEmergencies    int    `json:"open_emergencies"`
	AvgResponseTime    string `json:"avg_response_time"`
	SafetyIndex        string `json:"safety_index"`
}
