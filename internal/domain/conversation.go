package domain

import (
	"strings"
	"time"
)

// ConversationStatus represents the lifecycle status of a conversation
type ConversationStatus string

const (
	ConversationStatusActive  ConversationStatus = "active"
	ConversationStatusDeleted ConversationStatus = "deleted"
)

// SenderType identifies who authored a message
type SenderType string

const (
	SenderUser SenderType = "user"
	SenderAI   SenderType = "ai"
)

const (
	previewChars = 100
	titleChars   = 50
)

// Conversation represents a chat session. It references at most one
// selected document; a nil selection still allows global-corpus retrieval.
type Conversation struct {
	ID                 int64
	UserID             int64
	Title              string
	Status             ConversationStatus
	SelectedDocumentID *int64
	MessageCount       int
	LastMessagePreview string
	IsPinned           bool
	CreatedAt          time.Time
	LastUpdated        time.Time
}

// Message represents one chat turn stored on a conversation
type Message struct {
	ID             int64
	ConversationID int64
	Sender         SenderType
	Content        string
	ContentHash    []byte
	TokenCount     int
	Model          string
	IsEdited       bool
	CreatedAt      time.Time
}

// NewMessage creates a Message with its content hash and token estimate.
func NewMessage(conversationID int64, sender SenderType, content, model string, createdAt time.Time) *Message {
	return &Message{
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		ContentHash:    Fingerprint(content),
		TokenCount:     EstimateTokens(content),
		Model:          model,
		CreatedAt:      createdAt,
	}
}

// MessagePreview returns the bounded preview stored on the conversation.
func MessagePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewChars {
		return content
	}
	return string(runes[:previewChars]) + "..."
}

// ConversationTitle derives a title for a fresh conversation from its first
// exchange, preferring the assistant reply when it is substantial.
func ConversationTitle(aiResponse, userMessage string) string {
	source := userMessage
	if len([]rune(aiResponse)) > titleChars {
		source = aiResponse
	}
	runes := []rune(source)
	title := source
	if len(runes) > titleChars {
		title = string(runes[:titleChars]) + "..."
	}
	title = strings.ReplaceAll(title, "\n", " ")
	return strings.ReplaceAll(title, "\r", "")
}
