package api

import (
	"strings"
	"time"
)

// Role of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status of a stored message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// TokenUsage is the per-message token accounting reported by the server.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is one stored chat message.
type Message struct {
	ID        int         `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Status    Status      `json:"status"`
	Tokens    *TokenUsage `json:"tokens,omitempty"`
	CreatedAt Timestamp   `json:"created_at"`
}

// Conversation is a chat thread. Messages is only populated by
// GetConversation.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	TotalTokens int       `json:"total_tokens"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
	Messages    []Message `json:"messages,omitempty"`
}

// Vocabulary is a saved word with a free-form note.
type Vocabulary struct {
	ID        int       `json:"id"`
	Word      string    `json:"word"`
	Note      string    `json:"note"`
	CreatedAt Timestamp `json:"created_at"`
}

// Voice is one selectable TTS voice.
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// VoicePrefs is the voice chosen per language. Empty fields are left
// unchanged by SetVoices.
type VoicePrefs struct {
	Vi string `json:"vi,omitempty"`
	En string `json:"en,omitempty"`
}

// Voices lists the available voices per language and the current choice.
type Voices struct {
	Available map[string][]Voice `json:"voices"`
	Current   VoicePrefs         `json:"current"`
}

// UserTokens is the account-wide token budget.
type UserTokens struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// FinalizeResult is returned after closing out an interrupted reply.
type FinalizeResult struct {
	Message    Message    `json:"message"`
	UserTokens UserTokens `json:"user_tokens"`
}

// User is the logged-in account.
type User struct {
	ID              int       `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	TotalTokensUsed int       `json:"total_tokens_used"`
	TokenLimit      int       `json:"token_limit"`
	TokensRemaining int       `json:"tokens_remaining"`
	CreatedAt       Timestamp `json:"created_at"`
}

// Health is the server liveness report.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Timestamp is a server time. The server emits naive ISO-8601 UTC values
// without a zone designator, which time.Time cannot decode directly.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format("2006-01-02T15:04:05.999999") + `"`), nil
}
