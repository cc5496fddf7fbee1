package ui

import (
	"fmt"
	"time"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/chat"
	"github.com/samsaffron/term-tutor/internal/markup"
)

// SessionStats tracks what happened during one chat session.
type SessionStats struct {
	StartTime        time.Time
	TurnCount        int
	Interrupted      int
	PromptTokens     int
	CompletionTokens int

	// Time spent waiting for replies
	ReplyTime time.Duration
}

// NewSessionStats creates a new SessionStats with StartTime set to now.
func NewSessionStats() *SessionStats {
	return &SessionStats{StartTime: time.Now()}
}

// AddTurn records one exchange that ended with reply after took.
func (s *SessionStats) AddTurn(reply chat.Message, took time.Duration) {
	s.TurnCount++
	s.ReplyTime += took
	if reply.Status == api.StatusCancelled {
		s.Interrupted++
	}
	if reply.Tokens != nil {
		s.PromptTokens += reply.Tokens.PromptTokens
		s.CompletionTokens += reply.Tokens.CompletionTokens
	}
}

// Render returns the stats as a compact single-line string.
func (s SessionStats) Render() string {
	return s.render(time.Since(s.StartTime))
}

func (s SessionStats) render(total time.Duration) string {
	tokens := fmt.Sprintf("%s in / %s out",
		markup.FormatTokens(s.PromptTokens),
		markup.FormatTokens(s.CompletionTokens))

	// Stats: 4m12s (replies 38.2s) | 6 turns | 1,200 in / 4,500 out | 1 interrupted
	line := fmt.Sprintf("Stats: %s (replies %.1fs) | %d turns | %s",
		total.Round(time.Second), s.ReplyTime.Seconds(), s.TurnCount, tokens)
	if s.Interrupted > 0 {
		line += fmt.Sprintf(" | %d interrupted", s.Interrupted)
	}
	return line
}
