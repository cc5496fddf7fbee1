package history

import "time"

// Entry is one stored message.
type Entry struct {
	ID             int64
	ConversationID string
	ServerID       int // message id on the server, 0 if unknown
	Role           string
	Content        string
	Status         string
	TotalTokens    int
	CreatedAt      time.Time
}

// ConversationSummary aggregates the entries of one conversation.
type ConversationSummary struct {
	ConversationID string
	FirstMessage   string
	MessageCount   int
	TotalTokens    int
	UpdatedAt      time.Time
}

// SearchResult is one full-text match.
type SearchResult struct {
	EntryID        int64
	ConversationID string
	Role           string
	Snippet        string
	CreatedAt      time.Time
}
