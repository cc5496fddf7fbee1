package history

import "context"

// NoopStore is used when history is disabled. It discards writes and
// returns empty results.
type NoopStore struct{}

func (s *NoopStore) Append(ctx context.Context, e *Entry) error {
	return nil
}

func (s *NoopStore) Transcript(ctx context.Context, conversationID string, limit int) ([]Entry, error) {
	return nil, nil
}

func (s *NoopStore) Conversations(ctx context.Context, limit int) ([]ConversationSummary, error) {
	return nil, nil
}

func (s *NoopStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return nil, nil
}

func (s *NoopStore) SetCurrent(ctx context.Context, conversationID string) error {
	return nil
}

func (s *NoopStore) Current(ctx context.Context) (string, error) {
	return "", nil
}

func (s *NoopStore) ClearCurrent(ctx context.Context) error {
	return nil
}

func (s *NoopStore) Close() error {
	return nil
}
