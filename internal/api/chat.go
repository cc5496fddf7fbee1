package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
)

// ChatRequest starts a reply. RetryMessageID re-sends an existing user
// message instead of storing a new one.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	RetryMessageID int    `json:"retry_message_id,omitempty"`
}

// StreamChat posts a message and returns the raw event stream. The caller
// must close it; cancelling ctx aborts the transfer.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	r := c.stream.R().
		SetContext(ctx).
		SetBody(req).
		SetHeader("Accept", "text/event-stream").
		SetDoNotParseResponse(true)
	if tok := c.csrfToken(ctx); tok != "" {
		r.SetHeader(csrfHeader, tok)
	}

	resp, err := r.Post("/api/chat")
	if err != nil {
		return nil, fmt.Errorf("open chat stream: %w", err)
	}
	body := resp.RawBody()
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return body, nil
	}
	defer body.Close()

	e := &Error{Status: status}
	if status >= 300 && status < 400 {
		e.Status = http.StatusUnauthorized
	}
	raw, _ := io.ReadAll(io.LimitReader(body, 64<<10))
	var eb errorBody
	if sonic.Unmarshal(raw, &eb) == nil {
		e.Message = eb.Error
	}
	return nil, e
}

// Finalize closes out an interrupted assistant message. The server
// estimates its token cost when the stream never reported one.
func (c *Client) Finalize(ctx context.Context, messageID int, status Status) (*FinalizeResult, error) {
	var out FinalizeResult
	path := "/api/messages/" + strconv.Itoa(messageID) + "/finalize"
	if err := c.do(ctx, http.MethodPost, path, map[string]Status{"status": status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
