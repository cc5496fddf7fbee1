package api

import (
	"context"
	"net/http"
	"net/url"
)

func conversationPath(id string) string {
	return "/api/conversations/" + url.PathEscape(id)
}

// Conversations lists live conversations, most recently updated first.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// CreateConversation starts an empty conversation.
func (c *Client) CreateConversation(ctx context.Context) (*Conversation, error) {
	var out struct {
		Conversation Conversation `json:"conversation"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

// Conversation loads one conversation with its messages. Messages still
// pending on the server are reported as cancelled.
func (c *Client) Conversation(ctx context.Context, id string) (*Conversation, error) {
	var out struct {
		Conversation Conversation `json:"conversation"`
	}
	if err := c.do(ctx, http.MethodGet, conversationPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

// RenameConversation sets a new title.
func (c *Client) RenameConversation(ctx context.Context, id, title string) (*Conversation, error) {
	var out struct {
		Conversation Conversation `json:"conversation"`
	}
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPut, conversationPath(id)+"/rename", body, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

// DeleteConversation soft-deletes a conversation. It can be restored for a
// short while with RestoreConversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, conversationPath(id), nil, nil)
}

// RestoreConversation undoes a recent delete. The server refuses once the
// undo window has passed.
func (c *Client) RestoreConversation(ctx context.Context, id string) (*Conversation, error) {
	var out struct {
		Conversation Conversation `json:"conversation"`
	}
	body := map[string]string{"id": id}
	if err := c.do(ctx, http.MethodPost, "/api/conversations/restore", body, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}
