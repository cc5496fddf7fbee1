package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ttsRequest struct {
	Text  string  `json:"text"`
	Lang  string  `json:"lang"`
	Speed float64 `json:"speed,omitempty"`
}

// SynthesizeSegment fetches MP3 audio for one short utterance. lang is
// "vi" or "en".
func (c *Client) SynthesizeSegment(ctx context.Context, text, lang string) ([]byte, error) {
	return c.audio(ctx, "/api/tts/single", ttsRequest{Text: text, Lang: lang})
}

// SynthesizePassage fetches MP3 audio for a longer passage at the given
// speed multiplier.
func (c *Client) SynthesizePassage(ctx context.Context, text, lang string, speed float64) ([]byte, error) {
	return c.audio(ctx, "/api/tts", ttsRequest{Text: text, Lang: lang, Speed: speed})
}

func (c *Client) audio(ctx context.Context, path string, body ttsRequest) ([]byte, error) {
	req := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetHeader("Accept", "audio/mpeg").
		SetError(&errorBody{})
	if tok := c.csrfToken(ctx); tok != "" {
		req.SetHeader(csrfHeader, tok)
	}
	resp, err := req.Post(path)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "audio/") {
		return nil, fmt.Errorf("tts: unexpected content type %q", ct)
	}
	data := resp.Body()
	if len(data) == 0 {
		return nil, fmt.Errorf("tts: empty audio")
	}
	return data, nil
}

// TTSStatus asks the server to synthesize a probe phrase.
func (c *Client) TTSStatus(ctx context.Context) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	err := c.do(ctx, http.MethodGet, "/api/tts/test", nil, &out)
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusInternalServerError {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Success, nil
}
