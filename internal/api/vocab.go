package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

func vocabPath(id int) string {
	return "/api/vocabularies/" + strconv.Itoa(id)
}

// Vocabularies lists saved words, newest first.
func (c *Client) Vocabularies(ctx context.Context) ([]Vocabulary, error) {
	var out struct {
		Vocabularies []Vocabulary `json:"vocabularies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/vocabularies", nil, &out); err != nil {
		return nil, err
	}
	return out.Vocabularies, nil
}

// AddVocabulary saves a word. When the word already exists the error wraps
// ErrConflict and the existing entry is returned alongside it.
func (c *Client) AddVocabulary(ctx context.Context, word, note string) (*Vocabulary, error) {
	var out struct {
		Vocabulary Vocabulary `json:"vocabulary"`
	}
	req := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"word": word, "note": note}).
		SetResult(&out)
	if tok := c.csrfToken(ctx); tok != "" {
		req.SetHeader(csrfHeader, tok)
	}
	resp, err := req.Post("/api/vocabularies")
	if err != nil {
		return nil, err
	}
	if err := checkVocabResponse(resp); err != nil {
		if errors.Is(err, ErrConflict) {
			var dup struct {
				Vocabulary *Vocabulary `json:"vocabulary"`
			}
			if sonic.Unmarshal(resp.Body(), &dup) == nil && dup.Vocabulary != nil {
				return dup.Vocabulary, err
			}
		}
		return nil, err
	}
	return &out.Vocabulary, nil
}

func checkVocabResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return checkResponse(resp)
	}
	var eb errorBody
	_ = sonic.Unmarshal(resp.Body(), &eb)
	return &Error{Status: resp.StatusCode(), Message: eb.Error}
}

// VocabularyUpdate changes an entry. Nil fields are left as they are.
type VocabularyUpdate struct {
	Word *string `json:"word,omitempty"`
	Note *string `json:"note,omitempty"`
}

// UpdateVocabulary edits the word or note of an entry.
func (c *Client) UpdateVocabulary(ctx context.Context, id int, body VocabularyUpdate) (*Vocabulary, error) {
	var out struct {
		Vocabulary Vocabulary `json:"vocabulary"`
	}
	if err := c.do(ctx, http.MethodPut, vocabPath(id), body, &out); err != nil {
		return nil, err
	}
	return &out.Vocabulary, nil
}

// DeleteVocabulary removes an entry.
func (c *Client) DeleteVocabulary(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, vocabPath(id), nil, nil)
}
