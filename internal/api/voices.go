package api

import (
	"context"
	"net/http"

	gocache "github.com/patrickmn/go-cache"
)

// Voices returns the voice catalog and current choice. The result is cached
// for a few minutes; SetVoices invalidates it.
func (c *Client) Voices(ctx context.Context) (*Voices, error) {
	if v, ok := c.cache.Get(voicesKey); ok {
		return v.(*Voices), nil
	}
	var out Voices
	if err := c.do(ctx, http.MethodGet, "/api/voices", nil, &out); err != nil {
		return nil, err
	}
	c.cache.Set(voicesKey, &out, gocache.DefaultExpiration)
	return &out, nil
}

// SetVoices changes the voice per language and returns the new choice.
func (c *Client) SetVoices(ctx context.Context, prefs VoicePrefs) (VoicePrefs, error) {
	c.cache.Delete(voicesKey)
	var out struct {
		Current VoicePrefs `json:"current"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/voices", prefs, &out); err != nil {
		return VoicePrefs{}, err
	}
	return out.Current, nil
}
