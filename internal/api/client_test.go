package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler, cookie string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL, Cookie: cookie, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
	c, err := New(Options{BaseURL: "http://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", c.BaseURL())
}

func TestConversationsSendsCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("session")
		if err != nil || ck.Value != "abc" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized", "login_required": true})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversations": []map[string]any{
			{"id": "c1", "title": "Hello", "total_tokens": 42, "created_at": "2024-05-01T10:00:00.123456", "updated_at": "2024-05-01T10:05:00"},
		}})
	})
	c := newTestClient(t, mux, "session=abc")

	convs, err := c.Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "c1", convs[0].ID)
	assert.Equal(t, 42, convs[0].TotalTokens)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), convs[0].CreatedAt.Time)
	assert.Equal(t, 5, convs[0].UpdatedAt.Minute())
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized", "login_required": true})
	})
	c := newTestClient(t, mux, "")

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestRedirectIsUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/vocabularies", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	c := newTestClient(t, mux, "")

	_, err := c.Vocabularies(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMutatingRequestsCarryCSRFToken(t *testing.T) {
	var tokenFetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		tokenFetches.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "tok"})
	})
	mux.HandleFunc("DELETE /api/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRFToken") != "tok" {
			http.Error(w, "The CSRF token is missing.", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	c := newTestClient(t, mux, "")

	require.NoError(t, c.DeleteConversation(context.Background(), "c1"))
	require.NoError(t, c.DeleteConversation(context.Background(), "c2"))
	assert.EqualValues(t, 1, tokenFetches.Load())
}

func TestCSRFRejectionRefetchesOnce(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var tokenFetches atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/csrf-token", func(w http.ResponseWriter, r *http.Request) {
				n := tokenFetches.Add(1)
				writeJSON(w, http.StatusOK, map[string]string{"csrf_token": map[int32]string{1: "stale", 2: "fresh"}[n]})
			})
			mux.HandleFunc("POST /api/conversations", func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("X-CSRFToken") != "fresh" {
					http.Error(w, "The CSRF token is invalid.", status)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"conversation": map[string]any{"id": "new", "title": "Cuộc trò chuyện mới"}})
			})
			c := newTestClient(t, mux, "")

			conv, err := c.CreateConversation(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "new", conv.ID)
			assert.EqualValues(t, 2, tokenFetches.Load())
		})
	}
}

func TestForbiddenWithoutCSRFIsNotRetried(t *testing.T) {
	var posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "tok"})
	})
	mux.HandleFunc("POST /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Bạn đã hết token"})
	})
	c := newTestClient(t, mux, "")

	_, err := c.CreateConversation(context.Background())
	assert.ErrorIs(t, err, ErrForbidden)
	assert.EqualValues(t, 1, posts.Load())
}

func TestStreamChat(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Message {
		case "quota":
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Bạn đã hết token."})
		default:
			assert.Equal(t, "c1", req.ConversationID)
			assert.Equal(t, 7, req.RetryMessageID)
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "data: {\"type\":\"chunk\",\"content\":\"hi\"}\n\n")
		}
	})
	c := newTestClient(t, mux, "")

	body, err := c.StreamChat(context.Background(), ChatRequest{Message: "hello", ConversationID: "c1", RetryMessageID: 7})
	require.NoError(t, err)
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Contains(t, string(raw), `"content":"hi"`)

	_, err = c.StreamChat(context.Background(), ChatRequest{Message: "quota"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "hết token")
}

func TestFinalize(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/messages/{id}/finalize", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.PathValue("id"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cancelled", body["status"])
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"message":     map[string]any{"id": 12, "role": "assistant", "status": "cancelled", "tokens": map[string]int{"total_tokens": 90}},
			"user_tokens": map[string]int{"used": 1000, "limit": 100000, "remaining": 99000},
		})
	})
	c := newTestClient(t, mux, "")

	res, err := c.Finalize(context.Background(), 12, StatusCancelled)
	require.NoError(t, err)
	require.NotNil(t, res.Message.Tokens)
	assert.Equal(t, 90, res.Message.Tokens.TotalTokens)
	assert.Equal(t, StatusCancelled, res.Message.Status)
	assert.Equal(t, 99000, res.UserTokens.Remaining)
}

func TestAddVocabularyConflictReturnsExisting(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/vocabularies", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["word"] == "apple" {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":      "Từ này đã có trong danh sách",
				"vocabulary": map[string]any{"id": 3, "word": "apple", "note": "quả táo"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "vocabulary": map[string]any{"id": 4, "word": body["word"], "note": body["note"]}})
	})
	c := newTestClient(t, mux, "")

	v, err := c.AddVocabulary(context.Background(), "apple", "")
	assert.ErrorIs(t, err, ErrConflict)
	require.NotNil(t, v)
	assert.Equal(t, 3, v.ID)
	assert.Equal(t, "quả táo", v.Note)

	v, err = c.AddVocabulary(context.Background(), "pear", "quả lê")
	require.NoError(t, err)
	assert.Equal(t, 4, v.ID)
}

func TestUpdateVocabularySendsOnlySetFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/vocabularies/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasWord := body["word"]
		assert.False(t, hasWord)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "vocabulary": map[string]any{"id": 5, "word": "run", "note": body["note"]}})
	})
	c := newTestClient(t, mux, "")

	note := "chạy"
	v, err := c.UpdateVocabulary(context.Background(), 5, VocabularyUpdate{Note: &note})
	require.NoError(t, err)
	assert.Equal(t, "chạy", v.Note)
}

func TestVoicesAreCachedUntilChanged(t *testing.T) {
	var gets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/voices", func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"voices":  map[string]any{"en": []map[string]string{{"id": "en-US-AriaNeural", "name": "Aria", "gender": "female"}}},
			"current": map[string]string{"vi": "vi-VN-HoaiMyNeural", "en": "en-US-AriaNeural"},
		})
	})
	mux.HandleFunc("POST /api/voices", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "current": map[string]string{"vi": "vi-VN-HoaiMyNeural", "en": "en-US-GuyNeural"}})
	})
	c := newTestClient(t, mux, "")
	ctx := context.Background()

	v, err := c.Voices(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aria", v.Available["en"][0].Name)
	_, err = c.Voices(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, gets.Load())

	cur, err := c.SetVoices(ctx, VoicePrefs{En: "en-US-GuyNeural"})
	require.NoError(t, err)
	assert.Equal(t, "en-US-GuyNeural", cur.En)
	_, err = c.Voices(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, gets.Load())
}

func TestSynthesizeSegment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tts/single", func(w http.ResponseWriter, r *http.Request) {
		var body ttsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Text == "x" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Text trống"})
			return
		}
		assert.Equal(t, "en", body.Lang)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio"))
	})
	c := newTestClient(t, mux, "")

	data, err := c.SynthesizeSegment(context.Background(), "Hello there", "en")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), data)

	_, err = c.SynthesizeSegment(context.Background(), "x", "en")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Text trống", apiErr.Message)
}

func TestSynthesizeRejectsNonAudio(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>login</html>")
	})
	c := newTestClient(t, mux, "")

	_, err := c.SynthesizePassage(context.Background(), "Xin chào", "vi", 1.0)
	assert.ErrorContains(t, err, "unexpected content type")
}

func TestHealthNeedsNoSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_, err := r.Cookie("session")
		assert.Error(t, err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "timestamp": "2026-10-19T08:00:00"})
	})
	c := newTestClient(t, mux, "")

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestTTSStatus(t *testing.T) {
	var broken atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tts/test", func(w http.ResponseWriter, r *http.Request) {
		if broken.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "edge-tts failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	c := newTestClient(t, mux, "")

	ok, err := c.TTSStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	broken.Store(true)
	ok, err = c.TTSStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginStoresSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Tên đăng nhập hoặc mật khẩu không đúng"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "fresh", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": map[string]any{"id": 1, "username": "lan", "tokens_remaining": 500}})
	})
	c := newTestClient(t, mux, "")

	_, err := c.Login(context.Background(), "lan", "wrong", false)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, c.Cookie())

	u, err := c.Login(context.Background(), "lan", "secret", true)
	require.NoError(t, err)
	assert.Equal(t, "lan", u.Username)
	assert.Equal(t, "session=fresh", c.Cookie())
}

func TestTimestampRoundTrip(t *testing.T) {
	var ts Timestamp
	require.NoError(t, ts.UnmarshalJSON([]byte(`"2024-01-02T03:04:05"`)))
	assert.Equal(t, 2024, ts.Year())
	b, err := ts.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-02T03:04:05"`, string(b))

	require.NoError(t, ts.UnmarshalJSON([]byte(`null`)))
	assert.True(t, ts.IsZero())
	assert.Error(t, ts.UnmarshalJSON([]byte(`"yesterday"`)))
}
