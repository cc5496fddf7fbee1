package chat

import (
	"bufio"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/samsaffron/term-tutor/internal/api"
)

// FrameType is the "type" field of a stream frame.
type FrameType string

const (
	FrameInit  FrameType = "init"
	FrameChunk FrameType = "chunk"
	FrameDone  FrameType = "done"
	FrameError FrameType = "error"
)

// Frame is one decoded "data:" line of the chat stream.
type Frame struct {
	Type               FrameType       `json:"type"`
	Content            string          `json:"content,omitempty"`
	ConversationID     string          `json:"conversation_id,omitempty"`
	MessageID          int             `json:"message_id,omitempty"`
	AssistantMessageID int             `json:"assistant_message_id,omitempty"`
	Tokens             *api.TokenUsage `json:"tokens,omitempty"`
	Error              string          `json:"error,omitempty"`
}

const maxLogLine = 120

// FrameReader decodes the chat event stream line by line.
type FrameReader struct {
	scanner *bufio.Scanner
	log     *zap.Logger
}

// NewFrameReader reads frames from r. A nil logger disables logging.
func NewFrameReader(r io.Reader, log *zap.Logger) *FrameReader {
	if log == nil {
		log = zap.NewNop()
	}
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &FrameReader{scanner: scanner, log: log}
}

// Next returns the next well-formed frame, or io.EOF at the end of the
// stream. Lines that are not data lines are skipped. Malformed payloads
// are logged and skipped; empty payloads are skipped without logging.
func (r *FrameReader) Next() (Frame, error) {
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var f Frame
		if err := sonic.UnmarshalString(payload, &f); err != nil {
			r.log.Debug("skipping malformed frame", zap.String("line", clip(payload, maxLogLine)), zap.Error(err))
			continue
		}
		switch f.Type {
		case FrameInit, FrameChunk, FrameDone, FrameError:
			return f, nil
		}
		r.log.Debug("skipping unknown frame", zap.String("type", string(f.Type)))
	}
	if err := r.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
