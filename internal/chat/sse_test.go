package chat

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, body string) []Frame {
	t.Helper()
	r := NewFrameReader(strings.NewReader(body), nil)
	var frames []Frame
	for {
		f, err := r.Next()
		if err == io.EOF {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestFrameReader(t *testing.T) {
	body := strings.Join([]string{
		`data: {"type":"init","conversation_id":"c1","assistant_message_id":8}`,
		``,
		`: keep-alive comment`,
		`data: {"type":"chunk","content":"[Engsub] Hi"}`,
		`data: {"type":"chunk","content":" there"}` + "\r",
		`data: {"type":"done","conversation_id":"c1","message_id":7,"assistant_message_id":8,"tokens":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`,
		``,
	}, "\n")

	frames := readAll(t, body)
	require.Len(t, frames, 4)
	assert.Equal(t, Frame{Type: FrameInit, ConversationID: "c1", AssistantMessageID: 8}, frames[0])
	assert.Equal(t, "[Engsub] Hi", frames[1].Content)
	assert.Equal(t, " there", frames[2].Content)
	assert.Equal(t, FrameDone, frames[3].Type)
	assert.Equal(t, 7, frames[3].MessageID)
	require.NotNil(t, frames[3].Tokens)
	assert.Equal(t, 15, frames[3].Tokens.TotalTokens)
}

func TestFrameReaderSkipsBadLines(t *testing.T) {
	body := strings.Join([]string{
		`data: {"type":"chunk","content":"a"}`,
		`data: {not json`,
		`data:`,
		`data: [DONE]`,
		`data: {"type":"heartbeat"}`,
		`event: message`,
		`data:{"type":"chunk","content":"b"}`,
		`data: {"type":"error","error":"Lỗi server"}`,
	}, "\n")

	frames := readAll(t, body)
	require.Len(t, frames, 3)
	assert.Equal(t, "a", frames[0].Content)
	assert.Equal(t, "b", frames[1].Content)
	assert.Equal(t, Frame{Type: FrameError, Error: "Lỗi server"}, frames[2])
}

func TestFrameReaderLongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	frames := readAll(t, `data: {"type":"chunk","content":"`+long+`"}`+"\n")
	require.Len(t, frames, 1)
	assert.Len(t, frames[0].Content, len(long))
}

func TestFrameReaderTrailingPartialLine(t *testing.T) {
	frames := readAll(t, `data: {"type":"chunk","content":"a"}`+"\n"+`data: {"type":"chu`)
	require.Len(t, frames, 1)
}
