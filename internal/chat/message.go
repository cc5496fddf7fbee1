package chat

import (
	"strconv"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/markup"
)

// Greeting is shown in a conversation that has no messages yet. It is
// never sent to the server.
const Greeting = `[Vietsub] Chào bạn! Mình là Teacher Da Vinci, giáo viên tiếng Anh của bạn.
[Vietsub] Mình sẽ giúp bạn học tiếng Anh một cách tự nhiên và thú vị. Bạn có thể hỏi mình về từ vựng, ngữ pháp, cách phát âm, hoặc luyện hội thoại.
[Vietsub] Bạn muốn bắt đầu với chủ đề gì hôm nay?
[Actions] Học từ vựng cơ bản | Luyện phát âm | Ngữ pháp tiếng Anh | Hội thoại giao tiếp`

// ContinuePrompt is sent by Continue after an interrupted reply.
const ContinuePrompt = "Tiếp tục"

// Message is one entry of the visible transcript. ID is the server id and
// is zero until the server reports it; LocalID identifies optimistic user
// messages.
type Message struct {
	LocalID string
	ID      int
	Role    api.Role
	Content string
	Status  api.Status
	Tokens  *api.TokenUsage
}

// FromAPI converts a stored message. Pending messages are shown as
// cancelled, matching how the server closes them on load.
func FromAPI(m api.Message) Message {
	status := m.Status
	if status == "" {
		status = api.StatusCompleted
	}
	if status == api.StatusPending {
		status = api.StatusCancelled
	}
	return Message{ID: m.ID, Role: m.Role, Content: m.Content, Status: status, Tokens: m.Tokens}
}

// Cancelled reports whether the message was interrupted.
func (m Message) Cancelled() bool {
	return m.Status == api.StatusCancelled
}

// View is the render input for the message.
func (m Message) View() markup.MessageView {
	v := markup.MessageView{
		ID:        m.LocalID,
		Assistant: m.Role == api.RoleAssistant,
		Content:   m.Content,
		Cancelled: m.Cancelled(),
	}
	if m.ID != 0 {
		v.ID = strconv.Itoa(m.ID)
	}
	if m.Tokens != nil {
		v.TotalTokens = m.Tokens.TotalTokens
	}
	return v
}

// Actions returns the follow-up prompts of a completed assistant message.
func (m Message) Actions() []string {
	if m.Role != api.RoleAssistant || m.Cancelled() {
		return []string{}
	}
	return markup.ExtractActions(m.Content)
}
