package markup

import (
	"html"
	"strconv"
	"strings"
)

// StreamingCursor is appended to the message that is still receiving text.
const StreamingCursor = `<span class="streaming-cursor"></span>`

// MessageView is everything needed to draw one chat message.
type MessageView struct {
	ID          string
	Assistant   bool
	Content     string
	Cancelled   bool
	Streaming   bool
	TotalTokens int
}

// RenderMessage draws a full message node: the formatted body plus the
// cancelled footer, action chips and token badge that apply to it. memo may
// be nil.
func RenderMessage(v MessageView, memo *Memo) string {
	var b strings.Builder
	role := "user"
	if v.Assistant {
		role = "assistant"
	}
	b.WriteString(`<div class="message ` + role + `"`)
	if v.ID != "" {
		b.WriteString(` data-message-id="` + html.EscapeString(v.ID) + `"`)
	}
	b.WriteString(`>`)

	if !v.Assistant {
		b.WriteString(`<div class="message-content">` + html.EscapeString(v.Content))
		if v.Cancelled {
			b.WriteString(cancelledFooter("Chưa nhận được phản hồi"))
		}
		b.WriteString(`</div></div>`)
		return b.String()
	}

	b.WriteString(`<div class="message-content formatted-content">`)
	switch {
	case v.Streaming:
		b.WriteString(NewStream().Render(v.Content) + StreamingCursor)
	case memo != nil:
		b.WriteString(memo.Render(v.Content, Options{}))
	default:
		b.WriteString(Render(v.Content, Options{}))
	}
	if v.Cancelled {
		b.WriteString(cancelledFooter("Phản hồi bị gián đoạn"))
	} else if !v.Streaming {
		b.WriteString(RenderActions(ExtractActions(v.Content)))
	}
	if !v.Streaming {
		b.WriteString(`<div class="message-actions"><button class="btn-audio-toggle" title="Nghe"></button>`)
		if v.TotalTokens > 0 {
			b.WriteString(`<span class="token-badge">` + FormatTokens(v.TotalTokens) + ` tokens</span>`)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></div>`)
	return b.String()
}

func cancelledFooter(label string) string {
	return `<div class="message-cancelled"><span class="cancelled-text">` + label +
		`</span><button class="btn-retry">Thử lại</button><button class="btn-continue">Tiếp tục chat</button></div>`
}

// FormatTokens groups digits by thousands: 12345 -> "12,345".
func FormatTokens(n int) string {
	if n < 0 {
		return "-" + FormatTokens(-n)
	}
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
