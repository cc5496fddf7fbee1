package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "vietnamese then short english",
			content: "[Vietsub] Xin chào [Engsub] Hello world",
			want:    `<span class="vietnamese-text">Xin chào</span><span class="english-word" data-speak="Hello%20world">Hello world</span> `,
		},
		{
			name:    "long sentence",
			content: "[Engsub] I like to eat apples every day.",
			want:    `<span class="english-sentence" data-speak="I%20like%20to%20eat%20apples%20every%20day.">I like to eat apples every day.</span>`,
		},
		{
			name:    "grammar pattern",
			content: "[Engsub] **S** + V",
			want:    `<span class="english-grammar"><strong>S</strong> + V</span> `,
		},
		{
			name:    "consecutive vietnamese joined",
			content: "[Vietsub] Một [Vietsub] Hai ba",
			want:    `<span class="vietnamese-text">Một Hai ba</span>`,
		},
		{
			name:    "numbered list block",
			content: "[Vietsub] 1. Táo [Vietsub] 2. Cam [Vietsub] Hết",
			want: `<ul class="vocab-list"><li><span class="list-num">1.</span> <span class="vietnamese-text">Táo</span></li>` +
				`<li><span class="list-num">2.</span> <span class="vietnamese-text">Cam Hết</span></li></ul>`,
		},
		{
			name:    "section header",
			content: "[Vietsub] Mở đầu [Vietsub] **Phần 1** [Vietsub] nội dung",
			want:    `<span class="vietnamese-text">Mở đầu</span><br><br><span class="vietnamese-text"><strong>Phần 1</strong> nội dung</span>`,
		},
		{
			name:    "dialogue",
			content: "[Vietsub] **A:** Chào **B:** Hi",
			want:    `<span class="vietnamese-text"><strong>A:</strong> Chào <br><strong>B:</strong> Hi</span><br>`,
		},
		{
			name:    "divider",
			content: "[Vietsub] trước *** sau",
			want:    `<span class="vietnamese-text">trước</span><br><hr class="divider"><span class="vietnamese-text">sau</span>`,
		},
		{
			name:    "untagged text",
			content: "xin chào\n\nbạn",
			want:    `<span class="vietnamese-text">xin chào<hr class="divider"><br>bạn</span>`,
		},
		{
			name:    "html is escaped",
			content: "[Vietsub] a <b> c",
			want:    `<span class="vietnamese-text">a &lt;b&gt; c</span>`,
		},
		{
			name:    "actions are not rendered in the body",
			content: "[Vietsub] Chào [Actions] A|B",
			want:    `<span class="vietnamese-text">Chào</span>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.content, Options{}))
		})
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	first := Render(sampleResponse, Options{})
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Render(sampleResponse, Options{}))
	}
}

func TestRenderTip(t *testing.T) {
	got := Render("[Vietsub] Trước [Tip] Nhớ **kỹ** nhé", Options{})
	assert.True(t, strings.HasPrefix(got, `<span class="vietnamese-text">Trước</span><div class="tip-box">`))
	assert.Contains(t, got, `<span class="tip-text">Nhớ <strong>kỹ</strong> nhé</span></div>`)
}

func TestRenderTipClosesOpenList(t *testing.T) {
	got := Render("[Vietsub] 1. Táo [Tip] Mẹo hay", Options{})
	assert.True(t, strings.HasPrefix(got, `<ul class="vocab-list"><li><span class="list-num">1.</span> <span class="vietnamese-text">Táo</span></li></ul><div class="tip-box">`))
}

func TestRenderTable(t *testing.T) {
	got := RenderTable("H1|H2||a|b||c|d", false)
	assert.Equal(t, 1, strings.Count(got, "<thead>"))
	assert.Equal(t, 3, strings.Count(got, "<tr>"))
	assert.Equal(t, 2, strings.Count(got, "<th>"))
	assert.Equal(t, 2, strings.Count(got, "<tr><td"))
	assert.Contains(t, got, `<td class="english-cell" data-speak="a">a</td>`)
}

func TestRenderTableVietnameseCells(t *testing.T) {
	got := RenderTable("Từ|Nghĩa||go...|đi", false)
	assert.Contains(t, got, `<td class="english-cell" data-speak="go">go...</td>`)
	assert.Contains(t, got, `<td>đi</td>`)
}

func TestRenderTableStreaming(t *testing.T) {
	assert.Equal(t, TableLoading, RenderTable("H1|H2", true))
	assert.NotEqual(t, TableLoading, RenderTable("H1|H2", false))
	assert.Contains(t, RenderTable("H1|H2||a", true), "<table")

	got := Render("[Table] H1|H2", Options{Streaming: true})
	assert.Equal(t, TableLoading, got)
}

func TestRenderList(t *testing.T) {
	got := RenderList("Colors|Red|Blue||Fruits|Apple|Quả táo")
	assert.Equal(t, 2, strings.Count(got, `<div class="list-group">`))
	assert.Contains(t, got, `<div class="list-header">Fruits</div>`)
	assert.Contains(t, got, `<span class="list-content">Quả táo</span>`)
	assert.Equal(t, []string{"Red", "Blue", "Apple"}, Speakables(got))
}

func TestRenderActions(t *testing.T) {
	assert.Empty(t, RenderActions(nil))
	assert.Equal(t,
		`<div class="suggested-actions"><button class="suggested-action-btn">A</button><button class="suggested-action-btn">B &amp; C</button></div>`,
		RenderActions([]string{"A", "B & C"}))
}

func TestFormatMarkdown(t *testing.T) {
	assert.Equal(t,
		`<div class="list-item"><span class="list-num">1.</span> one</div><div class="list-item"><span class="list-num">2.</span> two</div>`,
		FormatMarkdown("1. one\n2. two"))
	assert.Equal(t, `a<hr class="divider"><br>b`, FormatMarkdown("a\n***\nb"))
	assert.Equal(t, "Tiêu đề", FormatMarkdown("## Tiêu đề"))
	assert.Equal(t, "<strong>đậm</strong> và nghiêng", FormatMarkdown("**đậm** và *nghiêng*"))
}

func TestEncodeSpeak(t *testing.T) {
	assert.Equal(t, "don't%20stop%20(now)!", EncodeSpeak("don't stop (now)!"))
	assert.Equal(t, "a%2Bb", EncodeSpeak("a+b"))
	assert.Equal(t, "xin%20ch%C3%A0o", EncodeSpeak("xin chào"))
}

func TestSpeakablesDecode(t *testing.T) {
	html := Render("[Engsub] Good morning [Vietsub] chào [Engsub] see you", Options{})
	assert.Equal(t, []string{"Good morning", "see you"}, Speakables(html))
}

func TestRenderMessage(t *testing.T) {
	content := "[Vietsub] Chào [Actions] Thêm ví dụ|Luyện đọc"

	done := RenderMessage(MessageView{Assistant: true, Content: content, TotalTokens: 1234}, nil)
	assert.Contains(t, done, `<button class="suggested-action-btn">Thêm ví dụ</button>`)
	assert.Contains(t, done, `<span class="token-badge">1,234 tokens</span>`)
	assert.NotContains(t, done, "message-cancelled")

	cancelled := RenderMessage(MessageView{Assistant: true, Content: content, Cancelled: true}, nil)
	assert.Contains(t, cancelled, `class="btn-retry"`)
	assert.Contains(t, cancelled, `class="btn-continue"`)
	assert.NotContains(t, cancelled, "suggested-action-btn")
	assert.NotContains(t, cancelled, "token-badge")

	streaming := RenderMessage(MessageView{Assistant: true, Content: "[Vietsub] Đang", Streaming: true}, nil)
	assert.True(t, strings.HasSuffix(streaming, StreamingCursor+`</div></div>`))

	user := RenderMessage(MessageView{ID: "7", Content: "<hi>", Cancelled: true}, nil)
	assert.Contains(t, user, `data-message-id="7"`)
	assert.Contains(t, user, "&lt;hi&gt;")
	assert.Contains(t, user, "Chưa nhận được phản hồi")
}

func TestFormatTokens(t *testing.T) {
	assert.Equal(t, "0", FormatTokens(0))
	assert.Equal(t, "999", FormatTokens(999))
	assert.Equal(t, "1,000", FormatTokens(1000))
	assert.Equal(t, "1,234,567", FormatTokens(1234567))
}

func TestMemo(t *testing.T) {
	m := NewMemo(2)
	a := m.Render("[Vietsub] một hai", Options{})
	assert.Equal(t, a, m.Render("[Vietsub] một hai", Options{}))
	assert.Equal(t, 1, m.Len())

	m.Render("[Table] H1|H2", Options{Streaming: true})
	m.Render("[Table] H1|H2", Options{})
	assert.Equal(t, 2, m.Len())

	m.Purge()
	assert.Equal(t, 0, m.Len())
}
