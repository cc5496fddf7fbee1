package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samsaffron/term-tutor/internal/markup"
)

func testConverter(width int) *Converter {
	return NewConverter(NewStyledWithTheme(&bytes.Buffer{}, DefaultTheme()), width)
}

func TestConvertAssistantMessage(t *testing.T) {
	content := "[Vietsub] Chào bạn, hôm nay mình học chào hỏi.\n" +
		"[Engsub] Nice to meet you, my name is Anna.\n" +
		"[Tip] Hãy luyện nói to mỗi ngày.\n" +
		"[Actions] Học từ vựng | Luyện phát âm"
	fragment := markup.RenderMessage(markup.MessageView{Assistant: true, Content: content, TotalTokens: 12345}, nil)

	r := testConverter(0).Convert(fragment)
	text := ansi.Strip(r.Text)

	assert.Contains(t, text, "Chào bạn, hôm nay mình học chào hỏi.")
	assert.Contains(t, text, "\nNice to meet you, my name is Anna. [1]")
	assert.Contains(t, text, TipIcon+" Hãy luyện nói to mỗi ngày.")
	assert.Contains(t, text, "→ 1. Học từ vựng")
	assert.Contains(t, text, "→ 2. Luyện phát âm")
	assert.Contains(t, text, "12,345 tokens")
	assert.NotContains(t, text, "<")

	assert.Equal(t, []string{"Học từ vựng", "Luyện phát âm"}, r.Actions)
	require.NotEmpty(t, r.Speakables)
	assert.Equal(t, markup.Speakables(fragment), r.Speakables)
	assert.Contains(t, text, "[1]")
}

func TestConvertTable(t *testing.T) {
	fragment := markup.RenderTable("Word | Meaning || apple | quả táo || run | chạy", false)

	r := testConverter(80).Convert(fragment)
	lines := strings.Split(ansi.Strip(r.Text), "\n")

	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "┌"))
	assert.Contains(t, lines[1], "Word")
	assert.True(t, strings.HasPrefix(lines[2], "├"))
	assert.Contains(t, lines[3], "apple [1]")
	assert.Contains(t, lines[3], "quả táo")
	assert.Contains(t, lines[4], "run [2]")
	assert.True(t, strings.HasPrefix(lines[5], "└"))
	for _, l := range lines {
		assert.Equal(t, ansi.StringWidth(lines[0]), ansi.StringWidth(l), l)
	}
	assert.Equal(t, []string{"apple", "run"}, r.Speakables)
}

func TestConvertTableFitsWidth(t *testing.T) {
	fragment := markup.RenderTable("Word | Meaning || "+strings.Repeat("long ", 20)+"| dài", false)

	r := testConverter(30).Convert(fragment)
	for _, l := range strings.Split(r.Text, "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(l), 30, l)
	}
}

func TestConvertWraps(t *testing.T) {
	long := strings.Repeat("Mình thích học tiếng Anh mỗi ngày. ", 6)
	fragment := `<span class="vietnamese-text">` + long + `</span>`

	r := testConverter(24).Convert(fragment)
	lines := strings.Split(r.Text, "\n")
	assert.Greater(t, len(lines), 3)
	for _, l := range lines {
		assert.LessOrEqual(t, ansi.StringWidth(l), 24, l)
	}
}

func TestConvertCancelledUserMessage(t *testing.T) {
	fragment := markup.RenderMessage(markup.MessageView{Content: "xin chào", Cancelled: true}, nil)

	text := ansi.Strip(testConverter(80).Convert(fragment).Text)
	assert.Contains(t, text, "› xin chào")
	assert.Contains(t, text, FailIcon+" Chưa nhận được phản hồi")
}

func TestConvertCancelledReplyHasNoActions(t *testing.T) {
	fragment := markup.RenderMessage(markup.MessageView{
		Assistant: true,
		Content:   "[Vietsub] Đang nói dở\n[Actions] Một | Hai",
		Cancelled: true,
	}, nil)

	r := testConverter(80).Convert(fragment)
	assert.Empty(t, r.Actions)
	assert.Contains(t, ansi.Strip(r.Text), "Phản hồi bị gián đoạn")
}

func TestConvertStreamingPlaceholders(t *testing.T) {
	r := testConverter(80).Convert(markup.TableLoading + markup.StreamingCursor)
	text := ansi.Strip(r.Text)
	assert.Contains(t, text, "Đang tạo bảng...")
	assert.Contains(t, text, Cursor)
}

func TestConvertVocabList(t *testing.T) {
	fragment := `<ul class="vocab-list"><li><span class="list-num">1.</span> apple: quả táo</li>` +
		`<li><span class="list-num">2.</span> pear: quả lê</li></ul>`

	lines := strings.Split(ansi.Strip(testConverter(80).Convert(fragment).Text), "\n")
	assert.Equal(t, []string{"  1. apple: quả táo", "  2. pear: quả lê"}, lines)
}

func TestConvertGeneratedList(t *testing.T) {
	fragment := markup.RenderList("Greetings | Hello there | Good morning")

	text := ansi.Strip(testConverter(80).Convert(fragment).Text)
	assert.Contains(t, text, "Greetings")
	assert.Contains(t, text, "  • Hello there")
	assert.Contains(t, text, "  • Good morning")
}

func TestConvertToleratesBrokenMarkup(t *testing.T) {
	r := testConverter(80).Convert(`<span class="english-sentence" data-speak="Hi%20there">Hi <strong>there`)
	assert.Equal(t, "Hi there [1]", ansi.Strip(r.Text))
	assert.Equal(t, []string{"Hi there"}, r.Speakables)
}

func TestFitColumns(t *testing.T) {
	widths := []int{30, 10}
	fitColumns(widths, 30)
	assert.LessOrEqual(t, 1+widths[0]+3+widths[1]+3, 30)
	assert.Equal(t, 10, widths[1])

	narrow := []int{5, 5}
	fitColumns(narrow, 3)
	assert.Equal(t, []int{4, 4}, narrow)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines("", 10))
	assert.Equal(t, 1, countLines("abc\n", 10))
	assert.Equal(t, 3, countLines(strings.Repeat("x", 25), 10))
	assert.Equal(t, 3, countLines("a\n\nb", 10))
	assert.Equal(t, 1, countLines(strings.Repeat("x", 25), 0))
}
