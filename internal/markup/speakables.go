package markup

import (
	"net/url"
	"regexp"
)

var speakAttr = regexp.MustCompile(`data-speak="([^"]*)"`)

// Speakables returns the decoded data-speak values of rendered HTML in
// document order.
func Speakables(rendered string) []string {
	var out []string
	for _, m := range speakAttr.FindAllStringSubmatch(rendered, -1) {
		text, err := url.PathUnescape(m[1])
		if err != nil || text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}
