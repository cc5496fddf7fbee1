package markup

// Stream renders one in-flight message. It owns the render state of that
// message: a new send or retry must start from a fresh Stream.
type Stream struct {
	parser *StreamParser
	last   string
	html   string
}

// NewStream returns a Stream for a message that has not received any text.
func NewStream() *Stream {
	return &Stream{parser: NewStreamParser()}
}

// Render re-renders the whole buffer received so far. A tag that is still
// arriving at the end of the buffer is ignored until it is complete.
func (s *Stream) Render(buffer string) string {
	buffer = TrimPartialTag(buffer)
	if buffer == s.last && s.html != "" {
		return s.html
	}
	s.last = buffer
	s.html = RenderSegments(s.parser.Parse(buffer), Options{Streaming: true})
	return s.html
}

// Final renders the complete message. Tables are rendered even without a
// data row.
func (s *Stream) Final(buffer string) string {
	return Render(buffer, Options{})
}
