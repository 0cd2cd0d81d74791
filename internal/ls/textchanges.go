package ls

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// applyContentChanges applies the changes of one didChange notification in
// order. It reports false if a change has an unknown shape.
func applyContentChanges(text string, changes []any) (string, bool) {
	current := text
	for _, change := range changes {
		switch value := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			current = value.Text
		case protocol.TextDocumentContentChangeEvent:
			if value.Range == nil {
				current = value.Text
				continue
			}
			current = applyRangeChange(current, *value.Range, value.Text)
		default:
			return current, false
		}
	}
	return current, true
}

func applyRangeChange(text string, r protocol.Range, replacement string) string {
	start := offsetOf(text, r.Start)
	end := offsetOf(text, r.End)
	if end < start {
		end = start
	}
	return text[:start] + replacement + text[end:]
}

// offsetOf converts a position, whose character counts UTF-16 code units,
// to a byte offset in text. Positions past the end of a line or of the text
// are clamped.
func offsetOf(text string, pos protocol.Position) int {
	i := 0
	for line := int(pos.Line); line > 0; line-- {
		next := strings.IndexByte(text[i:], '\n')
		if next < 0 {
			return len(text)
		}
		i += next + 1
	}
	for units := 0; i < len(text) && units < int(pos.Character); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\n' {
			break
		}
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
		i += size
	}
	return i
}
