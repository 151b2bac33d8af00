// Package markup flags formula spans in message text so a display surface can render them.
// It is a pure text transformation: nothing is escaped or sanitized here.
package markup

import (
	"chat-desk/domain"
	"regexp"

	"github.com/samber/lo"
)

const (
	blockOpen   = `<div class="latex-block">`
	blockClose  = `</div>`
	inlineOpen  = `<span class="latex">`
	inlineClose = `</span>`
)

var (
	// Block spans may run across lines.
	blockSpan = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	// Inline spans stay on a single line.
	inlineSpan = regexp.MustCompile(`\$(.+?)\$`)
)

// segment is a slice of the input, either the inside of a block span or plain text around it.
type segment struct {
	text  string
	block bool
}

// Transform wraps $$…$$ spans into a block render hint, then $…$ spans found outside
// those blocks into an inline render hint. The inner text of a block is never rescanned,
// so "$$a $ b $ c$$" is a single block.
// Running Transform on its own output is not guaranteed to be stable.
func Transform(text string) string {
	if text == "" {
		return text
	}
	var out []byte
	for _, seg := range splitBlocks(text) {
		if seg.block {
			out = append(out, blockOpen...)
			out = append(out, seg.text...)
			out = append(out, blockClose...)
			continue
		}
		out = append(out, inlineSpan.ReplaceAllString(seg.text, inlineOpen+"${1}"+inlineClose)...)
	}
	return string(out)
}

// splitBlocks scans the input once, left to right, for non-overlapping block spans.
func splitBlocks(text string) []segment {
	matches := blockSpan.FindAllStringSubmatchIndex(text, -1)
	segments := make([]segment, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			segments = append(segments, segment{text: text[last:m[0]]})
		}
		segments = append(segments, segment{text: text[m[2]:m[3]], block: true})
		last = m[1]
	}
	if last < len(text) {
		segments = append(segments, segment{text: text[last:]})
	}
	return segments
}

// Render returns a copy of the messages with Transform applied to text content.
// Attachment messages keep their caption untouched.
func Render(messages []domain.Message) []domain.Message {
	return lo.Map(messages, func(m domain.Message, _ int) domain.Message {
		if m.ContentKind == domain.KindText && m.Content != "" {
			m.Content = Transform(m.Content)
		}
		return m
	})
}
