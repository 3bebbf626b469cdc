// Package textnorm canonicalizes raw recognized text before it enters the
// context store. OCR output is noisy: stray glyphs, broken lines, runs of
// whitespace. Normalize reduces all of that to a flat single-spaced stream so
// that downstream question answering sees stable input.
package textnorm

import (
	"strings"
	"unicode"
)

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '.', ',', '!', '?', '\'', '"', '-':
		return true
	}
	return unicode.IsSpace(r)
}

// Normalize cleans raw recognized text into one flat single-spaced string.
// Stripped character runs become a single space, paragraph structure is
// rebuilt from non-empty lines and then deliberately flattened again: the
// observable output has no newlines and no doubled spaces. Always returns a
// string, possibly empty.
func Normalize(raw string) string {
	// Replace each run of disallowed characters with one space, keeping
	// whitespace so the line structure survives to the next step.
	var b strings.Builder
	b.Grow(len(raw))
	inStrip := false
	for _, r := range raw {
		if allowed(r) {
			inStrip = false
			b.WriteRune(r)
			continue
		}
		if !inStrip {
			b.WriteByte(' ')
			inStrip = true
		}
	}

	// Collapse horizontal whitespace, then rebuild paragraphs from the
	// surviving non-empty lines.
	lines := make([]string, 0, 8)
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	joined := strings.Join(lines, "\n\n")

	// Final flatten: paragraph separators collapse to single spaces too.
	return strings.Join(strings.Fields(joined), " ")
}
