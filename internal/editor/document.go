package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/scribe/internal/shared"
)

// Document is the editor text plus a selection given as rune offsets.
//
// SelStart == SelEnd means nothing is selected.
type Document struct {
	Text     string
	SelStart int
	SelEnd   int
}

// NewDocument returns a document with no selection.
func NewDocument(text string) Document {
	return Document{Text: text}
}

// Select returns a copy of d with the selection set to [start, end).
func (d Document) Select(start, end int) Document {
	d.SelStart, d.SelEnd = start, end
	return d
}

// Selection returns the selected text, or "" when the selection is empty.
// Offsets are clamped to the text and may be given in either order.
func (d Document) Selection() string {
	runes := []rune(d.Text)
	start, end := clamp(d.SelStart, len(runes)), clamp(d.SelEnd, len(runes))
	if start > end {
		start, end = end, start
	}
	if start == end {
		return ""
	}
	return string(runes[start:end])
}

// Input returns the text an operation should act on: the selection if any, else
// the whole text.
func (d Document) Input() string {
	if sel := d.Selection(); sel != "" {
		return sel
	}
	return d.Text
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// ParseRange parses a "start:end" selection flag.
func ParseRange(s string) (int, int, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: selection %q must look like start:end", shared.ErrInvalidFlag, s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: selection start %q", shared.ErrInvalidFlag, a)
	}
	end, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: selection end %q", shared.ErrInvalidFlag, b)
	}
	if start < 0 || end < start {
		return 0, 0, fmt.Errorf("%w: selection %d:%d is out of order", shared.ErrInvalidFlag, start, end)
	}
	return start, end, nil
}
