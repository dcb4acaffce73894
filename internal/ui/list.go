package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/scribe/internal/models"
)

var _ list.Item = runItem{}

// runItem wraps [models.RunRecord] to implement [list.Item].
type runItem struct {
	record *models.RunRecord
}

func (i runItem) FilterValue() string { return i.record.Input() }
func (i runItem) Title() string {
	title := fmt.Sprintf("#%d %s", i.record.Sequence(), i.record.Kind().Label())
	if i.record.Kind() == models.Translate {
		title += " to " + i.record.TargetLanguage().Label()
	}
	return title
}
func (i runItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.record.Status(), preview(i.record.Input(), 48))
	if i.record.Status() == models.StatusFailed {
		desc = fmt.Sprintf("%s • %s", desc, i.record.ErrorText())
	}
	return desc
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
