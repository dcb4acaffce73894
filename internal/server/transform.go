package server

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/desertthunder/scribe/internal/models"
)

// spanish is the tiny vocabulary used by the mock translator.
var spanish = map[string]string{
	"hello": "hola", "world": "mundo", "good": "bueno", "morning": "mañana",
	"thank": "gracias", "you": "tú", "the": "el", "is": "es", "and": "y",
	"text": "texto", "this": "esto", "my": "mi", "friend": "amigo", "yes": "sí",
}

var english = func() map[string]string {
	m := make(map[string]string, len(spanish))
	for en, es := range spanish {
		m[es] = en
	}
	return m
}()

// Transform produces the mock backend's deterministic output for req.
func Transform(req models.Request) string {
	text := strings.TrimSpace(req.Text)
	switch req.Kind {
	case models.Paraphrase:
		return "In other words, " + lowerFirst(text)
	case models.Expand:
		return text + " To put it in more detail, " + lowerFirst(text)
	case models.Summarize:
		return summarize(text)
	case models.Translate:
		if req.TargetLanguage == models.Spanish {
			return translate(text, spanish)
		}
		return translate(text, english)
	default:
		return text
	}
}

// Fragments splits output into word-sized pieces whose concatenation is output.
func Fragments(output string) []string {
	if output == "" {
		return nil
	}
	parts := strings.SplitAfter(output, " ")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func summarize(text string) string {
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	words := strings.Fields(text)
	if len(words) > 12 {
		return strings.Join(words[:12], " ") + "..."
	}
	return text
}

func translate(text string, dict map[string]string) string {
	words := strings.Fields(text)
	for i, w := range words {
		core := strings.TrimRight(w, ".,!?;:")
		if t, ok := dict[strings.ToLower(core)]; ok {
			words[i] = t + w[len(core):]
		}
	}
	return strings.Join(words, " ")
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
