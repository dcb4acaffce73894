package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/scribe/internal/shared"
)

// Kind names a text transformation offered by the backend.
type Kind string

const (
	Paraphrase Kind = "paraphrase"
	Expand     Kind = "expand"
	Summarize  Kind = "summarize"
	Translate  Kind = "translate"
)

// Kinds lists every supported operation in display order.
var Kinds = []Kind{Paraphrase, Expand, Summarize, Translate}

func (k Kind) String() string { return string(k) }

// Label returns the capitalized name used in titles and buttons.
func (k Kind) Label() string {
	if k == "" {
		return ""
	}
	s := string(k)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Valid reports whether k is one of [Kinds].
func (k Kind) Valid() bool {
	switch k {
	case Paraphrase, Expand, Summarize, Translate:
		return true
	default:
		return false
	}
}

// ParseKind converts user input to a [Kind].
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown operation %q", shared.ErrInvalidArgument, s)
	}
	return k, nil
}

// Language is a translation target.
type Language string

const (
	English Language = "english"
	Spanish Language = "spanish"
)

// Languages lists every supported translation target.
var Languages = []Language{English, Spanish}

func (l Language) String() string { return string(l) }

// Valid reports whether l is one of [Languages].
func (l Language) Valid() bool {
	return l == English || l == Spanish
}

// Label returns the capitalized language name.
func (l Language) Label() string { return Kind(l).Label() }

// Next cycles to the following target language.
func (l Language) Next() Language {
	if l == English {
		return Spanish
	}
	return English
}

// ParseLanguage converts user input to a [Language].
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: unsupported target language %q", shared.ErrInvalidArgument, s)
	}
	return l, nil
}

// Request is an immutable description of one operation to submit.
//
// TargetLanguage must be set iff Kind is [Translate].
type Request struct {
	Kind           Kind
	Text           string
	TargetLanguage Language
}

// NewRequest builds a [Request] for a non-translate operation.
func NewRequest(kind Kind, text string) Request {
	return Request{Kind: kind, Text: text}
}

// NewTranslation builds a [Translate] request.
func NewTranslation(text string, target Language) Request {
	return Request{Kind: Translate, Text: text, TargetLanguage: target}
}

// Validate checks the kind, the text and the target language pairing.
func (r Request) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown operation %q", shared.ErrInvalidRequest, r.Kind)
	}
	if r.Text == "" {
		return fmt.Errorf("%w: text is empty", shared.ErrInvalidRequest)
	}
	if r.Kind == Translate && !r.TargetLanguage.Valid() {
		return fmt.Errorf("%w: translate requires a target language", shared.ErrInvalidRequest)
	}
	if r.Kind != Translate && r.TargetLanguage != "" {
		return fmt.Errorf("%w: target language only applies to translate", shared.ErrInvalidRequest)
	}
	return nil
}
