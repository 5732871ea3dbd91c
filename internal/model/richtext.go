package model

import "strings"

// ElementKind discriminates the variants of a RichText Element.
type ElementKind string

const (
	ElementPlain         ElementKind = "plain"
	ElementBold          ElementKind = "bold"
	ElementItalic        ElementKind = "italic"
	ElementUnderline     ElementKind = "underline"
	ElementStrikethrough ElementKind = "strikethrough"
	ElementLink          ElementKind = "link"
	ElementCode          ElementKind = "code"
	ElementPre           ElementKind = "pre"
)

// Element is one unit of an ordered RichText sequence. Only the fields
// relevant to Kind are meaningful; the rest are zero values.
//
//   - plain/bold/italic/underline/strikethrough/code: Text holds the
//     run's visible text.
//   - link: Href is the target, Text the visible label, Hidden marks a
//     link whose URL was not itself shown to the user (e.g. a text link).
//   - pre: Text holds the block's contents, Lang an optional language tag.
type Element struct {
	Kind   ElementKind
	Text   string
	Href   string
	Hidden bool
	Lang   string
}

// RichText is an ordered sequence of typed text elements.
type RichText []Element

// PlainText concatenates the plain-text projection of every element. This
// is the message's canonical searchable string.
func (rt RichText) PlainText() string {
	var b strings.Builder
	for _, e := range rt {
		switch e.Kind {
		case ElementLink:
			b.WriteString(e.Text)
		default:
			b.WriteString(e.Text)
		}
	}
	return b.String()
}

// NormalizedForEquivalence returns a copy of rt with italic, underline, and
// strikethrough elements folded to bold, the style-normalization rule the
// Merger's equivalence check applies. Plain text and link structure are
// left untouched.
func (rt RichText) NormalizedForEquivalence() RichText {
	out := make(RichText, len(rt))
	for i, e := range rt {
		switch e.Kind {
		case ElementItalic, ElementUnderline, ElementStrikethrough:
			e.Kind = ElementBold
		}
		out[i] = e
	}
	return out
}
