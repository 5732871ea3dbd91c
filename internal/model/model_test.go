package model

import "testing"

func TestRichTextPlainTextRoundTrip(t *testing.T) {
	rt := RichText{
		{Kind: ElementPlain, Text: "hello "},
		{Kind: ElementBold, Text: "world"},
		{Kind: ElementLink, Href: "https://example.com", Text: "!"},
	}
	got := rt.PlainText()
	want := "hello world!"
	if got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}

func TestRichTextNormalizedForEquivalence(t *testing.T) {
	rt := RichText{
		{Kind: ElementItalic, Text: "a"},
		{Kind: ElementUnderline, Text: "b"},
		{Kind: ElementStrikethrough, Text: "c"},
		{Kind: ElementPlain, Text: "d"},
	}
	norm := rt.NormalizedForEquivalence()
	for i, want := range []ElementKind{ElementBold, ElementBold, ElementBold, ElementPlain} {
		if norm[i].Kind != want {
			t.Errorf("element %d kind = %s, want %s", i, norm[i].Kind, want)
		}
	}
	// Original must be untouched.
	if rt[0].Kind != ElementItalic {
		t.Errorf("NormalizedForEquivalence mutated the receiver")
	}
}

func TestUserPrettyName(t *testing.T) {
	cases := []struct {
		u    User
		want string
	}{
		{User{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{User{FirstName: "Ada"}, "Ada"},
		{User{Username: "ada"}, "ada"},
		{User{}, ""},
	}
	for _, c := range cases {
		if got := c.u.PrettyName(); got != c.want {
			t.Errorf("PrettyName() = %q, want %q", got, c.want)
		}
	}
}

func TestPathRefStates(t *testing.T) {
	var absent PathRef
	if absent.Set() || absent.Resolved() {
		t.Errorf("zero-value PathRef must be absent")
	}
	notFound := PathRef{State: PathNotFound, Path: "media/gone.jpg"}
	if !notFound.Set() || notFound.Resolved() {
		t.Errorf("not-found PathRef must be set but not resolved")
	}
	present := PathRef{State: PathPresent, Path: "media/ok.jpg"}
	if !present.Set() || !present.Resolved() {
		t.Errorf("present PathRef must be set and resolved")
	}
}
