package main

import "testing"

func TestIsValidNick(t *testing.T) {
	cases := map[string]bool{
		"foo":     true,
		"Foo_Bar": true,
		"":        false,
		"1foo":    false,
		"foo bar": false,
	}
	for nick, want := range cases {
		if got := isValidNick(nick); got != want {
			t.Errorf("isValidNick(%q) = %v, wanted %v", nick, got, want)
		}
	}
}

func TestIsValidChannel(t *testing.T) {
	cases := map[string]bool{
		"#general": true,
		"general":  false,
		"#":        false,
		"#a b":     false,
	}
	for name, want := range cases {
		if got := isValidChannel(name); got != want {
			t.Errorf("isValidChannel(%q) = %v, wanted %v", name, got, want)
		}
	}
}

func TestCanonicalizeNickIsCaseSensitive(t *testing.T) {
	if canonicalizeNick("Foo") != "Foo" {
		t.Fatalf("canonicalizeNick must not fold case")
	}
}

func TestCanonicalizeChannelFoldsCase(t *testing.T) {
	if canonicalizeChannel("#GENERAL") != "#general" {
		t.Fatalf("canonicalizeChannel must fold case")
	}
}

func TestSplitCommaList(t *testing.T) {
	got := splitCommaList("#a,#b,#c")
	if len(got) != 3 || got[0] != "#a" || got[2] != "#c" {
		t.Fatalf("got %q", got)
	}
	if splitCommaList("") != nil {
		t.Fatalf("expected nil for an empty input")
	}
}
