package main

import "testing"

func TestParseLineBasic(t *testing.T) {
	p, err := ParseLine("NICK foo")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if p.Command != "NICK" || len(p.AllParams()) != 1 || p.AllParams()[0] != "foo" {
		t.Fatalf("got %+v", p)
	}
}

func TestParseLineWithPrefixAndTrailing(t *testing.T) {
	p, err := ParseLine(":nick!user@host PRIVMSG #general :hello there")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if p.Prefix != "nick!user@host" {
		t.Fatalf("prefix = %s", p.Prefix)
	}
	if p.Command != "PRIVMSG" {
		t.Fatalf("command = %s", p.Command)
	}
	params := p.AllParams()
	if len(params) != 2 || params[0] != "#general" || params[1] != "hello there" {
		t.Fatalf("params = %q", params)
	}
	if !p.HadTrailing {
		t.Fatalf("expected HadTrailing")
	}
}

func TestParseLineEmptyTrailingIsPresent(t *testing.T) {
	p, err := ParseLine("PRIVMSG #general :")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !p.HadTrailing || p.Trailing != "" {
		t.Fatalf("expected an empty-but-present trailing, got %+v", p)
	}
}

func TestParseLineCommandIsUppercased(t *testing.T) {
	p, err := ParseLine("nick foo")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if p.Command != "NICK" {
		t.Fatalf("command = %s, wanted NICK", p.Command)
	}
}

func TestParseLineEmpty(t *testing.T) {
	if _, err := ParseLine(""); err == nil {
		t.Fatalf("expected an error for an empty line")
	}
}

func TestParseLineTooManyParams(t *testing.T) {
	line := "CMD a b c d e f g h i j k l m n o p"
	if _, err := ParseLine(line); err == nil {
		t.Fatalf("expected an error for too many parameters")
	}
}
