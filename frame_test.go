package main

import "testing"

func TestFrameBufferSingleLine(t *testing.T) {
	var f FrameBuffer
	lines, overflow := f.Push([]byte("NICK foo\r\n"))
	if overflow {
		t.Fatalf("unexpected overflow")
	}
	if len(lines) != 1 || lines[0] != "NICK foo" {
		t.Fatalf("lines = %q, wanted [\"NICK foo\"]", lines)
	}
}

func TestFrameBufferSplitAcrossPushes(t *testing.T) {
	var f FrameBuffer
	lines, overflow := f.Push([]byte("NICK fo"))
	if overflow || len(lines) != 0 {
		t.Fatalf("expected no complete lines yet, got %q overflow=%v", lines, overflow)
	}

	lines, overflow = f.Push([]byte("o\r\nUSER a 0 * :b\r\n"))
	if overflow {
		t.Fatalf("unexpected overflow")
	}
	if len(lines) != 2 || lines[0] != "NICK foo" || lines[1] != "USER a 0 * :b" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestFrameBufferOverLongLine(t *testing.T) {
	var f FrameBuffer
	long := make([]byte, maxLineLength+10)
	for i := range long {
		long[i] = 'a'
	}
	lines, overflow := f.Push(append(long, '\r', '\n'))
	if !overflow {
		t.Fatalf("expected overflow for an over-length line")
	}
	if len(lines) != 0 {
		t.Fatalf("expected the over-length line to be dropped, got %q", lines)
	}
}

func TestFrameBufferMultipleLinesOnePush(t *testing.T) {
	var f FrameBuffer
	lines, overflow := f.Push([]byte("PING a\r\nPING b\r\nPING c\r\n"))
	if overflow {
		t.Fatalf("unexpected overflow")
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %q, wanted 3", lines)
	}
}
