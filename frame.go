package main

import "bytes"

// maxLineLength is the maximum protocol message length, CRLF included.
//
// See RFC 1459/2812 section 2.3.1. The original relay enforced the same
// limit but truncated in place rather than discarding the offending
// fragment; we discard so a too-long line can never bleed partial bytes
// into the next one.
const maxLineLength = 512

// FrameBuffer accumulates bytes read off one connection and splits them
// into complete CRLF-terminated lines.
//
// Exactly one FrameBuffer exists per connection, owned by that
// connection's reader goroutine. This is the direct replacement for a
// single shared scratch buffer: two fast clients must never be able to
// interleave partial lines.
type FrameBuffer struct {
	buf []byte

	// discarding is set while the rest of an over-long line is still
	// arriving; everything up to its CRLF is dropped.
	discarding bool
}

// Push appends newly read bytes and returns every complete line found so
// far (without the trailing CRLF). Partial bytes after the last CRLF
// remain buffered for the next call.
//
// If the buffer accumulates more than maxLineLength bytes without seeing
// a terminator, the partial line is discarded and overflow is reported
// so the caller can queue ERR_INPUTTOOLONG. Framing resumes cleanly: the
// rest of that line is dropped up to and including its CRLF, whether it
// arrives in this push or a later one.
func (f *FrameBuffer) Push(data []byte) (lines []string, overflow bool) {
	f.buf = append(f.buf, data...)

	for {
		idx := indexCRLF(f.buf)
		if idx == -1 {
			break
		}

		line := string(f.buf[:idx])
		f.buf = f.buf[idx+2:]

		if f.discarding {
			f.discarding = false
			continue
		}

		if len(line)+2 > maxLineLength {
			overflow = true
			continue
		}

		lines = append(lines, line)
	}

	if len(f.buf) > maxLineLength {
		if !f.discarding {
			overflow = true
		}
		f.buf = nil
		f.discarding = true
	}

	return lines, overflow
}

func indexCRLF(b []byte) int {
	return bytes.Index(b, []byte("\r\n"))
}
