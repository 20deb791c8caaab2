package session

import (
	"bytes"
	"net/url"
	"strings"
)

// cwdScanner watches a session's output stream for OSC 7 working
// directory reports (ESC ] 7 ; file://host/path BEL). Escape sequences
// may straddle chunk boundaries, so an unterminated sequence at the
// end of a chunk is carried into the next scan.
type cwdScanner struct {
	carry []byte
}

const oscPrefix = "\x1b]7;"

// maxCarry bounds the partial-sequence buffer so a malformed stream
// cannot grow it without limit.
const maxCarry = 4096

// Scan inspects one output chunk and returns the last working
// directory it reports, if any.
func (s *cwdScanner) Scan(chunk []byte) (string, bool) {
	data := chunk
	if len(s.carry) > 0 {
		data = append(s.carry, chunk...)
		s.carry = nil
	}

	var dir string
	var found bool
	for {
		start := bytes.Index(data, []byte(oscPrefix))
		if start < 0 {
			s.stashTail(data)
			return dir, found
		}
		rest := data[start+len(oscPrefix):]
		end, skip := oscTerminator(rest)
		if end < 0 {
			s.stash(data[start:])
			return dir, found
		}
		if d, ok := parseFileURL(string(rest[:end])); ok {
			dir = d
			found = true
		}
		data = rest[end+skip:]
	}
}

// oscTerminator finds the end of the OSC payload: BEL or ST (ESC \).
func oscTerminator(data []byte) (end, skip int) {
	for i, b := range data {
		if b == 0x07 {
			return i, 1
		}
		if b == 0x1b && i+1 < len(data) && data[i+1] == '\\' {
			return i, 2
		}
	}
	return -1, 0
}

// stashTail keeps a trailing prefix of an OSC 7 introducer that may
// complete in the next chunk.
func (s *cwdScanner) stashTail(data []byte) {
	n := len(oscPrefix) - 1
	if len(data) < n {
		n = len(data)
	}
	for ; n > 0; n-- {
		if bytes.HasSuffix(data, []byte(oscPrefix[:n])) {
			s.stash(data[len(data)-n:])
			return
		}
	}
}

func (s *cwdScanner) stash(data []byte) {
	if len(data) > maxCarry {
		return
	}
	s.carry = append(s.carry, data...)
}

// parseFileURL extracts the path from a file://host/path payload.
func parseFileURL(payload string) (string, bool) {
	if !strings.HasPrefix(payload, "file://") {
		return "", false
	}
	u, err := url.Parse(payload)
	if err != nil || u.Path == "" {
		return "", false
	}
	return u.Path, true
}
