package link

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// decodeLine converts raw device bytes to text, dropping ill-formed UTF-8
// rather than substituting replacement characters, and trims whitespace.
func decodeLine(raw []byte) string {
	t := transform.Chain(
		runes.ReplaceIllFormed(),
		runes.Remove(runes.Predicate(func(r rune) bool { return r == utf8.RuneError })),
	)
	out, _, err := transform.Bytes(t, raw)
	if err != nil {
		out = bytes.ToValidUTF8(raw, nil)
	}
	return strings.TrimSpace(string(out))
}

// splitLine removes the first newline-terminated line from buf. ok is false
// when buf holds no complete line yet.
func splitLine(buf []byte) (line []byte, rest []byte, ok bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return nil, buf, false
	}
	return buf[:i], buf[i+1:], true
}

// EventKind classifies an inbound device line.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventInsert
	EventRemove
)

func (k EventKind) String() string {
	switch k {
	case EventInsert:
		return "insert"
	case EventRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is a decoded device line.
type Event struct {
	Kind  EventKind
	TagID string
	Raw   string
}

// ParseEvent decodes "ON:<tag>" and "OF:<tag>" lines. Tag ids are lowercased.
func ParseEvent(line string) Event {
	ev := Event{Raw: line}
	switch {
	case strings.HasPrefix(line, "ON:"):
		ev.Kind = EventInsert
	case strings.HasPrefix(line, "OF:"):
		ev.Kind = EventRemove
	default:
		return ev
	}
	ev.TagID = strings.ToLower(strings.TrimSpace(line[3:]))
	if ev.TagID == "" {
		ev.Kind = EventUnknown
	}
	return ev
}
