package serialport

import (
	"bytes"
	"strconv"
	"strings"
	stdunicode "unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Line is one line received from a port.
type Line struct {
	Text  string // always valid UTF-8, surrounding whitespace trimmed
	Raw   []byte // bytes as received, without the newline
	Lossy bool   // invalid sequences in Raw were replaced in Text
}

func (l Line) String() string {
	return l.Text
}

// Decode turns raw bytes into text. It never fails: invalid UTF-8 is
// replaced with U+FFFD. When nothing readable survives the replacement, the
// quoted bytes are used instead so the line still says what arrived.
func Decode(raw []byte) Line {
	line := Line{Raw: bytes.Clone(raw)}
	if utf8.Valid(raw) {
		line.Text = strings.TrimSpace(string(raw))
		return line
	}

	line.Lossy = true
	decoded, err := unicode.UTF8.NewDecoder().Bytes(raw)
	text := strings.TrimSpace(string(decoded))
	if err != nil || !readable(text) {
		line.Text = strconv.Quote(string(raw))
		return line
	}
	line.Text = text
	return line
}

// readable reports whether s holds anything besides replacement characters
// and whitespace.
func readable(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return r != utf8.RuneError && !stdunicode.IsSpace(r)
	})
}
