package proto

import (
	"fmt"
	"strings"
)

// TextWriter accumulates indented text output. One indentation level is a
// single space, matching dumpvdl2's text format.
type TextWriter struct {
	b strings.Builder
}

// Printf writes an indented, formatted string.
func (w *TextWriter) Printf(indent int, format string, args ...any) {
	if indent > 0 {
		w.b.WriteString(strings.Repeat(" ", indent))
	}
	fmt.Fprintf(&w.b, format, args...)
}

// Appendf writes a formatted string without indentation.
func (w *TextWriter) Appendf(format string, args ...any) {
	fmt.Fprintf(&w.b, format, args...)
}

// EOL terminates the current line.
func (w *TextWriter) EOL() {
	w.b.WriteByte('\n')
}

func (w *TextWriter) String() string {
	return w.b.String()
}

// HexDump writes data as offset / hex / ASCII rows of 16 bytes.
func (w *TextWriter) HexDump(indent int, data []byte) {
	for offset := 0; offset < len(data); offset += 16 {
		row := data[offset:min(offset+16, len(data))]
		w.Printf(indent, "%04x: ", offset)
		for i := 0; i < 16; i++ {
			if i < len(row) {
				w.Appendf("%02x ", row[i])
			} else {
				w.Appendf("   ")
			}
		}
		w.Appendf(" |")
		for _, c := range row {
			if c >= 0x20 && c <= 0x7e {
				w.b.WriteByte(c)
			} else {
				w.b.WriteByte('.')
			}
		}
		w.Appendf("|")
		w.EOL()
	}
}

// HexString formats data as space-separated hex octets.
func HexString(data []byte) string {
	if len(data) == 0 {
		return "none"
	}
	var sb strings.Builder
	for i, c := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	return sb.String()
}
