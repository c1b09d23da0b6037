package tlv

import (
	"encoding/json"
	"strings"

	"vdl2_parser/internal/proto"
)

// Noop accepts any value and produces nothing. Use it with Hidden
// descriptors for separators.
func Noop(code byte, data []byte) (Value, error) {
	return nil, nil
}

// OctetString is a value kept as raw bytes.
type OctetString []byte

// ParseOctetString keeps the value bytes verbatim.
func ParseOctetString(code byte, data []byte) (Value, error) {
	return OctetString(append([]byte(nil), data...)), nil
}

func (o OctetString) FormatText(w *proto.TextWriter, indent int, label string) {
	w.Printf(indent, "%s: %s\n", label, proto.HexString(o))
}

func (o OctetString) MarshalJSON() ([]byte, error) {
	return json.Marshal(proto.OctetString(o))
}

// ASCIIOctetString is an octet string whose text form also shows the
// printable characters.
type ASCIIOctetString []byte

// ParseASCIIOctetString keeps the value bytes verbatim.
func ParseASCIIOctetString(code byte, data []byte) (Value, error) {
	return ASCIIOctetString(append([]byte(nil), data...)), nil
}

func (o ASCIIOctetString) FormatText(w *proto.TextWriter, indent int, label string) {
	w.Printf(indent, "%s: %s\t\"%s\"\n", label, proto.HexString(o), printable(o))
}

func (o ASCIIOctetString) MarshalJSON() ([]byte, error) {
	return json.Marshal(proto.OctetString(o))
}

func printable(data []byte) string {
	var sb strings.Builder
	for _, c := range data {
		if c >= 0x20 && c <= 0x7e {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
