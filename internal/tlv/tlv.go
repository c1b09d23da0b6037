// Package tlv decodes type-code-indexed parameter lists.
//
// A Table maps a one-byte type code to a Descriptor that knows how to parse
// the parameter value. Framing (where each entry starts and how long it is)
// is the caller's business; this package only decodes single entries and
// renders the resulting List.
package tlv

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"vdl2_parser/internal/proto"
)

// ErrTooShort is returned by parsers when the value has fewer bytes than required.
var ErrTooShort = errors.New("tlv: value too short")

// ErrOutOfRange is returned by parsers when a value field is outside its valid range.
var ErrOutOfRange = errors.New("tlv: value out of range")

// Value is a decoded parameter. It renders itself as text under label;
// JSON output uses encoding/json on the value.
type Value interface {
	FormatText(w *proto.TextWriter, indent int, label string)
}

// ParseFunc decodes the value bytes of one entry.
type ParseFunc func(code byte, data []byte) (Value, error)

// Descriptor describes one type code.
type Descriptor struct {
	Label   string // Text output label.
	JSONKey string
	Parse   ParseFunc
	// Hidden entries are parsed (so their bytes are accounted for) but never printed.
	Hidden bool
}

// Table maps type codes to descriptors.
type Table map[byte]*Descriptor

// Tag is one decoded entry.
type Tag struct {
	Code  byte
	Desc  *Descriptor // nil when the code is not in the table.
	Value Value       // nil when Desc is nil or parsing failed.
	Raw   []byte
	Err   error
}

// Unknown reports whether the code was not found in the table.
func (t Tag) Unknown() bool {
	return t.Desc == nil
}

// ParseSingle decodes one entry against table. Unknown codes and parse
// failures are kept as tags carrying the raw bytes; they are never fatal.
func ParseSingle(code byte, data []byte, table Table) Tag {
	tag := Tag{Code: code, Raw: append([]byte(nil), data...)}
	desc, ok := table[code]
	if !ok {
		return tag
	}
	tag.Desc = desc
	if desc.Parse == nil {
		return tag
	}
	v, err := desc.Parse(code, data)
	if err != nil {
		tag.Err = fmt.Errorf("%s: %w", desc.JSONKey, err)
		return tag
	}
	tag.Value = v
	return tag
}

// List is an ordered sequence of decoded entries.
type List []Tag

// FormatText writes every visible tag, one per line.
func (l List) FormatText(w *proto.TextWriter, indent int) {
	for _, tag := range l {
		switch {
		case tag.Desc == nil:
			w.Printf(indent, "-- Unknown parameter (code: 0x%02x, len: %d): %s\n",
				tag.Code, len(tag.Raw), proto.HexString(tag.Raw))
		case tag.Desc.Hidden:
		case tag.Err != nil || tag.Value == nil:
			w.Printf(indent, "-- Unparseable %s: %s\n", tag.Desc.Label, proto.HexString(tag.Raw))
		default:
			tag.Value.FormatText(w, indent, tag.Desc.Label)
		}
	}
}

type unknownJSON struct {
	Code byte              `json:"code"`
	Data proto.OctetString `json:"data"`
}

type unparseableJSON struct {
	Err  bool              `json:"err"`
	Data proto.OctetString `json:"data"`
}

// MarshalJSON renders the list as an array of single-key objects, so that
// repeated codes and ordering survive.
func (l List) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	for _, tag := range l {
		var key string
		var v any
		switch {
		case tag.Desc == nil:
			key, v = "unknown", unknownJSON{Code: tag.Code, Data: tag.Raw}
		case tag.Desc.Hidden:
			continue
		case tag.Err != nil || tag.Value == nil:
			key, v = tag.Desc.JSONKey, unparseableJSON{Err: true, Data: tag.Raw}
		default:
			key, v = tag.Desc.JSONKey, tag.Value
		}
		obj, err := json.Marshal(map[string]any{key: v})
		if err != nil {
			return nil, fmt.Errorf("tag 0x%02x: %w", tag.Code, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(obj)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
