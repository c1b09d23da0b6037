package proto

import "encoding/json"

// OctetString is a byte slice that renders to JSON as an array of integers
// rather than base64.
type OctetString []byte

func (o OctetString) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(o))
	for i, b := range o {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// Unknown holds bytes that no decoder claimed, or that a decoder failed on.
type Unknown struct {
	Data OctetString `json:"data"`
}

// NewUnknown wraps data in an opaque "unknown_proto" node. The bytes are
// copied so the node stays valid after the caller's buffer is reused.
// It returns nil for empty input.
func NewUnknown(data []byte) *Node {
	if len(data) == 0 {
		return nil
	}
	return &Node{
		Key:  "unknown_proto",
		Data: &Unknown{Data: append(OctetString(nil), data...)},
	}
}

func (u *Unknown) FormatText(w *TextWriter, indent int) {
	if len(u.Data) == 0 {
		return
	}
	w.Printf(indent, "Data (%d bytes):\n", len(u.Data))
	w.HexDump(indent+1, u.Data)
}
