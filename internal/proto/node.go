// Package proto provides the protocol node chain produced by the VDL2 decoders.
//
// Every decoder returns a *Node whose Data holds the decoded structure of one
// protocol layer and whose Next points at the node of the layer it carried.
// The chain mirrors the protocol stack traversed for a single frame.
package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"vdl2_parser/internal/reasm"
)

// Data is implemented by the decoded structure of every protocol layer.
// JSON rendering uses encoding/json, so implementations marshal to an object.
type Data interface {
	FormatText(w *TextWriter, indent int)
}

// Node is one element of the decoded protocol chain.
type Node struct {
	Key  string // JSON key, e.g. "x25".
	Data Data
	Next *Node
}

// Env carries the per-frame context threaded through nested decoders.
// It is passed by value: a decoder that needs to alter it for a nested call
// (e.g. to reverse the message direction) modifies its own copy.
type Env struct {
	Flags  MsgFlags
	Reasm  *reasm.Context
	RxTime time.Time
	Src    uint32 // AVLC source address.
	Dst    uint32 // AVLC destination address.
}

// MsgFlags classifies a message as it travels through the decoders.
type MsgFlags uint32

const (
	SrcAir MsgFlags = 1 << iota
	SrcGnd
	X25Data
	X25Control
	CLNP
	ESIS
)

// DirectionMask covers the air/ground source bits.
const DirectionMask = SrcAir | SrcGnd

// Reversed returns the flags with both source bits flipped.
func (f MsgFlags) Reversed() MsgFlags {
	return f ^ DirectionMask
}

var flagNames = []struct {
	flag MsgFlags
	name string
}{
	{SrcAir, "src_air"},
	{SrcGnd, "src_gnd"},
	{X25Data, "x25_data"},
	{X25Control, "x25_control"},
	{CLNP, "clnp"},
	{ESIS, "esis"},
}

// Names lists the set flags in bit order.
func (f MsgFlags) Names() []string {
	names := []string{}
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

// Direction returns the traffic direction implied by the source bits.
func (f MsgFlags) Direction() Direction {
	if f&SrcAir != 0 {
		return Air2Gnd
	}
	return Gnd2Air
}

// Direction of a transmission.
type Direction int

const (
	Gnd2Air Direction = iota
	Air2Gnd
)

func (d Direction) String() string {
	if d == Air2Gnd {
		return "air2gnd"
	}
	return "gnd2air"
}

// FormatTree renders the chain starting at root as indented text,
// one indentation level per nested layer.
func FormatTree(root *Node) string {
	w := &TextWriter{}
	indent := 0
	for n := root; n != nil; n = n.Next {
		if n.Data != nil {
			n.Data.FormatText(w, indent)
		}
		indent++
	}
	return w.String()
}

// MarshalJSON renders the chain as {"<key>": {<fields>, "<next key>": {...}}}.
func (n *Node) MarshalJSON() ([]byte, error) {
	body, err := n.body()
	if err != nil {
		return nil, err
	}
	key, err := json.Marshal(n.Key)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(body)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// body returns the node's own JSON object with the next layer nested inside it.
func (n *Node) body() ([]byte, error) {
	b := []byte("{}")
	if n.Data != nil {
		var err error
		if b, err = json.Marshal(n.Data); err != nil {
			return nil, fmt.Errorf("%s: %w", n.Key, err)
		}
	}
	if n.Next == nil {
		return b, nil
	}
	if len(b) < 2 || b[0] != '{' || b[len(b)-1] != '}' {
		return nil, fmt.Errorf("%s: data does not marshal to a JSON object", n.Key)
	}
	nextBody, err := n.Next.body()
	if err != nil {
		return nil, err
	}
	nextKey, err := json.Marshal(n.Next.Key)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	if len(b) > 2 {
		buf.WriteByte(',')
	}
	buf.Write(nextKey)
	buf.WriteByte(':')
	buf.Write(nextBody)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Find returns the first node in the chain with the given key.
func (n *Node) Find(key string) *Node {
	for cur := n; cur != nil; cur = cur.Next {
		if cur.Key == key {
			return cur
		}
	}
	return nil
}

// Keys lists the node keys along the chain.
func (n *Node) Keys() []string {
	var keys []string
	for cur := n; cur != nil; cur = cur.Next {
		keys = append(keys, cur.Key)
	}
	return keys
}
