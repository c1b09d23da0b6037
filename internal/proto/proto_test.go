package proto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type layer struct {
	Name string `json:"name"`
}

func (l *layer) FormatText(w *TextWriter, indent int) {
	w.Printf(indent, "%s\n", l.Name)
}

func chain() *Node {
	return &Node{Key: "outer", Data: &layer{Name: "a"}, Next: &Node{
		Key: "inner", Data: &layer{Name: "b"}, Next: NewUnknown([]byte("hi")),
	}}
}

func TestFormatTree(t *testing.T) {
	assert.Equal(t, "a\n"+
		" b\n"+
		"  Data (2 bytes):\n"+
		"   0000: 68 69 "+strings.Repeat("   ", 14)+" |hi|\n", FormatTree(chain()))
}

func TestMarshalJSON(t *testing.T) {
	out, err := json.Marshal(chain())
	require.NoError(t, err)
	assert.JSONEq(t, `{"outer":{"name":"a","inner":{"name":"b","unknown_proto":{"data":[104,105]}}}}`, string(out))
}

func TestMarshalJSONRejectsNonObject(t *testing.T) {
	n := &Node{Key: "bad", Data: textOnly("x"), Next: NewUnknown([]byte{1})}
	_, err := json.Marshal(n)
	assert.Error(t, err)
}

type textOnly string

func (textOnly) FormatText(*TextWriter, int) {}

func (t textOnly) MarshalJSON() ([]byte, error) { return json.Marshal(string(t)) }

func TestChainHelpers(t *testing.T) {
	c := chain()
	assert.Equal(t, []string{"outer", "inner", "unknown_proto"}, c.Keys())
	assert.Same(t, c.Next, c.Find("inner"))
	assert.Nil(t, c.Find("missing"))
}

func TestNewUnknown(t *testing.T) {
	assert.Nil(t, NewUnknown(nil))
	buf := []byte{1, 2}
	n := NewUnknown(buf)
	buf[0] = 9
	assert.Equal(t, OctetString{1, 2}, n.Data.(*Unknown).Data)
}

func TestFlags(t *testing.T) {
	f := SrcAir | X25Data
	assert.Equal(t, SrcGnd|X25Data, f.Reversed())
	assert.Equal(t, Air2Gnd, f.Direction())
	assert.Equal(t, Gnd2Air, f.Reversed().Direction())
	assert.Equal(t, "air2gnd", Air2Gnd.String())
	assert.Equal(t, []string{"src_air", "x25_data"}, f.Names())
	assert.Equal(t, []string{}, MsgFlags(0).Names())
}

func TestHexString(t *testing.T) {
	assert.Equal(t, "none", HexString(nil))
	assert.Equal(t, "00 ab ff", HexString([]byte{0x00, 0xab, 0xff}))
}
