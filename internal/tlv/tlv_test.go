package tlv

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdl2_parser/internal/proto"
)

var errBad = errors.New("bad")

var table = Table{
	0x00: {Parse: Noop, Hidden: true},
	0x01: {Label: "Octets", JSONKey: "octets", Parse: ParseOctetString},
	0x02: {Label: "Name", JSONKey: "name", Parse: ParseASCIIOctetString},
	0x03: {Label: "Broken", JSONKey: "broken", Parse: func(byte, []byte) (Value, error) { return nil, errBad }},
}

func TestParseSingle(t *testing.T) {
	data := []byte{0xca, 0xfe}
	tag := ParseSingle(0x01, data, table)
	require.NoError(t, tag.Err)
	assert.False(t, tag.Unknown())
	assert.Equal(t, OctetString{0xca, 0xfe}, tag.Value)

	data[0] = 0
	assert.Equal(t, []byte{0xca, 0xfe}, tag.Raw)

	unk := ParseSingle(0x7f, []byte{1}, table)
	assert.True(t, unk.Unknown())
	assert.Nil(t, unk.Value)

	bad := ParseSingle(0x03, []byte{1}, table)
	assert.ErrorIs(t, bad.Err, errBad)
	assert.Nil(t, bad.Value)
}

func list() List {
	return List{
		ParseSingle(0x00, nil, table),
		ParseSingle(0x01, []byte{0x01, 0x02}, table),
		ParseSingle(0x02, []byte("AB\x01"), table),
		ParseSingle(0x03, []byte{0xff}, table),
		ParseSingle(0x7f, []byte{0x09}, table),
	}
}

func TestListFormatText(t *testing.T) {
	w := &proto.TextWriter{}
	list().FormatText(w, 1)
	assert.Equal(t, " Octets: 01 02\n"+
		" Name: 41 42 01\t\"AB.\"\n"+
		" -- Unparseable Broken: ff\n"+
		" -- Unknown parameter (code: 0x7f, len: 1): 09\n", w.String())
}

func TestListMarshalJSON(t *testing.T) {
	out, err := json.Marshal(list())
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"octets": [1, 2]},
		{"name": [65, 66, 1]},
		{"broken": {"err": true, "data": [255]}},
		{"unknown": {"code": 127, "data": [9]}}
	]`, string(out))

	out, err = json.Marshal(List{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}
