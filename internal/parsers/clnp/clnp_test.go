package clnp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdl2_parser/internal/proto"
)

var dataPDU = []byte{
	0x81, 0x0d, 0x01, 0x1e, 0x9c, 0x00, 0x0f, 0x00, 0x00,
	0x01, 0xaa, 0x01, 0xbb,
	0x01, 0x02,
}

func TestParseDataPDU(t *testing.T) {
	node, flags := (&Parser{}).Parse(dataPDU, proto.Env{})
	assert.Equal(t, proto.CLNP, flags)
	pdu := node.Data.(*PDU)
	require.False(t, pdu.Err)
	assert.Equal(t, byte(TypeDT), pdu.Type)
	assert.True(t, pdu.SP)
	assert.False(t, pdu.MS)
	assert.Equal(t, uint16(15), pdu.SegLen)
	assert.Equal(t, proto.OctetString{0xaa}, pdu.DstNSAP)
	assert.Equal(t, proto.OctetString{0xbb}, pdu.SrcNSAP)
	assert.Equal(t, proto.OctetString{0x01, 0x02}, node.Next.Data.(*proto.Unknown).Data)

	assert.Equal(t, "CLNP Data:\n"+
		" Src NSAP: bb\n"+
		" Dst NSAP: aa\n"+
		" Lifetime: 15.0 sec\n"+
		" Flags: SP: true MS: false E/R: false\n"+
		" Segment length: 15\n", proto.FormatTree(&proto.Node{Key: "clnp", Data: pdu}))

	out, err := json.Marshal(node)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"pdu_type_name":"Data"`)
	assert.Contains(t, string(out), `"unknown_proto":{"data":[1,2]}`)
}

func TestParseTruncated(t *testing.T) {
	tests := map[string][]byte{
		"short":                 dataPDU[:5],
		"header length too big": {0x81, 0x20, 0x01, 0x1e, 0x9c, 0x00, 0x0f, 0x00, 0x00},
		"address overruns":      {0x81, 0x0b, 0x01, 0x1e, 0x9c, 0x00, 0x0f, 0x00, 0x00, 0x05, 0xaa},
	}
	for name, buf := range tests {
		t.Run(name, func(t *testing.T) {
			node, flags := (&Parser{}).Parse(buf, proto.Env{})
			assert.Equal(t, proto.CLNP, flags)
			assert.True(t, node.Data.(*PDU).Err)
			assert.Equal(t, proto.OctetString(buf), node.Next.Data.(*proto.Unknown).Data)
			assert.Equal(t, "-- Unparseable CLNP PDU\n", proto.FormatTree(&proto.Node{Data: node.Data}))
		})
	}
}

func TestQuickCheck(t *testing.T) {
	p := &Parser{}
	assert.True(t, p.QuickCheck(dataPDU))
	assert.False(t, p.QuickCheck([]byte{0x82}))
	assert.False(t, p.QuickCheck(nil))
}

func TestParseCompressed(t *testing.T) {
	node, flags := (&CompressedParser{}).Parse([]byte{0x35, 0x07, 0xee}, proto.Env{})
	assert.Equal(t, proto.CLNP, flags)
	pdu := node.Data.(*CompressedPDU)
	assert.Equal(t, &CompressedPDU{Type: 3, Priority: 5, LocalRef: 7}, pdu)
	assert.Equal(t, "CLNP compressed data PDU:\n Type: 0x3 Priority: 5 LRef: 0x07\n",
		proto.FormatTree(&proto.Node{Data: pdu}))

	node, _ = (&CompressedParser{}).Parse([]byte{0x35}, proto.Env{})
	assert.True(t, node.Data.(*CompressedPDU).Err)
	assert.Equal(t, "unknown_proto", node.Next.Key)
}
