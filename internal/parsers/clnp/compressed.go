package clnp

import (
	"github.com/sirupsen/logrus"

	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/registry"
)

// CompressedPDU is the LREF-compressed CLNP data header: a type/priority
// octet followed by the local reference assigned at call setup.
type CompressedPDU struct {
	Err      bool `json:"err"`
	Type     byte `json:"pdu_type"`
	Priority byte `json:"priority"`
	LocalRef byte `json:"lref"`
}

// CompressedParser decodes LREF-compressed CLNP data PDUs.
type CompressedParser struct{}

func (p *CompressedParser) Name() string    { return "clnp_compressed" }
func (p *CompressedParser) Slots() []string { return []string{registry.SlotCLNPCompressed} }
func (p *CompressedParser) Priority() int   { return 100 }

func (p *CompressedParser) QuickCheck(buf []byte) bool {
	return len(buf) > 0
}

func (p *CompressedParser) Parse(buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags) {
	pdu := &CompressedPDU{Err: true}
	node := &proto.Node{Key: "clnp_compressed", Data: pdu}
	if len(buf) < 2 {
		logrus.WithField("len", len(buf)).Debug("compressed clnp header too short")
		node.Next = proto.NewUnknown(buf)
		return node, proto.CLNP
	}
	pdu.Type = buf[0] >> 4
	pdu.Priority = buf[0] & 0x0f
	pdu.LocalRef = buf[1]
	pdu.Err = false
	node.Next = proto.NewUnknown(buf[2:])
	return node, proto.CLNP
}

func (pdu *CompressedPDU) FormatText(w *proto.TextWriter, indent int) {
	if pdu.Err {
		w.Printf(indent, "-- Unparseable CLNP compressed data PDU\n")
		return
	}
	w.Printf(indent, "CLNP compressed data PDU:\n")
	w.Printf(indent+1, "Type: 0x%x Priority: %d LRef: 0x%02x\n", pdu.Type, pdu.Priority, pdu.LocalRef)
}
