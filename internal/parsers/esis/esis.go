// Package esis decodes ISO 9542 ES-IS hello PDUs.
package esis

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/registry"
)

// NLPID of ISO 9542.
const NLPID = 0x82

const minHeaderLen = 9

// ErrTruncated is returned when the PDU is shorter than its header claims.
var ErrTruncated = errors.New("esis: truncated pdu")

// PDU type codes.
const (
	TypeESH = 0x02
	TypeISH = 0x04
	TypeRD  = 0x06
)

var typeNames = map[byte]string{
	TypeESH: "ES Hello",
	TypeISH: "IS Hello",
	TypeRD:  "Redirect",
}

// PDU is a decoded ES-IS header plus the network entity title or source
// address of a hello.
type PDU struct {
	Err         bool              `json:"err"`
	Type        byte              `json:"pdu_type"`
	TypeName    string            `json:"pdu_type_name,omitempty"`
	Version     byte              `json:"version"`
	HoldingTime uint16            `json:"holding_time"`
	Checksum    uint16            `json:"cksum"`
	NET         proto.OctetString `json:"net,omitempty"`
	Options     proto.OctetString `json:"options,omitempty"`
}

// Parser decodes ES-IS PDUs.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string    { return "esis" }
func (p *Parser) Slots() []string { return []string{registry.SlotESIS} }
func (p *Parser) Priority() int   { return 100 }

func (p *Parser) QuickCheck(buf []byte) bool {
	return len(buf) > 0 && buf[0] == NLPID
}

func (p *Parser) Parse(buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags) {
	pdu := &PDU{Err: true}
	node := &proto.Node{Key: "esis", Data: pdu}
	if err := decode(pdu, buf); err != nil {
		logrus.WithField("len", len(buf)).WithError(err).Debug("esis decode failed")
		node.Next = proto.NewUnknown(buf)
		return node, proto.ESIS
	}
	pdu.Err = false
	return node, proto.ESIS
}

func decode(pdu *PDU, buf []byte) error {
	if len(buf) < minHeaderLen {
		return fmt.Errorf("%w: len %d < %d", ErrTruncated, len(buf), minHeaderLen)
	}
	hdrLen := int(buf[1])
	if hdrLen < minHeaderLen || hdrLen > len(buf) {
		return fmt.Errorf("%w: header length %d, buffer %d", ErrTruncated, hdrLen, len(buf))
	}
	pdu.Version = buf[2]
	pdu.Type = buf[4] & 0x1f
	pdu.TypeName = typeNames[pdu.Type]
	pdu.HoldingTime = uint16(buf[5])<<8 | uint16(buf[6])
	pdu.Checksum = uint16(buf[7])<<8 | uint16(buf[8])

	off := minHeaderLen
	if off < hdrLen {
		n := int(buf[off])
		off++
		if off+n > hdrLen {
			return fmt.Errorf("%w: address length %d", ErrTruncated, n)
		}
		pdu.NET = append(proto.OctetString(nil), buf[off:off+n]...)
		off += n
	}
	if off < hdrLen {
		pdu.Options = append(proto.OctetString(nil), buf[off:hdrLen]...)
	}
	return nil
}

func (pdu *PDU) FormatText(w *proto.TextWriter, indent int) {
	if pdu.Err {
		w.Printf(indent, "-- Unparseable ES-IS PDU\n")
		return
	}
	name := pdu.TypeName
	if name == "" {
		name = fmt.Sprintf("unknown type 0x%02x", pdu.Type)
	}
	w.Printf(indent, "ES-IS %s: Hold Time: %d sec\n", name, pdu.HoldingTime)
	if len(pdu.NET) > 0 {
		w.Printf(indent+1, "NET: %s\n", proto.HexString(pdu.NET))
	}
	if len(pdu.Options) > 0 {
		w.Printf(indent+1, "Options: %s\n", proto.HexString(pdu.Options))
	}
}
