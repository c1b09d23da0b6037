// Package clnp decodes ISO 8473 CLNP headers and the ICAO LREF-compressed
// CLNP data header carried in X.25 user data.
//
// Only the fixed and address parts of the header are decoded. The payload
// that follows is handed on as an opaque node.
package clnp

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/registry"
)

// NLPID of ISO 8473.
const NLPID = 0x81

// Minimum CLNP fixed part: NLPID, header length, version, lifetime, flags/type,
// segment length (2), checksum (2).
const minHeaderLen = 9

// ErrTruncated is returned when the header is shorter than it claims to be.
var ErrTruncated = errors.New("clnp: truncated header")

// PDU type codes (low five bits of the flags/type octet).
const (
	TypeER  = 0x01
	TypeDT  = 0x1c
	TypeMD  = 0x1d
	TypeERP = 0x1e
	TypeERQ = 0x1f
)

var typeNames = map[byte]string{
	TypeER:  "Error Report",
	TypeDT:  "Data",
	TypeMD:  "Multicast Data",
	TypeERP: "Echo Response",
	TypeERQ: "Echo Request",
}

// PDU is a decoded CLNP header.
type PDU struct {
	Err       bool              `json:"err"`
	Type      byte              `json:"pdu_type"`
	TypeName  string            `json:"pdu_type_name,omitempty"`
	Version   byte              `json:"version"`
	Lifetime  byte              `json:"lifetime"`
	SP        bool              `json:"segmentation_permitted"`
	MS        bool              `json:"more_segments"`
	ER        bool              `json:"error_report"`
	SegLen    uint16            `json:"segment_len"`
	Checksum  uint16            `json:"cksum"`
	DstNSAP   proto.OctetString `json:"dst_nsap,omitempty"`
	SrcNSAP   proto.OctetString `json:"src_nsap,omitempty"`
	HeaderLen int               `json:"hdr_len"`
}

// Parser decodes uncompressed CLNP PDUs.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
	registry.Register(&CompressedParser{})
}

func (p *Parser) Name() string    { return "clnp" }
func (p *Parser) Slots() []string { return []string{registry.SlotCLNP} }
func (p *Parser) Priority() int   { return 100 }

func (p *Parser) QuickCheck(buf []byte) bool {
	return len(buf) > 0 && buf[0] == NLPID
}

// Parse decodes the header. On failure the node is marked unparseable and
// the raw bytes follow as an opaque node.
func (p *Parser) Parse(buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags) {
	pdu := &PDU{Err: true}
	node := &proto.Node{Key: "clnp", Data: pdu}

	hdrLen, err := decodeHeader(pdu, buf)
	if err != nil {
		logrus.WithFields(logrus.Fields{"len": len(buf)}).WithError(err).Debug("clnp decode failed")
		node.Next = proto.NewUnknown(buf)
		return node, proto.CLNP
	}
	pdu.Err = false
	node.Next = proto.NewUnknown(buf[hdrLen:])
	return node, proto.CLNP
}

func decodeHeader(pdu *PDU, buf []byte) (int, error) {
	if len(buf) < minHeaderLen {
		return 0, fmt.Errorf("%w: len %d < %d", ErrTruncated, len(buf), minHeaderLen)
	}
	hdrLen := int(buf[1])
	if hdrLen < minHeaderLen || hdrLen > len(buf) {
		return 0, fmt.Errorf("%w: header length %d, buffer %d", ErrTruncated, hdrLen, len(buf))
	}
	pdu.HeaderLen = hdrLen
	pdu.Version = buf[2]
	pdu.Lifetime = buf[3]
	pdu.SP = buf[4]&0x80 != 0
	pdu.MS = buf[4]&0x40 != 0
	pdu.ER = buf[4]&0x20 != 0
	pdu.Type = buf[4] & 0x1f
	pdu.TypeName = typeNames[pdu.Type]
	pdu.SegLen = uint16(buf[5])<<8 | uint16(buf[6])
	pdu.Checksum = uint16(buf[7])<<8 | uint16(buf[8])

	hdr := buf[:hdrLen]
	off := minHeaderLen
	var err error
	if pdu.DstNSAP, off, err = readAddress(hdr, off); err != nil {
		return 0, fmt.Errorf("destination address: %w", err)
	}
	if pdu.SrcNSAP, _, err = readAddress(hdr, off); err != nil {
		return 0, fmt.Errorf("source address: %w", err)
	}
	return hdrLen, nil
}

// readAddress reads a length-prefixed address starting at off.
func readAddress(hdr []byte, off int) (proto.OctetString, int, error) {
	if off >= len(hdr) {
		return nil, off, ErrTruncated
	}
	n := int(hdr[off])
	off++
	if off+n > len(hdr) {
		return nil, off, ErrTruncated
	}
	return append(proto.OctetString(nil), hdr[off:off+n]...), off + n, nil
}

func (pdu *PDU) FormatText(w *proto.TextWriter, indent int) {
	if pdu.Err {
		w.Printf(indent, "-- Unparseable CLNP PDU\n")
		return
	}
	name := pdu.TypeName
	if name == "" {
		name = fmt.Sprintf("unknown type 0x%02x", pdu.Type)
	}
	w.Printf(indent, "CLNP %s:\n", name)
	w.Printf(indent+1, "Src NSAP: %s\n", proto.HexString(pdu.SrcNSAP))
	w.Printf(indent+1, "Dst NSAP: %s\n", proto.HexString(pdu.DstNSAP))
	w.Printf(indent+1, "Lifetime: %.1f sec\n", float64(pdu.Lifetime)/2)
	w.Printf(indent+1, "Flags: SP: %t MS: %t E/R: %t\n", pdu.SP, pdu.MS, pdu.ER)
	w.Printf(indent+1, "Segment length: %d\n", pdu.SegLen)
}
