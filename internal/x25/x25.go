// Package x25 decodes ISO 8208 (X.25 packet layer) packets as carried in
// VDL Mode 2 AVLC frames, including data packet reassembly and hand-off of
// user data to the network-layer decoders.
package x25

import (
	"errors"
	"fmt"
)

// Errors returned by the internal parsing stages. Decoder.Parse never returns
// them; they end up in the debug log and in tests via errors.Is.
var (
	ErrTruncated       = errors.New("x25: truncated")
	ErrUnsupportedGFI  = errors.New("x25: unsupported general format identifier")
	ErrUnsupportedType = errors.New("x25: unsupported packet identifier")
	ErrBadSNDCF        = errors.New("x25: unsupported SNDCF field format or version")
	ErrBadFacility     = errors.New("x25: malformed facility field")
)

const (
	headerLen = 3
	gfiMod8   = 0x1
)

// PacketType is the classified packet type. Its value is the packet type
// identifier as it appears on the wire (after masking, for RR/REJ).
type PacketType byte

const (
	TypeData           PacketType = 0x00
	TypeRR             PacketType = 0x01
	TypeREJ            PacketType = 0x09
	TypeCallRequest    PacketType = 0x0b
	TypeCallAccepted   PacketType = 0x0f
	TypeClearRequest   PacketType = 0x13
	TypeClearConfirm   PacketType = 0x17
	TypeResetRequest   PacketType = 0x1b
	TypeResetConfirm   PacketType = 0x1f
	TypeDiagnostics    PacketType = 0xf1
	TypeRestartRequest PacketType = 0xfb
	TypeRestartConfirm PacketType = 0xff
)

var packetTypeNames = map[PacketType]string{
	TypeCallRequest:    "Call Request",
	TypeCallAccepted:   "Call Accepted",
	TypeClearRequest:   "Clear Request",
	TypeClearConfirm:   "Clear Confirm",
	TypeData:           "Data",
	TypeRR:             "Receive Ready",
	TypeREJ:            "Receive Reject",
	TypeResetRequest:   "Reset Request",
	TypeResetConfirm:   "Reset Confirm",
	TypeRestartRequest: "Restart Request",
	TypeRestartConfirm: "Restart Confirm",
	TypeDiagnostics:    "Diagnostics",
}

func (t PacketType) String() string {
	if name, ok := packetTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown (0x%02x)", byte(t))
}

// Supported reports whether the decoder has a body parser for t.
func (t PacketType) Supported() bool {
	_, ok := packetTypeNames[t]
	return ok
}

// IsData reports whether t is a data packet.
func (t PacketType) IsData() bool {
	return t == TypeData
}

// Classify maps the packet type identifier octet to a packet type.
// Any identifier with the low bit clear is a data packet; RR and REJ carry
// P(R) in the top three bits, so only their low five bits identify them.
// Everything else keeps the raw octet and may turn out to be unsupported.
func Classify(id byte) PacketType {
	if id&1 == 0 {
		return TypeData
	}
	if masked := PacketType(id & 0x1f); masked == TypeRR || masked == TypeREJ {
		return masked
	}
	return PacketType(id)
}

// Header is the fixed three-octet packet header.
type Header struct {
	GFI       byte
	ChanGroup byte
	ChanNum   byte
	TypeID    byte // Raw packet type identifier octet.
}

// DecodeHeader reads the fixed header from the start of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerLen {
		return Header{}, fmt.Errorf("%w: len %d < min len %d", ErrTruncated, len(buf), headerLen)
	}
	return Header{
		GFI:       buf[0] >> 4,
		ChanGroup: buf[0] & 0x0f,
		ChanNum:   buf[1],
		TypeID:    buf[2],
	}, nil
}

// SSeq returns P(S), the send sequence number of a data packet.
func (h Header) SSeq() uint8 { return (h.TypeID >> 1) & 0x07 }

// RSeq returns P(R), the receive sequence number of data, RR and REJ packets.
func (h Header) RSeq() uint8 { return h.TypeID >> 5 }

// More returns the M bit of a data packet.
func (h Header) More() bool { return h.TypeID&0x10 != 0 }

// Type classifies the header's packet type identifier.
func (h Header) Type() PacketType { return Classify(h.TypeID) }
