package x25

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// LayerTypeX25 is the gopacket layer type of an X.25 packet header.
var LayerTypeX25 = gopacket.RegisterLayerType(1825, gopacket.LayerTypeMetadata{
	Name:    "X25",
	Decoder: gopacket.DecodeFunc(decodeX25Layer),
})

// Layer is the header-level gopacket view of an X.25 packet. The payload of
// a data packet is exposed as the layer payload; all other packet types keep
// their body in the layer contents.
type Layer struct {
	layers.BaseLayer
	GFI       uint8
	ChanGroup uint8
	ChanNum   uint8
	TypeID    uint8
	Type      PacketType
	SSeq      uint8
	RSeq      uint8
	More      bool
}

func (l *Layer) LayerType() gopacket.LayerType { return LayerTypeX25 }

func (l *Layer) CanDecode() gopacket.LayerClass { return LayerTypeX25 }

func (l *Layer) NextLayerType() gopacket.LayerType {
	if l.Type == TypeData && len(l.Payload) > 0 {
		return gopacket.LayerTypePayload
	}
	return gopacket.LayerTypeZero
}

// DecodeFromBytes decodes the fixed header. Only modulo-8 packets are accepted.
func (l *Layer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	hdr, err := DecodeHeader(data)
	if err != nil {
		df.SetTruncated()
		return err
	}
	if hdr.GFI != gfiMod8 {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedGFI, hdr.GFI)
	}
	l.GFI = hdr.GFI
	l.ChanGroup = hdr.ChanGroup
	l.ChanNum = hdr.ChanNum
	l.TypeID = hdr.TypeID
	l.Type = hdr.Type()
	l.SSeq, l.RSeq, l.More = 0, 0, false
	switch l.Type {
	case TypeData:
		l.SSeq, l.RSeq, l.More = hdr.SSeq(), hdr.RSeq(), hdr.More()
		l.BaseLayer = layers.BaseLayer{Contents: data[:headerLen], Payload: data[headerLen:]}
	case TypeRR, TypeREJ:
		l.RSeq = hdr.RSeq()
		l.BaseLayer = layers.BaseLayer{Contents: data, Payload: nil}
	default:
		l.BaseLayer = layers.BaseLayer{Contents: data, Payload: nil}
	}
	return nil
}

func decodeX25Layer(data []byte, p gopacket.PacketBuilder) error {
	l := &Layer{}
	if err := l.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(l)
	return p.NextDecoder(l.NextLayerType())
}
