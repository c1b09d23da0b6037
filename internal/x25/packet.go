package x25

import (
	"encoding/json"

	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/reasm"
	"vdl2_parser/internal/tlv"
)

// Packet is a decoded X.25 packet. Err is set when the packet could not be
// decoded; no other field is meaningful then.
type Packet struct {
	Err    bool
	Type   PacketType
	Header Header

	AddrBlockPresent bool
	Called           Address
	Calling          Address
	Facilities       tlv.List
	Compression      Compression

	ReasmStatus reasm.Status
	// ReasmBuf is the reassembled user data when this packet completed a
	// fragmented sequence. The packet owns it.
	ReasmBuf []byte

	ClearCause      byte
	DiagCodePresent bool
	DiagCode        byte
	// DiagData is the erroneous packet header carried by a Diagnostics packet.
	DiagData []byte
}

// Name returns the packet type name.
func (p *Packet) Name() string {
	return p.Type.String()
}

func (p *Packet) FormatText(w *proto.TextWriter, indent int) {
	if p.Err {
		w.Printf(indent, "-- Unparseable X.25 packet\n")
		return
	}
	w.Printf(indent, "X.25 %s: grp: %d chan: %d", p.Name(), p.Header.ChanGroup, p.Header.ChanNum)
	switch {
	case p.AddrBlockPresent:
		w.Appendf(" src: %s dst: %s", orNone(p.Calling.String()), orNone(p.Called.String()))
	case p.Type == TypeData:
		more := 0
		if p.Header.More() {
			more = 1
		}
		w.Appendf(" sseq: %d rseq: %d more: %d", p.Header.SSeq(), p.Header.RSeq(), more)
	case p.Type == TypeRR || p.Type == TypeREJ:
		w.Appendf(" rseq: %d", p.Header.RSeq())
	}
	w.EOL()
	indent++

	switch p.Type {
	case TypeCallRequest, TypeCallAccepted:
		w.Printf(indent, "Facilities:\n")
		p.Facilities.FormatText(w, indent+1)
		w.Printf(indent, "Compression support: %s\n", p.Compression)
		mi := 0
		if p.Compression.MI() {
			mi = 1
		}
		w.Printf(indent, "M/I: %d\n", mi)
	case TypeData:
		w.Printf(indent, "X.25 reasm status: %s\n", p.ReasmStatus)
	}
	if dict := causeDict(p.Type); dict != nil {
		w.Printf(indent, "Cause: 0x%02x (%s)\n", p.ClearCause, orUnknown(dict[p.ClearCause]))
	}
	if p.DiagCodePresent {
		w.Printf(indent, "Diagnostic code: 0x%02x (%s)\n", p.DiagCode, orUnknown(diagCodes[p.DiagCode]))
	}
	if p.Type == TypeDiagnostics && len(p.DiagData) > 0 {
		w.Printf(indent, "Erroneous packet header: %s\n", proto.HexString(p.DiagData))
	}
}

type packetJSON struct {
	Err                bool              `json:"err"`
	PktType            *byte             `json:"pkt_type,omitempty"`
	PktTypeName        string            `json:"pkt_type_name,omitempty"`
	ChanGroup          *byte             `json:"chan_group,omitempty"`
	ChanNum            *byte             `json:"chan_num,omitempty"`
	CallingAddr        string            `json:"calling_addr,omitempty"`
	CalledAddr         string            `json:"called_addr,omitempty"`
	SSeq               *uint8            `json:"sseq,omitempty"`
	RSeq               *uint8            `json:"rseq,omitempty"`
	More               *bool             `json:"more,omitempty"`
	Facilities         *tlv.List         `json:"facilities,omitempty"`
	CompressionOptions *byte             `json:"compression_options,omitempty"`
	CompressionAlgos   []string          `json:"compression_algos,omitempty"`
	ReasmStatus        string            `json:"reasm_status,omitempty"`
	ClearCause         *byte             `json:"clear_cause,omitempty"`
	ClearCauseDescr    string            `json:"clear_cause_descr,omitempty"`
	DiagCode           *byte             `json:"diag_code,omitempty"`
	DiagCodeDescr      string            `json:"diag_code_descr,omitempty"`
	ErroneousPktHdr    proto.OctetString `json:"erroneous_pkt_hdr,omitempty"`
}

func (p *Packet) MarshalJSON() ([]byte, error) {
	if p.Err {
		return json.Marshal(packetJSON{Err: true})
	}
	t := byte(p.Type)
	out := packetJSON{
		PktType:     &t,
		PktTypeName: packetTypeNames[p.Type],
		ChanGroup:   &p.Header.ChanGroup,
		ChanNum:     &p.Header.ChanNum,
	}
	switch {
	case p.AddrBlockPresent:
		out.CallingAddr = p.Calling.String()
		out.CalledAddr = p.Called.String()
	case p.Type == TypeData:
		sseq, rseq, more := p.Header.SSeq(), p.Header.RSeq(), p.Header.More()
		out.SSeq, out.RSeq, out.More = &sseq, &rseq, &more
	case p.Type == TypeRR || p.Type == TypeREJ:
		rseq := p.Header.RSeq()
		out.RSeq = &rseq
	}

	switch p.Type {
	case TypeCallRequest, TypeCallAccepted:
		facilities := p.Facilities
		if facilities == nil {
			facilities = tlv.List{}
		}
		out.Facilities = &facilities
		c := byte(p.Compression)
		out.CompressionOptions = &c
		out.CompressionAlgos = p.Compression.Algorithms()
	case TypeData:
		out.ReasmStatus = p.ReasmStatus.String()
	}
	if dict := causeDict(p.Type); dict != nil {
		out.ClearCause = &p.ClearCause
		out.ClearCauseDescr = dict[p.ClearCause]
	}
	if p.DiagCodePresent {
		out.DiagCode = &p.DiagCode
		out.DiagCodeDescr = diagCodes[p.DiagCode]
	}
	if p.Type == TypeDiagnostics && len(p.DiagData) > 0 {
		out.ErroneousPktHdr = p.DiagData
	}
	return json.Marshal(out)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
