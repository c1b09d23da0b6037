package x25

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/registry"
)

// parseUserData routes user data to the next-layer parser chosen by its
// first octet. It returns nil for empty input. The returned flags are the
// ones reported by the next layer, to be merged by the caller.
func (d *Decoder) parseUserData(buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags) {
	if len(buf) == 0 {
		return nil, 0
	}
	id := buf[0]
	switch {
	case id == snProtoCLNP:
		return d.dispatch(registry.SlotCLNP, buf, env)
	case id == snProtoESIS:
		return d.dispatch(registry.SlotESIS, buf, env)
	case isCompressedCLNP(id):
		return d.dispatch(registry.SlotCLNPCompressed, buf, env)
	case id == sndcfErrorProto:
		return d.parseSNDCFErrorReport(buf, env)
	}
	return proto.NewUnknown(buf), 0
}

// isCompressedCLNP reports whether the PDU type nibble of id denotes an
// LREF-compressed CLNP PDU.
func isCompressedCLNP(id byte) bool {
	switch id >> 4 {
	case 0x0, 0x1, 0x2, 0x3, 0x6, 0x7, 0x9, 0xa:
		return true
	}
	return false
}

func (d *Decoder) dispatch(slot string, buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags) {
	node, flags := d.registry.Dispatch(slot, buf, env)
	if node == nil {
		d.log.WithField("slot", slot).Debug("no parser claimed user data")
		return proto.NewUnknown(buf), 0
	}
	return node, flags
}

// SNDCFErrorReport is an SNDCF Error Report, optionally followed by the PDU
// that caused the error.
type SNDCFErrorReport struct {
	Err               bool
	ErrorCode         byte
	LocalRef          byte
	ErroredPDUPresent bool
}

// parseSNDCFErrorReport decodes the report. The erroneous PDU travelled in
// the opposite direction, so it is decoded with the air/ground source bits
// swapped; only the non-direction flags it reports are passed back.
func (d *Decoder) parseSNDCFErrorReport(buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags) {
	rpt := &SNDCFErrorReport{Err: true}
	node := &proto.Node{Key: "sndcf_error_report", Data: rpt}
	if len(buf) < 3 {
		d.log.WithFields(logrus.Fields{"len": len(buf), "min_len": 3}).Debug("SNDCF error report too short")
		node.Next = proto.NewUnknown(buf)
		return node, 0
	}
	rpt.ErrorCode = buf[1]
	rpt.LocalRef = buf[2]

	var flags proto.MsgFlags
	if len(buf) > 3 {
		reversed := env
		reversed.Flags = env.Flags.Reversed()
		next, f := d.parseUserData(buf[3:], reversed)
		node.Next = next
		flags = f &^ proto.DirectionMask
		rpt.ErroredPDUPresent = true
	}
	rpt.Err = false
	return node, flags
}

// Description returns the text for the error code, or "" for codes
// without one.
func (r *SNDCFErrorReport) Description() string {
	if int(r.ErrorCode) < len(sndcfErrorDescriptions) {
		return sndcfErrorDescriptions[r.ErrorCode]
	}
	return ""
}

func (r *SNDCFErrorReport) FormatText(w *proto.TextWriter, indent int) {
	if r.Err {
		w.Printf(indent, "-- Unparseable SNDCF Error Report\n")
		return
	}
	w.Printf(indent, "SNDCF Error Report:\n")
	w.Printf(indent+1, "Cause: 0x%02x (%s)\n", r.ErrorCode, orUnknown(r.Description()))
	w.Printf(indent+1, "Local Reference: 0x%02x\n", r.LocalRef)
	if r.ErroredPDUPresent {
		w.Printf(indent, "Erroneous PDU:\n")
	}
}

type sndcfErrorReportJSON struct {
	Err                 bool   `json:"err"`
	CauseCode           *byte  `json:"cause_code,omitempty"`
	CauseDescr          string `json:"cause_descr,omitempty"`
	LocalRef            *byte  `json:"local_ref,omitempty"`
	ErroneousPDUPresent *bool  `json:"erroneous_pdu_present,omitempty"`
}

func (r *SNDCFErrorReport) MarshalJSON() ([]byte, error) {
	if r.Err {
		return json.Marshal(sndcfErrorReportJSON{Err: true})
	}
	return json.Marshal(sndcfErrorReportJSON{
		CauseCode:           &r.ErrorCode,
		CauseDescr:          r.Description(),
		LocalRef:            &r.LocalRef,
		ErroneousPDUPresent: &r.ErroredPDUPresent,
	})
}
