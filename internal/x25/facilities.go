package x25

import (
	"fmt"

	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/tlv"
)

// FastSelect is the Fast Select facility (code 0x01).
type FastSelect struct {
	Requested           bool
	ResponseRestriction bool
}

func parseFastSelect(code byte, data []byte) (tlv.Value, error) {
	if len(data) < 1 {
		return nil, tlv.ErrTooShort
	}
	return FastSelect{
		Requested:           data[0]&0x80 != 0,
		ResponseRestriction: data[0]&0x40 != 0,
	}, nil
}

func (fs FastSelect) FormatText(w *proto.TextWriter, indent int, label string) {
	not := "not "
	if fs.Requested {
		not = ""
	}
	w.Printf(indent, "%s: %srequested\n", label, not)
}

// MarshalJSON renders only the requested flag.
func (fs FastSelect) MarshalJSON() ([]byte, error) {
	if fs.Requested {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// PacketSize is the Packet size facility (code 0x42), in bytes per direction.
type PacketSize struct {
	FromCallingDTE uint16 `json:"from_calling_dte"`
	FromCalledDTE  uint16 `json:"from_called_dte"`
}

func parsePacketSize(code byte, data []byte) (tlv.Value, error) {
	if len(data) < 2 {
		return nil, tlv.ErrTooShort
	}
	if data[0] > 0x0f || data[1] > 0x0f {
		return nil, fmt.Errorf("%w: size exponents %d/%d", tlv.ErrOutOfRange, data[0], data[1])
	}
	return PacketSize{
		FromCalledDTE:  1 << data[0],
		FromCallingDTE: 1 << data[1],
	}, nil
}

func (ps PacketSize) FormatText(w *proto.TextWriter, indent int, label string) {
	w.Printf(indent, "%s:\n", label)
	w.Printf(indent+1, "From calling DTE: %d bytes\n", ps.FromCallingDTE)
	w.Printf(indent+1, "From called  DTE: %d bytes\n", ps.FromCalledDTE)
}

// WindowSize is the Window size facility (code 0x43), in packets per direction.
type WindowSize struct {
	FromCallingDTE uint8 `json:"from_calling_dte"`
	FromCalledDTE  uint8 `json:"from_called_dte"`
}

func parseWindowSize(code byte, data []byte) (tlv.Value, error) {
	if len(data) < 2 {
		return nil, tlv.ErrTooShort
	}
	for _, v := range data[:2] {
		if v < 1 || v > 127 {
			return nil, fmt.Errorf("%w: window size %d", tlv.ErrOutOfRange, v)
		}
	}
	return WindowSize{
		FromCalledDTE:  data[0],
		FromCallingDTE: data[1],
	}, nil
}

func (ws WindowSize) FormatText(w *proto.TextWriter, indent int, label string) {
	w.Printf(indent, "%s:\n", label)
	w.Printf(indent+1, "From calling DTE: %d packets\n", ws.FromCallingDTE)
	w.Printf(indent+1, "From called  DTE: %d packets\n", ws.FromCalledDTE)
}

// Facilities is the facility decoder table.
var Facilities = tlv.Table{
	// Marker separating X.25 facilities from other facility sets.
	0x00: {Parse: tlv.Noop, Hidden: true},
	0x01: {Label: "Fast Select", JSONKey: "fast_select", Parse: parseFastSelect},
	0x08: {Label: "Called line address modified", JSONKey: "called_line_addr_modified", Parse: tlv.ParseOctetString},
	0x42: {Label: "Max. packet size", JSONKey: "max_pkt_size", Parse: parsePacketSize},
	0x43: {Label: "Window size", JSONKey: "window_size", Parse: parseWindowSize},
	0xc9: {Label: "Called address extension", JSONKey: "called_addr_extension", Parse: tlv.ParseASCIIOctetString},
}

// parseFacilityField decodes the facility length octet and the facilities
// that follow. Entry lengths are encoded in the top two bits of the code:
// 0..2 mean 1..3 parameter octets, 3 means an explicit length octet follows.
// The returned list is nil on error; no partial result escapes.
func parseFacilityField(buf []byte) (tlv.List, int, error) {
	if len(buf) == 0 {
		return nil, 0, fmt.Errorf("facility field: %w: empty", ErrTruncated)
	}
	facLen := int(buf[0])
	if len(buf)-1 < facLen {
		return nil, 0, fmt.Errorf("facility field: %w: buf len %d < fac_len %d", ErrTruncated, len(buf)-1, facLen)
	}

	var list tlv.List
	field := buf[1 : 1+facLen]
	for len(field) > 0 {
		code := field[0]
		field = field[1:]
		paramLen := int(code>>6) & 3
		if paramLen < 3 {
			paramLen++
		} else {
			if len(field) == 0 {
				return nil, 0, fmt.Errorf("%w: code 0x%02x: length octet missing", ErrBadFacility, code)
			}
			paramLen = int(field[0])
			field = field[1:]
		}
		if len(field) < paramLen {
			return nil, 0, fmt.Errorf("%w: code 0x%02x param_len %d > remaining %d",
				ErrBadFacility, code, paramLen, len(field))
		}
		list = append(list, tlv.ParseSingle(code, field[:paramLen], Facilities))
		field = field[paramLen:]
	}
	return list, 1 + facLen, nil
}
