package x25

var clearCauses = map[byte]string{
	0x00: "DTE originated",
	0x01: "Number busy",
	0x03: "Invalid facility request",
	0x05: "Network congestion",
	0x09: "Remote procedure error",
	0x0d: "Not obtainable",
	0x13: "Local procedure error",
	0x15: "ROA out of order",
	0x19: "Reverse charging acceptance not subscribed",
	0x21: "Incompatible destination",
	0x29: "Fast select acceptance not subscribed",
	0x39: "Ship absent",
}

var resetCauses = map[byte]string{
	0x00: "DTE originated",
	0x01: "Out of order",
	0x03: "Remote procedure error",
	0x05: "Local procedure error",
	0x07: "Network congestion",
	0x09: "Remote DTE operational",
	0x0f: "Network operational",
	0x11: "Incompatible destination",
	0x1d: "Network out of order",
}

var restartCauses = map[byte]string{
	0x01: "Local procedure error",
	0x03: "Network congestion",
	0x07: "Network operational",
}

var diagCodes = map[byte]string{
	// X.25 Annex E
	0x00: "Cleared by system management",
	0x01: "Invalid P(S)",
	0x02: "Invalid P(R)",
	0x10: "Packet type invalid",
	0x11: "Packet type invalid for state r1",
	0x12: "Packet type invalid for state r2",
	0x13: "Packet type invalid for state r3",
	0x14: "Packet type invalid for state p1",
	0x15: "Packet type invalid for state p2",
	0x16: "Packet type invalid for state p3",
	0x17: "Packet type invalid for state p4",
	0x18: "Packet type invalid for state p5",
	0x19: "Packet type invalid for state p6",
	0x1a: "Packet type invalid for state p7",
	0x1b: "Packet type invalid for state d1",
	0x1c: "Packet type invalid for state d2",
	0x1d: "Packet type invalid for state d3",
	0x20: "Packet not allowed",
	0x21: "Unidentifiable packet",
	0x22: "Call on one-way logical channel",
	0x23: "Invalid packet type on a PVC",
	0x24: "Packet on unassigned logical channel",
	0x25: "Reject not subscribed to",
	0x26: "Packet too short",
	0x27: "Packet too long",
	0x28: "Invalid general format identifier",
	0x29: "Restart packet with non-zero reserved bits",
	0x2a: "Packet type not compatible with facility",
	0x2b: "Unauthorized interrupt confirmation",
	0x2c: "Unauthorized interrupt",
	0x2d: "Unauthorized reject",
	0x2e: "TOA/NPI address subscription facility not subscribed to",
	0x30: "Time expired",
	0x31: "Time expired for incoming call",
	0x32: "Time expired for clear indication",
	0x33: "Time expired for reset indication",
	0x34: "Time expired for restart indication",
	0x35: "Time expired for call deflection",
	0x40: "Call setup or call clearing problem",
	0x41: "Facility code not allowed",
	0x42: "Facility parameter not allowed",
	0x43: "Invalid called DTE address",
	0x44: "Invalid calling DTE address",
	0x45: "Invalid facility length",
	0x46: "Incoming call barred",
	0x47: "No logical channel available",
	0x48: "Call collision",
	0x49: "Duplicate facility requested",
	0x4a: "Non-zero address length",
	0x4b: "Non-zero facility length",
	0x4c: "Facility not provided when expected",
	0x4d: "Invalid ITU-T specified DTE facility",
	0x4e: "Max number of call redirections or deflections exceeded",
	0x50: "Miscellaneous",
	0x51: "Improper cause code from DTE",
	0x52: "Not aligned octet",
	0x53: "Inconsistent Q-bit setting",
	0x54: "NUI problem",
	0x55: "ICRD problem",
	0x70: "International problem",
	0x71: "Remote network problem",
	0x72: "International protocol problem",
	0x73: "International link out of order",
	0x74: "International link busy",
	0x75: "Transit network facility problem",
	0x76: "Remote network facility problem",
	0x77: "International routing problem",
	0x78: "Temporary routing problem",
	0x79: "Unknown called DNIC",
	0x7a: "Maintenance action",
	// ICAO Doc 9705, Table 5.7-3
	0x80: "Version number not supported",
	0x81: "Invalid length field",
	0x82: "Call collision resolution",
	0x83: "Proposed directory size too large",
	0x84: "LREF cancellation not supported",
	0x85: "Received DTE refused, received NET refused or invalid NET selector",
	0x86: "Invalid SNCR field",
	0x87: "ACA compression not supported",
	0x88: "LREF compression not supported",
	0x8f: "Deflate compression not supported",
	0x90: "Idle timer expired",
	0x91: "Need to reuse the circuit",
	0x92: "System local error",
	0x93: "Invalid SEL field value in received NET",
	// ISO 8208
	0xe1: "OSI network disconnect (transient)",
	0xe2: "OSI network disconnect (permanent)",
	0xe3: "OSI network reject - reason unspecified (transient)",
	0xe4: "OSI network reject - reason unspecified (permanent)",
	0xe5: "OSI network reject - QoS not available (transient)",
	0xe6: "OSI network reject - QoS not available (permanent)",
	0xe7: "OSI network reject - NSAP unreachable (transient)",
	0xe8: "OSI network reject - NSAP unreachable (permanent)",
	0xe9: "OSI network reset - no reason given",
	0xea: "OSI network reset - congestion",
	0xeb: "OSI network reject - NSAP address unknown (permanent)",
	0xf0: "System lack of resources",
	0xf1: "Higher level initiated disconnect (normal)",
	// ICAO Doc 9880, 3.7.4.2.1.6.1.5
	0xf2: "Incompatible information in user data",
	0xf3: "Higher level initiated disconnect - incompatible data",
	0xf4: "Higher level initiated reject - no reason given (transient)",
	0xf5: "Higher level initiated reject - no reason given (permanent)",
	0xf6: "Higher level initiated reject - QoS not available (transient)",
	0xf7: "Higher level initiated reject - QoS not available (permanent)",
	0xf8: "Higher level initiated reject - incompatible data",
	0xf9: "Unrecognized protocol ID",
	0xfa: "Higher level initiated reset - user resync",
}

var sndcfErrorDescriptions = []string{
	"Compressed NPDU with unrecognized Local Reference",
	"Creation of directory entry outside of sender's permitted range",
	"Directory entry exists",
	"Local Reference greater than maximum value accepted",
	"Data Unit Identifier missing when SP=1",
	"reserved",
	"reserved",
	"Compressed CLNP PDU with unrecognized type",
	"Local Reference cancellation error",
}

// causeDict returns the cause dictionary for packet types that carry a cause
// octet, or nil.
func causeDict(t PacketType) map[byte]string {
	switch t {
	case TypeClearRequest:
		return clearCauses
	case TypeResetRequest:
		return resetCauses
	case TypeRestartRequest:
		return restartCauses
	}
	return nil
}
