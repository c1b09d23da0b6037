package x25

import (
	"fmt"
	"strings"
)

// Address is a DTE address of up to 15 BCD digits.
type Address struct {
	Digits []byte // Packed two per byte, high nibble first.
	Len    int    // Number of digits (nibbles).
}

// String returns the digits as a hex string, or "" for an empty address.
func (a Address) String() string {
	if a.Len == 0 {
		return ""
	}
	const hex = "0123456789abcdef"
	var sb strings.Builder
	r := nibbleReader{a.Digits}
	for i := 0; i < a.Len; i++ {
		v, err := r.At(i)
		if err != nil {
			break
		}
		sb.WriteByte(hex[v])
	}
	return sb.String()
}

// parseAddressBlock decodes the address length octet and the two packed
// addresses that follow it. The called address comes first; when its digit
// count is odd the calling address starts in the low half of a shared byte.
// It returns the number of bytes consumed.
func parseAddressBlock(buf []byte) (called, calling Address, n int, err error) {
	if len(buf) == 0 {
		return Address{}, Address{}, 0, fmt.Errorf("address block: %w: empty", ErrTruncated)
	}
	callingLen := int(buf[0] >> 4)
	calledLen := int(buf[0] & 0x0f)
	addrLen := (callingLen + calledLen + 1) / 2
	if len(buf)-1 < addrLen {
		return Address{}, Address{}, 0, fmt.Errorf("address block: %w: buf len %d < addr len %d",
			ErrTruncated, len(buf)-1, addrLen)
	}

	r := nibbleReader{buf[1 : 1+addrLen]}
	called = Address{Len: calledLen}
	if called.Digits, err = r.Pack(0, calledLen); err != nil {
		return Address{}, Address{}, 0, fmt.Errorf("called address: %w", err)
	}
	calling = Address{Len: callingLen}
	if calling.Digits, err = r.Pack(calledLen, callingLen); err != nil {
		return Address{}, Address{}, 0, fmt.Errorf("calling address: %w", err)
	}
	return called, calling, 1 + addrLen, nil
}
