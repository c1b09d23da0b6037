package x25

import "errors"

// errNibbleRange is returned when a nibble index is past the end of the data.
var errNibbleRange = errors.New("nibble index out of range")

// nibbleReader gives indexed access to 4-bit units of a byte slice,
// high nibble first.
type nibbleReader struct {
	data []byte
}

func (r nibbleReader) Len() int {
	return len(r.data) * 2
}

// At returns the nibble at index i.
func (r nibbleReader) At(i int) (byte, error) {
	if i < 0 || i >= r.Len() {
		return 0, errNibbleRange
	}
	b := r.data[i/2]
	if i%2 == 0 {
		return b >> 4, nil
	}
	return b & 0x0f, nil
}

// Pack copies n nibbles starting at index start into a new, left-aligned
// byte slice. An odd trailing nibble occupies the high half of the last byte.
func (r nibbleReader) Pack(start, n int) ([]byte, error) {
	if start < 0 || n < 0 || start+n > r.Len() {
		return nil, errNibbleRange
	}
	out := make([]byte, (n+1)/2)
	for i := 0; i < n; i++ {
		v, err := r.At(start + i)
		if err != nil {
			return nil, err
		}
		if i%2 == 0 {
			out[i/2] = v << 4
		} else {
			out[i/2] |= v
		}
	}
	return out, nil
}
