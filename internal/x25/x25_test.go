package x25

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"vdl2_parser/internal/tlv"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		id   byte
		want PacketType
	}{
		{0x00, TypeData},
		{0x7e, TypeData},
		{0x01, TypeRR},
		{0xe1, TypeRR},
		{0x09, TypeREJ},
		{0x69, TypeREJ},
		{0x0b, TypeCallRequest},
		{0x0f, TypeCallAccepted},
		{0x13, TypeClearRequest},
		{0x17, TypeClearConfirm},
		{0x1b, TypeResetRequest},
		{0x1f, TypeResetConfirm},
		{0xf1, TypeDiagnostics},
		{0xfb, TypeRestartRequest},
		{0xff, TypeRestartConfirm},
	}
	for _, tt := range tests {
		got := Classify(tt.id)
		if got != tt.want {
			t.Errorf("Classify(0x%02x) = %v, want %v", tt.id, got, tt.want)
		}
		if !got.Supported() {
			t.Errorf("Classify(0x%02x).Supported() = false", tt.id)
		}
	}

	// Odd identifiers outside the table keep their raw value.
	got := Classify(0x05)
	assert.Equal(t, PacketType(0x05), got)
	assert.False(t, got.Supported())
}

func TestDecodeHeader(t *testing.T) {
	hdr, err := DecodeHeader([]byte{0x1a, 0x42, 0x7a})
	require.NoError(t, err)
	assert.Equal(t, byte(1), hdr.GFI)
	assert.Equal(t, byte(0x0a), hdr.ChanGroup)
	assert.Equal(t, byte(0x42), hdr.ChanNum)
	assert.Equal(t, TypeData, hdr.Type())
	assert.Equal(t, uint8(5), hdr.SSeq())
	assert.Equal(t, uint8(3), hdr.RSeq())
	assert.True(t, hdr.More())

	_, err = DecodeHeader([]byte{0x10, 0x01})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseAddressBlock(t *testing.T) {
	tests := []struct {
		name        string
		buf         []byte
		wantCalled  string
		wantCalling string
		wantN       int
	}{
		{"odd called", []byte{0x35, 0x12, 0x34, 0x56, 0x78}, "12345", "678", 5},
		{"even both", []byte{0x44, 0x12, 0x34, 0x56, 0x78}, "1234", "5678", 5},
		{"odd both", []byte{0x33, 0x12, 0x34, 0x56}, "123", "456", 4},
		{"odd calling", []byte{0x34, 0x12, 0x34, 0x56, 0x70}, "1234", "567", 5},
		{"empty", []byte{0x00}, "", "", 1},
		{"called only", []byte{0x02, 0xab}, "ab", "", 2},
		{"trailing bytes ignored", []byte{0x11, 0x9c, 0xff, 0xff}, "9", "c", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, calling, n, err := parseAddressBlock(tt.buf)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalled, called.String())
			assert.Equal(t, tt.wantCalling, calling.String())
			assert.Equal(t, tt.wantN, n)
		})
	}
}

func TestParseAddressBlockCallingIsLeftAligned(t *testing.T) {
	_, calling, _, err := parseAddressBlock([]byte{0x35, 0x12, 0x34, 0x56, 0x78})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x67, 0x80}, calling.Digits)
	assert.Equal(t, 3, calling.Len)
}

func TestParseAddressBlockTruncated(t *testing.T) {
	for _, buf := range [][]byte{
		nil,
		{0x35, 0x12, 0x34, 0x56},
		{0xff},
	} {
		_, _, _, err := parseAddressBlock(buf)
		assert.ErrorIs(t, err, ErrTruncated, "buf %x", buf)
	}
}

// encodeAddressBlock packs digits the way a DTE would: called first, then
// calling, nibble after nibble.
func encodeAddressBlock(called, calling []byte) []byte {
	nibbles := append(append([]byte(nil), called...), calling...)
	out := []byte{byte(len(calling))<<4 | byte(len(called))}
	for i := 0; i < len(nibbles); i += 2 {
		b := nibbles[i] << 4
		if i+1 < len(nibbles) {
			b |= nibbles[i+1]
		}
		out = append(out, b)
	}
	return out
}

func digitsString(d []byte) string {
	const hex = "0123456789abcdef"
	s := make([]byte, len(d))
	for i, v := range d {
		s[i] = hex[v]
	}
	return string(s)
}

func TestAddressBlockRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		called := rapid.SliceOfN(rapid.ByteRange(0, 15), 0, 15).Draw(t, "called")
		calling := rapid.SliceOfN(rapid.ByteRange(0, 15), 0, 15).Draw(t, "calling")
		trailer := rapid.SliceOfN(rapid.Byte(), 0, 4).Draw(t, "trailer")

		enc := encodeAddressBlock(called, calling)
		gotCalled, gotCalling, n, err := parseAddressBlock(append(enc, trailer...))
		if err != nil {
			t.Fatalf("parseAddressBlock: %v", err)
		}
		if n != 1+(len(called)+len(calling)+1)/2 {
			t.Fatalf("consumed %d bytes, want %d", n, 1+(len(called)+len(calling)+1)/2)
		}
		if gotCalled.String() != digitsString(called) || gotCalling.String() != digitsString(calling) {
			t.Fatalf("got %q/%q, want %q/%q", gotCalled, gotCalling, digitsString(called), digitsString(calling))
		}
	})
}

func TestParseFacilityField(t *testing.T) {
	buf := []byte{
		0x0f,
		0x00, 0x00, // marker
		0x42, 0x07, 0x08, // max packet size
		0x43, 0x02, 0x03, // window size
		0x01, 0x80, // fast select
		0xc9, 0x03, 'A', 'B', 'C', // called address extension
		0xaa, // next field
	}
	list, n, err := parseFacilityField(buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	require.Len(t, list, 5)

	assert.True(t, list[0].Desc.Hidden)
	assert.Equal(t, PacketSize{FromCalledDTE: 128, FromCallingDTE: 256}, list[1].Value)
	assert.Equal(t, WindowSize{FromCalledDTE: 2, FromCallingDTE: 3}, list[2].Value)
	assert.Equal(t, FastSelect{Requested: true}, list[3].Value)
	assert.Equal(t, tlv.ASCIIOctetString("ABC"), list[4].Value)
}

func TestParseFacilityFieldKeepsBadValues(t *testing.T) {
	// Window size 0 is invalid and code 0x7f is not in the table; neither
	// fails the field.
	list, n, err := parseFacilityField([]byte{0x06, 0x43, 0x00, 0x02, 0x7f, 0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.Len(t, list, 2)
	assert.Error(t, list[0].Err)
	assert.Nil(t, list[0].Value)
	assert.True(t, list[1].Unknown())
	assert.Equal(t, []byte{0x01, 0x02}, list[1].Raw)
}

func TestParseFacilityFieldErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"declared 5 provides 3", []byte{0x05, 0x01, 0x80, 0x01}, ErrTruncated},
		{"entry overruns field", []byte{0x02, 0x42, 0x07}, ErrBadFacility},
		{"length octet missing", []byte{0x01, 0xc9}, ErrBadFacility},
		{"explicit length overruns", []byte{0x03, 0xc9, 0x05, 0x41}, ErrBadFacility},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, n, err := parseFacilityField(tt.buf)
			assert.True(t, errors.Is(err, tt.want), "err = %v, want %v", err, tt.want)
			assert.Nil(t, list)
			assert.Zero(t, n)
		})
	}
}

func TestFacilityLengthsSumToField(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 8).Draw(t, "count")
		var field []byte
		for i := 0; i < count; i++ {
			code := rapid.Byte().Draw(t, "code")
			var paramLen int
			if class := int(code>>6) & 3; class < 3 {
				paramLen = class + 1
				field = append(field, code)
			} else {
				paramLen = rapid.IntRange(0, 12).Draw(t, "len")
				field = append(field, code, byte(paramLen))
			}
			field = append(field, rapid.SliceOfN(rapid.Byte(), paramLen, paramLen).Draw(t, "param")...)
		}
		buf := append([]byte{byte(len(field))}, field...)

		list, n, err := parseFacilityField(buf)
		if err != nil {
			t.Fatalf("parseFacilityField: %v", err)
		}
		if n != len(buf) {
			t.Fatalf("consumed %d, want %d", n, len(buf))
		}
		if len(list) != count {
			t.Fatalf("got %d tags, want %d", len(list), count)
		}
	})
}

func TestParseCallRequestSNDCF(t *testing.T) {
	comp, n, err := parseCallRequestSNDCF([]byte{0xc1, 0x04, 0x01, 0x00, 0x00, 0x52, 0x81})
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, Compression(0x52), comp)
	assert.Equal(t, []string{"ACA", "LREF"}, comp.Algorithms())
	assert.True(t, comp.MI())

	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"short", []byte{0xc1}, ErrTruncated},
		{"bad id", []byte{0xc2, 0x04, 0x01, 0, 0, 0}, ErrBadSNDCF},
		{"bad version", []byte{0xc1, 0x04, 0x02, 0, 0, 0}, ErrBadSNDCF},
		{"too small", []byte{0xc1, 0x03, 0x01, 0, 0}, ErrBadSNDCF},
		{"no version", []byte{0xc1, 0x04}, ErrBadSNDCF},
		{"truncated", []byte{0xc1, 0x06, 0x01, 0, 0, 0}, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseCallRequestSNDCF(tt.buf)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompressionString(t *testing.T) {
	assert.Equal(t, "none", Compression(0x10).String())
	assert.Equal(t, "ACA, DEFLATE, LREF, LREF-CAN", Compression(0x63).String())
}

func TestNibbleReader(t *testing.T) {
	r := nibbleReader{[]byte{0xab, 0xcd}}
	assert.Equal(t, 4, r.Len())
	v, err := r.At(3)
	require.NoError(t, err)
	assert.Equal(t, byte(0x0d), v)
	_, err = r.At(4)
	assert.Error(t, err)

	packed, err := r.Pack(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xbc, 0xd0}, packed)
	_, err = r.Pack(2, 3)
	assert.Error(t, err)
}
