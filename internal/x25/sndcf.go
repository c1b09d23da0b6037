package x25

import (
	"fmt"
	"strings"
)

const (
	sndcfID         = 0xc1
	sndcfVersion    = 0x01
	minSNDCFLen     = 4
	compressionMI   = 0x10
	sndcfErrorProto = 0xe0
)

// Compression is the SNDCF compression options octet.
type Compression byte

type compressionAlgo struct {
	bit  Compression
	name string
}

var compressionAlgos = []compressionAlgo{
	{0x40, "ACA"},
	{0x20, "DEFLATE"},
	{0x02, "LREF"},
	{0x01, "LREF-CAN"},
}

// Algorithms returns the names of the compression algorithms whose bits are set.
func (c Compression) Algorithms() []string {
	var names []string
	for _, a := range compressionAlgos {
		if c&a.bit != 0 {
			names = append(names, a.name)
		}
	}
	return names
}

// MI reports the maintenance-of-integrity bit.
func (c Compression) MI() bool {
	return c&compressionMI != 0
}

func (c Compression) String() string {
	names := c.Algorithms()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// parseCallRequestSNDCF decodes the SNDCF parameter block of a Call Request:
// identifier, length, version and the compression options octet.
// It returns the number of bytes consumed.
func parseCallRequestSNDCF(buf []byte) (Compression, int, error) {
	if len(buf) < 2 {
		return 0, 0, fmt.Errorf("sndcf: %w: len %d", ErrTruncated, len(buf))
	}
	if buf[0] != sndcfID {
		return 0, 0, fmt.Errorf("%w: identifier 0x%02x", ErrBadSNDCF, buf[0])
	}
	sndcfLen := int(buf[1])
	body := buf[2:]
	if sndcfLen < minSNDCFLen || len(body) == 0 || body[0] != sndcfVersion {
		ver := -1
		if len(body) > 0 {
			ver = int(body[0])
		}
		return 0, 0, fmt.Errorf("%w: len=%d ver=%d", ErrBadSNDCF, sndcfLen, ver)
	}
	if len(body) < sndcfLen {
		return 0, 0, fmt.Errorf("sndcf: %w: sndcf_len %d > buf len %d", ErrTruncated, sndcfLen, len(body))
	}
	return Compression(body[3]), 2 + sndcfLen, nil
}
