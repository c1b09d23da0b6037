// Package frame provides the VDL2 input frame types accepted from JSONL
// files and the NATS feed.
package frame

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/reasm"
)

// ErrNoPayload is returned when a frame carries no X.25 bytes.
var ErrNoPayload = errors.New("frame: no payload")

// FlexInt64 handles JSON fields that can be either string or number.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexInt64(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			*f = 0
			return nil // Silently ignore unparseable IDs
		}
		*f = FlexInt64(i)
		return nil
	}

	*f = 0
	return nil
}

// Addr is a 24-bit AVLC address. In JSON it is either a number or a hex
// string ("10AB12"), the way dumpvdl2 prints it.
type Addr uint32

func (a *Addr) UnmarshalJSON(data []byte) error {
	var n uint32
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Addr(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("avlc address: %w", err)
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("avlc address %q: %w", s, err)
	}
	*a = Addr(v)
	return nil
}

func (a Addr) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a Addr) String() string {
	return fmt.Sprintf("%06X", uint32(a))
}

// Timestamp accepts RFC 3339 strings and Unix epoch seconds, either as a
// number or a numeric string.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		t.Time = fromEpoch(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = fromEpoch(f)
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	t.Time = ts
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func fromEpoch(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Frame is one received VDL2 frame with the AVLC layer already decoded.
// Data holds the X.25 packet as hex.
type Frame struct {
	ID        FlexInt64 `json:"id"`
	Timestamp Timestamp `json:"timestamp"`
	Station   string    `json:"station,omitempty"`
	Frequency float64   `json:"frequency,omitempty"`
	Src       Addr      `json:"src"`
	Dst       Addr      `json:"dst"`

	// Direction from the transport layer: "air2gnd" / "downlink" or
	// "gnd2air" / "uplink". Air is assumed when it is missing.
	Direction string `json:"direction,omitempty"`
	Data      string `json:"data"`
}

// NATSWrapper is the feed message format where the frame is nested under
// "vdl2" with source metadata at the top level.
type NATSWrapper struct {
	Source *NATSSource `json:"source,omitempty"`
	Frame  *Frame      `json:"vdl2,omitempty"`
}

// NATSSource contains source metadata from the NATS feed.
type NATSSource struct {
	Name        string `json:"name,omitempty"`
	Application string `json:"application,omitempty"`
	Station     string `json:"station,omitempty"`
}

// ToFrame returns the wrapped frame, filling the station from the source
// metadata when the frame has none.
func (w *NATSWrapper) ToFrame() *Frame {
	if w.Frame == nil {
		return nil
	}
	f := *w.Frame
	if f.Station == "" && w.Source != nil {
		f.Station = w.Source.Station
		if f.Station == "" {
			f.Station = w.Source.Name
		}
	}
	return &f
}

// Decode parses a frame in either the flat or the wrapped format.
func Decode(raw []byte) (*Frame, error) {
	var w NATSWrapper
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if f := w.ToFrame(); f != nil {
		return f, nil
	}
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}

// Payload returns the X.25 packet bytes. Whitespace between octets is allowed.
func (f *Frame) Payload() ([]byte, error) {
	s := strings.Join(strings.Fields(f.Data), "")
	if s == "" {
		return nil, ErrNoPayload
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("frame payload: %w", err)
	}
	return b, nil
}

// Flags returns the source direction flag for the frame.
func (f *Frame) Flags() proto.MsgFlags {
	switch strings.ToLower(f.Direction) {
	case "gnd2air", "uplink", "gnd":
		return proto.SrcGnd
	}
	return proto.SrcAir
}

// Env builds the decoder environment for the frame. A frame without a
// timestamp is stamped with now.
func (f *Frame) Env(rctx *reasm.Context, now time.Time) proto.Env {
	rx := f.Timestamp.Time
	if rx.IsZero() {
		rx = now
	}
	return proto.Env{
		Flags:  f.Flags(),
		Reasm:  rctx,
		RxTime: rx,
		Src:    uint32(f.Src),
		Dst:    uint32(f.Dst),
	}
}
