// Package reasm reassembles sequence-numbered fragments into complete payloads.
//
// A Context holds one Table per protocol. Tables are keyed by FlowKey, because
// the fragments themselves (X.25 data packets, for instance) carry no source
// or destination information; the caller supplies the link-layer addresses.
package reasm

import (
	"time"
)

// Status is the outcome of adding a fragment to a Table.
type Status int

const (
	StatusUnknown Status = iota
	StatusComplete
	StatusInProgress
	StatusSkipped
	StatusDuplicate
	StatusOutOfSequence
	StatusArgsInvalid
)

var statusNames = map[Status]string{
	StatusUnknown:       "unknown",
	StatusComplete:      "complete",
	StatusInProgress:    "in progress",
	StatusSkipped:       "skipped",
	StatusDuplicate:     "duplicate",
	StatusOutOfSequence: "out of sequence",
	StatusArgsInvalid:   "invalid args",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the status name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FlowKey identifies a fragment stream by its link-layer addresses.
type FlowKey struct {
	Src uint32
	Dst uint32
}

// Valid reports whether the key can identify a flow.
func (k FlowKey) Valid() bool {
	return k.Src != 0 || k.Dst != 0
}

// SeqAny disables the first-sequence-number constraint.
const SeqAny = -1

// Config controls how a Table sequences and expires fragments.
type Config struct {
	Wrap     int           // Sequence numbers run 0..Wrap-1. Zero means no wrap.
	FirstSeq int           // Required sequence number of a flow's first fragment, or SeqAny.
	Timeout  time.Duration // Inactivity period after which a flow is discarded.
}

// Fragment is one piece of a fragmented payload.
type Fragment struct {
	Key    FlowKey
	Data   []byte
	Seq    int
	Final  bool
	RxTime time.Time
}

// Result is returned by Table.Add. Payload is set only for StatusComplete;
// the table keeps no reference to it, so the caller owns it.
type Result struct {
	Status  Status
	Payload []byte
}
