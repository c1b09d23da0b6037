package x25

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"vdl2_parser/internal/metrics"
	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/reasm"
	"vdl2_parser/internal/registry"
)

// ReasmTableName is the name of the reassembly table used for data packets.
const ReasmTableName = "x25"

// Data packet sequence numbers are modulo 8.
const seqWrap = 8

// Subnetwork protocol identifiers found in the first user data octet.
const (
	snProtoCLNP = 0x81
	snProtoESIS = 0x82
)

var reasmCounterNames = map[reasm.Status]string{
	reasm.StatusUnknown:       "x25.reasm.unknown",
	reasm.StatusComplete:      "x25.reasm.complete",
	reasm.StatusSkipped:       "x25.reasm.skipped",
	reasm.StatusDuplicate:     "x25.reasm.duplicate",
	reasm.StatusOutOfSequence: "x25.reasm.out_of_seq",
	reasm.StatusArgsInvalid:   "x25.reasm.invalid_args",
}

// Decoder decodes X.25 packets. It holds no per-packet state and is safe
// for concurrent use; reassembly state lives in the reasm.Context passed
// with each call.
type Decoder struct {
	registry        *registry.Registry
	metrics         metrics.Sink
	log             logrus.FieldLogger
	decodeFragments bool
	reasmTimeout    time.Duration
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithRegistry sets the registry used to find next-layer parsers.
func WithRegistry(r *registry.Registry) Option {
	return func(d *Decoder) { d.registry = r }
}

// WithMetrics sets the sink for reassembly status counters.
func WithMetrics(m metrics.Sink) Option {
	return func(d *Decoder) { d.metrics = m }
}

// WithLogger sets the logger for protocol diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Decoder) { d.log = l }
}

// WithDecodeFragments makes the decoder hand incomplete and duplicate
// fragments to the next-layer parsers instead of dumping them as raw bytes.
func WithDecodeFragments(on bool) Option {
	return func(d *Decoder) { d.decodeFragments = on }
}

// WithReasmTimeout sets the inactivity timeout of the data packet
// reassembly table.
func WithReasmTimeout(t time.Duration) Option {
	return func(d *Decoder) { d.reasmTimeout = t }
}

// New creates a Decoder. Without options it uses the default parser
// registry, discards metrics and logs through the standard logrus logger.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		registry:     registry.Default(),
		metrics:      metrics.Discard{},
		log:          logrus.StandardLogger(),
		reasmTimeout: reasm.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// With returns a copy of d with opts applied on top of its settings.
func (d *Decoder) With(opts ...Option) *Decoder {
	c := *d
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Parse decodes one X.25 packet. It never fails: a packet that cannot be
// decoded yields a node marked as erroneous followed by an opaque node
// carrying buf. The returned flags are env.Flags with X25Data or X25Control
// added, plus whatever the next-layer parsers reported.
func (d *Decoder) Parse(buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags) {
	pkt := &Packet{}
	node := &proto.Node{Key: "x25", Data: pkt}

	next, flags, err := d.parse(pkt, buf, env)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"len":   len(buf),
			"stage": "x25",
		}).WithError(err).Debug("unparseable X.25 packet")
		*pkt = Packet{Err: true}
		node.Next = proto.NewUnknown(buf)
		return node, flags
	}
	node.Next = next
	return node, flags
}

// parse fills pkt and returns the user data node chain and the accumulated
// message flags. The flags are meaningful even when err is set.
func (d *Decoder) parse(pkt *Packet, buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags, error) {
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return nil, env.Flags, err
	}
	if hdr.GFI != gfiMod8 {
		return nil, env.Flags, fmt.Errorf("%w: 0x%x", ErrUnsupportedGFI, hdr.GFI)
	}
	pkt.Header = hdr
	pkt.Type = hdr.Type()
	if pkt.Type.IsData() {
		env.Flags |= proto.X25Data
	} else {
		env.Flags |= proto.X25Control
	}
	if !pkt.Type.Supported() {
		return nil, env.Flags, fmt.Errorf("%w 0x%02x", ErrUnsupportedType, byte(pkt.Type))
	}
	body := buf[headerLen:]

	var next *proto.Node
	var extra proto.MsgFlags
	switch pkt.Type {
	case TypeCallRequest, TypeCallAccepted:
		next, extra, err = d.parseCall(pkt, body, env)
	case TypeData:
		next, extra = d.parseData(pkt, hdr, body, env)
	case TypeClearRequest, TypeResetRequest, TypeRestartRequest:
		err = parseCause(pkt, body)
	case TypeDiagnostics:
		err = parseDiagnostics(pkt, body)
	case TypeClearConfirm, TypeRR, TypeREJ, TypeResetConfirm, TypeRestartConfirm:
	}
	if err != nil {
		return nil, env.Flags, err
	}
	return next, env.Flags | extra, nil
}

// parseCall decodes the address block, facilities and compression options
// of Call Request and Call Accepted packets. Fast Select may put user data
// after them, so any remaining bytes go to the user data dispatcher.
func (d *Decoder) parseCall(pkt *Packet, body []byte, env proto.Env) (*proto.Node, proto.MsgFlags, error) {
	called, calling, n, err := parseAddressBlock(body)
	if err != nil {
		return nil, 0, err
	}
	body = body[n:]

	facilities, n, err := parseFacilityField(body)
	if err != nil {
		return nil, 0, err
	}
	body = body[n:]

	var comp Compression
	if pkt.Type == TypeCallRequest {
		if comp, n, err = parseCallRequestSNDCF(body); err != nil {
			return nil, 0, err
		}
		body = body[n:]
	} else if len(body) > 0 {
		// Call Accepted carries a bare compression options octet.
		comp = Compression(body[0])
		body = body[1:]
	}

	pkt.Called, pkt.Calling = called, calling
	pkt.AddrBlockPresent = true
	pkt.Facilities = facilities
	pkt.Compression = comp
	next, flags := d.parseUserData(body, env)
	return next, flags, nil
}

// parseData runs a data packet through the reassembly table (when the
// environment carries one) and decodes the resulting user data.
func (d *Decoder) parseData(pkt *Packet, hdr Header, body []byte, env proto.Env) (*proto.Node, proto.MsgFlags) {
	data := body
	decode := true
	pkt.ReasmStatus = reasm.StatusUnknown

	if env.Reasm != nil {
		table := env.Reasm.Table(ReasmTableName, reasm.Config{
			Wrap:     seqWrap,
			FirstSeq: reasm.SeqAny,
			Timeout:  d.reasmTimeout,
		})
		res := table.Add(reasm.Fragment{
			Key:    reasm.FlowKey{Src: env.Src, Dst: env.Dst},
			Data:   body,
			Seq:    int(hdr.SSeq()),
			Final:  !hdr.More(),
			RxTime: env.RxTime,
		})
		pkt.ReasmStatus = res.Status
		switch {
		case res.Status == reasm.StatusComplete && len(res.Payload) > 0:
			pkt.ReasmBuf = res.Payload
			data = res.Payload
		case (res.Status == reasm.StatusInProgress || res.Status == reasm.StatusDuplicate) && !d.decodeFragments:
			decode = false
		}
		d.reportReasm(res.Status, env.Flags)
	}

	if !decode {
		return proto.NewUnknown(data), 0
	}
	return d.parseUserData(data, env)
}

func (d *Decoder) reportReasm(status reasm.Status, flags proto.MsgFlags) {
	name, ok := reasmCounterNames[status]
	if !ok {
		return
	}
	d.metrics.Increment(flags.Direction(), name)
}

// parseCause decodes the cause and optional diagnostic code of Clear, Reset
// and Restart Request packets.
func parseCause(pkt *Packet, body []byte) error {
	if len(body) < 1 {
		return fmt.Errorf("%s: %w: no cause code", pkt.Type, ErrTruncated)
	}
	pkt.ClearCause = body[0]
	// With the top bit set the low bits are a DTE-supplied cause, which has no
	// dictionary entry; collapse it to 0.
	if pkt.ClearCause&0x80 != 0 {
		pkt.ClearCause = 0
	}
	if len(body) > 1 {
		pkt.DiagCode = body[1]
		pkt.DiagCodePresent = true
	}
	return nil
}

func parseDiagnostics(pkt *Packet, body []byte) error {
	if len(body) < 1 {
		return fmt.Errorf("%s: %w: no diagnostic code", pkt.Type, ErrTruncated)
	}
	pkt.DiagCode = body[0]
	pkt.DiagCodePresent = true
	if len(body) > 1 {
		pkt.DiagData = append([]byte(nil), body[1:]...)
	}
	return nil
}
