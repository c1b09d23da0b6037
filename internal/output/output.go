// Package output renders decoded packets as text or JSON lines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"

	"vdl2_parser/internal/config"
	"vdl2_parser/internal/frame"
	"vdl2_parser/internal/logging"
	"vdl2_parser/internal/proto"
)

// Record is one decoded frame ready for output.
type Record struct {
	Frame  *frame.Frame
	RxTime time.Time
	Node   *proto.Node
	Flags  proto.MsgFlags
}

// Writer writes records to a destination. Implementations are safe for
// concurrent use.
type Writer interface {
	Write(rec *Record) error
	Close() error
}

// Open creates the writer described by cfg. An empty path writes to stdout;
// otherwise output goes to a rotating file.
func Open(cfg config.OutputConfig) (Writer, error) {
	var dest io.WriteCloser = nopCloser{os.Stdout}
	if cfg.Path != "" {
		dest = logging.NewRotatingFile(cfg.Path, cfg.Rotate)
	}
	switch strings.ToLower(cfg.Format) {
	case "text", "":
		return NewText(dest, cfg.UTC, cfg.Milliseconds)
	case "json":
		return NewJSON(dest), nil
	}
	dest.Close()
	return nil, fmt.Errorf("unsupported output format: %s", cfg.Format)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Text writes a header line per frame followed by the indented protocol tree.
type Text struct {
	mu    sync.Mutex
	w     io.WriteCloser
	stamp *strftime.Strftime
	utc   bool
}

// NewText creates a text writer. Timestamps are local time unless utc is
// set; milliseconds are appended to the seconds when ms is set.
func NewText(w io.WriteCloser, utc, ms bool) (*Text, error) {
	pattern := "%F %T %Z"
	if ms {
		pattern = "%F %T.%L %Z"
	}
	stamp, err := strftime.New(pattern, strftime.WithMilliseconds('L'))
	if err != nil {
		return nil, fmt.Errorf("timestamp format: %w", err)
	}
	return &Text{w: w, stamp: stamp, utc: utc}, nil
}

func (t *Text) Write(rec *Record) error {
	ts := rec.RxTime
	if t.utc {
		ts = ts.UTC()
	} else {
		ts = ts.Local()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", t.stamp.FormatString(ts))
	if f := rec.Frame; f != nil {
		if f.Frequency != 0 {
			fmt.Fprintf(&sb, " [%.3f]", f.Frequency)
		}
		if f.Station != "" {
			fmt.Fprintf(&sb, " [%s]", f.Station)
		}
		fmt.Fprintf(&sb, " %s -> %s", f.Src, f.Dst)
	}
	fmt.Fprintf(&sb, " (%s)\n", rec.Flags.Direction())
	sb.WriteString(proto.FormatTree(rec.Node))
	sb.WriteByte('\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, sb.String())
	return err
}

func (t *Text) Close() error {
	return t.w.Close()
}

// JSON writes one JSON object per frame.
type JSON struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func NewJSON(w io.WriteCloser) *JSON {
	return &JSON{w: w}
}

type jsonRecord struct {
	Timestamp string      `json:"timestamp"`
	Station   string      `json:"station,omitempty"`
	Frequency float64     `json:"freq,omitempty"`
	Src       string      `json:"src,omitempty"`
	Dst       string      `json:"dst,omitempty"`
	Direction string      `json:"direction"`
	Flags     []string    `json:"flags"`
	Packet    *proto.Node `json:"packet"`
}

// Marshal renders a record as a single JSON object.
func Marshal(rec *Record) ([]byte, error) {
	out := jsonRecord{
		Timestamp: rec.RxTime.UTC().Format(time.RFC3339Nano),
		Direction: rec.Flags.Direction().String(),
		Flags:     rec.Flags.Names(),
		Packet:    rec.Node,
	}
	if f := rec.Frame; f != nil {
		out.Station = f.Station
		out.Frequency = f.Frequency
		out.Src = f.Src.String()
		out.Dst = f.Dst.String()
	}
	return json.Marshal(out)
}

func (j *JSON) Write(rec *Record) error {
	b, err := Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	b = append(b, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.w.Write(b)
	return err
}

func (j *JSON) Close() error {
	return j.w.Close()
}

// Multi writes each record to every writer in turn.
type Multi []Writer

func (m Multi) Write(rec *Record) error {
	for _, w := range m {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, w := range m {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
