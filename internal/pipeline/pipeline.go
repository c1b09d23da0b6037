// Package pipeline runs frames through the X.25 decoder and hands the
// results to the output writer and the storage sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/tomb.v2"

	"vdl2_parser/internal/config"
	"vdl2_parser/internal/frame"
	"vdl2_parser/internal/output"
	"vdl2_parser/internal/reasm"
	"vdl2_parser/internal/storage"
	"vdl2_parser/internal/x25"
)

var (
	// ErrBadFrame wraps errors caused by the frame itself rather than by
	// the output or the sink. Workers log these and carry on.
	ErrBadFrame = errors.New("bad frame")
	// ErrStopped is returned by Submit once the pipeline is closed or a
	// worker has failed.
	ErrStopped = errors.New("pipeline stopped")
)

// Pipeline decodes frames. Process decodes synchronously; Start launches a
// worker pool fed through Submit. Frames of one AVLC flow always go to the
// same worker so their fragments reach the reassembly table in order.
type Pipeline struct {
	decoder *x25.Decoder
	reasm   *reasm.Context
	out     output.Writer
	sink    storage.Sink
	log     logrus.FieldLogger
	now     func() time.Time

	mu        sync.RWMutex
	queues    []chan *frame.Frame
	closed    bool
	t         tomb.Tomb
	closeOnce sync.Once
	closeErr  error

	processed atomic.Uint64
	failed    atomic.Uint64
	stored    atomic.Uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOutput sets the writer decoded frames are printed to.
func WithOutput(w output.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithSink sets the sink packet records are stored in.
func WithSink(s storage.Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithClock sets the clock used to stamp frames that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline around dec. rctx holds the reassembly state shared
// by every frame the pipeline sees; it may be nil to disable reassembly.
func New(dec *x25.Decoder, rctx *reasm.Context, opts ...Option) *Pipeline {
	p := &Pipeline{
		decoder: dec,
		reasm:   rctx,
		sink:    storage.Discard{},
		log:     logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process decodes one frame and passes it on to the output and the sink.
func (p *Pipeline) Process(ctx context.Context, f *frame.Frame) (*output.Record, error) {
	raw, err := f.Payload()
	if err != nil {
		p.failed.Add(1)
		return nil, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}

	env := f.Env(p.reasm, p.now())
	node, flags := p.decoder.Parse(raw, env)
	rec := &output.Record{Frame: f, RxTime: env.RxTime, Node: node, Flags: flags}
	p.processed.Add(1)

	if p.out != nil {
		if err := p.out.Write(rec); err != nil {
			return rec, fmt.Errorf("write output: %w", err)
		}
	}

	if _, discard := p.sink.(storage.Discard); discard {
		return rec, nil
	}
	pr, err := storage.NewRecord(f, env.RxTime, node, flags, raw)
	if err != nil {
		return rec, err
	}
	if err := p.sink.Store(ctx, pr); err != nil {
		return rec, fmt.Errorf("store packet: %w", err)
	}
	p.stored.Add(1)
	return rec, nil
}

// Start launches cfg.Workers workers, each with a queue of cfg.QueueSize
// frames. It must be called once, before Submit.
func (p *Pipeline) Start(cfg config.PipelineConfig) {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < workers; i++ {
		q := make(chan *frame.Frame, cfg.QueueSize)
		p.queues = append(p.queues, q)
		p.t.Go(func() error {
			return p.worker(i, q)
		})
	}
	p.log.WithFields(logrus.Fields{
		"workers": workers,
		"queue":   cfg.QueueSize,
	}).Info("Decode pipeline started")
}

func (p *Pipeline) worker(id int, q <-chan *frame.Frame) error {
	ctx := p.t.Context(context.Background())
	for {
		select {
		case f, ok := <-q:
			if !ok {
				return nil
			}
			if _, err := p.Process(ctx, f); err != nil {
				if errors.Is(err, ErrBadFrame) {
					p.log.WithFields(logrus.Fields{
						"worker": id,
						"frame":  int64(f.ID),
					}).WithError(err).Debug("Skipping frame")
					continue
				}
				return err
			}
		case <-p.t.Dying():
			return nil
		}
	}
}

// Submit queues f for decoding. It blocks while the worker's queue is full.
func (p *Pipeline) Submit(ctx context.Context, f *frame.Frame) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed || len(p.queues) == 0 {
		return ErrStopped
	}
	q := p.queues[shard(f, len(p.queues))]
	select {
	case q <- f:
		return nil
	case <-p.t.Dying():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shard(f *frame.Frame, n int) int {
	return int((uint32(f.Src)*31 + uint32(f.Dst)) % uint32(n))
}

// Close stops accepting frames, lets the workers drain their queues and
// returns the first worker error.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		started := len(p.queues) > 0
		for _, q := range p.queues {
			close(q)
		}
		p.mu.Unlock()

		if started {
			p.closeErr = p.t.Wait()
		}
	})
	return p.closeErr
}

// Stats counts frames seen by the pipeline.
type Stats struct {
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Stored    uint64 `json:"stored"`
}

// Stats returns the frame counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Stored:    p.stored.Load(),
	}
}

// Reasm returns the reassembly context, or nil.
func (p *Pipeline) Reasm() *reasm.Context {
	return p.reasm
}
