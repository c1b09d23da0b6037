package feed

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdl2_parser/internal/config"
	"vdl2_parser/internal/frame"
	"vdl2_parser/internal/output"
	"vdl2_parser/internal/proto"
)

type fakePipe struct {
	mu     sync.Mutex
	frames []*frame.Frame
	err    error
}

func (p *fakePipe) Submit(_ context.Context, f *frame.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.frames = append(p.frames, f)
	return nil
}

func (p *fakePipe) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func TestHandle(t *testing.T) {
	pipe := &fakePipe{}
	s := NewSubscriber(nil, config.NATSConfig{Subject: "vdl2.frames"}, pipe)
	ctx := context.Background()

	require.NoError(t, s.handle(ctx, []byte(`{"source":{"station":"YSSY"},"vdl2":{"src":"10AB12","dst":"280001","data":"100121"}}`)))
	require.NoError(t, s.handle(ctx, []byte(`not json`)))

	require.Equal(t, 1, pipe.count())
	assert.Equal(t, "YSSY", pipe.frames[0].Station)
	total, rejected := s.Received()
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, uint64(1), rejected)
}

func TestHandleSubmitFailure(t *testing.T) {
	stopped := errors.New("stopped")
	s := NewSubscriber(nil, config.NATSConfig{}, &fakePipe{err: stopped})

	err := s.handle(context.Background(), []byte(`{"data":"100121"}`))
	assert.ErrorIs(t, err, stopped)

	// A cancelled context is a shutdown, not a failure.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.handle(ctx, []byte(`{"data":"100121"}`)))
}

// TestRoundTrip needs a NATS server; set NATS_URL to run it.
func TestRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	cfg := config.NATSConfig{URL: url, Subject: "vdl2.test.frames", Queue: "vdl2_test"}
	nc, err := Connect(cfg)
	require.NoError(t, err)
	defer nc.Close()

	pipe := &fakePipe{}
	s := NewSubscriber(nc, cfg, pipe)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Publish until the subscription is up and the frame arrives.
	require.Eventually(t, func() bool {
		_ = nc.Publish(cfg.Subject, []byte(`{"src":"10AB12","dst":"280001","data":"100121"}`))
		return pipe.count() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	out, err := nc.SubscribeSync("vdl2.test.decoded")
	require.NoError(t, err)
	pub := NewPublisher(nc, "vdl2.test.decoded")
	node := proto.NewUnknown([]byte{0x01})
	require.NoError(t, pub.Write(&output.Record{RxTime: time.Now(), Node: node, Flags: proto.SrcAir}))
	require.NoError(t, pub.Close())

	msg, err := out.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Data), `"unknown_proto"`)
}
