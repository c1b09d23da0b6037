// Package feed connects the decoder to NATS: frames come in on a subject,
// decoded records can be published on another.
package feed

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"vdl2_parser/internal/config"
	"vdl2_parser/internal/frame"
	"vdl2_parser/internal/output"
)

// Submitter accepts decoded input frames. *pipeline.Pipeline satisfies it.
type Submitter interface {
	Submit(ctx context.Context, f *frame.Frame) error
}

// Connect dials the NATS server in cfg. The connection reconnects forever.
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	log := logrus.WithField("component", "nats")
	nc, err := nats.Connect(cfg.URL,
		nats.Name("vdl2_parser"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("Disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("Reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	return nc, nil
}

// Subscriber consumes frames from a subject as a member of a queue group
// and hands them to a Submitter.
type Subscriber struct {
	nc      *nats.Conn
	subject string
	queue   string
	pipe    Submitter
	log     logrus.FieldLogger

	received atomic.Uint64
	rejected atomic.Uint64
}

// NewSubscriber creates a subscriber on nc.
func NewSubscriber(nc *nats.Conn, cfg config.NATSConfig, pipe Submitter) *Subscriber {
	return &Subscriber{
		nc:      nc,
		subject: cfg.Subject,
		queue:   cfg.Queue,
		pipe:    pipe,
		log:     logrus.WithFields(logrus.Fields{"component": "feed", "subject": cfg.Subject}),
	}
}

// Run consumes messages until ctx is cancelled or the pipeline stops.
func (s *Subscriber) Run(ctx context.Context) error {
	msgs := make(chan *nats.Msg, 1024)
	sub, err := s.nc.ChanQueueSubscribe(s.subject, s.queue, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.log.WithError(err).Debug("Unsubscribe failed")
		}
	}()
	s.log.WithField("queue", s.queue).Info("Subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-msgs:
			if err := s.handle(ctx, m.Data); err != nil {
				return err
			}
		}
	}
}

// handle decodes one message. Undecodable messages are counted and dropped;
// only a failure to submit ends the subscription.
func (s *Subscriber) handle(ctx context.Context, data []byte) error {
	s.received.Add(1)
	f, err := frame.Decode(data)
	if err != nil {
		s.rejected.Add(1)
		s.log.WithError(err).Debug("Dropping undecodable message")
		return nil
	}
	if err := s.pipe.Submit(ctx, f); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("submit frame: %w", err)
	}
	return nil
}

// Received returns the number of messages received and how many of them
// were dropped as undecodable.
func (s *Subscriber) Received() (total, rejected uint64) {
	return s.received.Load(), s.rejected.Load()
}

// Publisher is an output.Writer that publishes each record as JSON.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a publisher for subject on nc.
func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	return &Publisher{nc: nc, subject: subject}
}

func (p *Publisher) Write(rec *output.Record) error {
	b, err := output.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return p.nc.Publish(p.subject, b)
}

// Close flushes pending publishes. The connection stays open.
func (p *Publisher) Close() error {
	return p.nc.Flush()
}
