// Package metrics implements Prometheus counters for decoder events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"vdl2_parser/internal/proto"
)

// Sink receives one increment per counted event, keyed by traffic direction.
type Sink interface {
	Increment(dir proto.Direction, name string)
}

// Discard is a Sink that drops everything.
type Discard struct{}

func (Discard) Increment(proto.Direction, string) {}

// Prometheus is a Sink backed by a counter vector on its own registry.
type Prometheus struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

// NewPrometheus creates a sink with a fresh registry. The registry also
// carries the Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Prometheus{
		registry: reg,
		events: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "vdl2_decoder_events_total",
				Help: "Decoder events by counter name and message direction",
			},
			[]string{"counter", "direction"},
		),
	}
}

// Increment bumps the counter name for direction dir.
func (p *Prometheus) Increment(dir proto.Direction, name string) {
	p.events.WithLabelValues(name, dir.String()).Inc()
}

// Counter returns the current value of a counter. Mostly useful in tests
// and the JSON stats endpoint.
func (p *Prometheus) Counter(dir proto.Direction, name string) float64 {
	var m dto.Metric
	if err := p.events.WithLabelValues(name, dir.String()).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// Snapshot returns all decoder event counters as counter -> direction -> value.
func (p *Prometheus) Snapshot() (map[string]map[string]float64, error) {
	families, err := p.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]float64)
	for _, mf := range families {
		if mf.GetName() != "vdl2_decoder_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var counter, dir string
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "counter":
					counter = lp.GetValue()
				case "direction":
					dir = lp.GetValue()
				}
			}
			if out[counter] == nil {
				out[counter] = make(map[string]float64)
			}
			out[counter][dir] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry so other components can add collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
