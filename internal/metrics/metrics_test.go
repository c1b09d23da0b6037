package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdl2_parser/internal/proto"
)

func TestPrometheusCounters(t *testing.T) {
	p := NewPrometheus()
	p.Increment(proto.Air2Gnd, "x25.reasm.complete")
	p.Increment(proto.Air2Gnd, "x25.reasm.complete")
	p.Increment(proto.Gnd2Air, "x25.reasm.duplicate")

	snap, err := p.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]float64{
		"x25.reasm.complete":  {"air2gnd": 2},
		"x25.reasm.duplicate": {"gnd2air": 1},
	}, snap)

	assert.Equal(t, 2.0, p.Counter(proto.Air2Gnd, "x25.reasm.complete"))
	assert.Equal(t, 0.0, p.Counter(proto.Gnd2Air, "x25.reasm.complete"))
}

func TestPrometheusHandler(t *testing.T) {
	p := NewPrometheus()
	p.Increment(proto.Gnd2Air, "x25.reasm.skipped")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `vdl2_decoder_events_total{counter="x25.reasm.skipped",direction="gnd2air"} 1`)
}

func TestDiscard(t *testing.T) {
	var s Sink = Discard{}
	s.Increment(proto.Air2Gnd, "anything")
}
