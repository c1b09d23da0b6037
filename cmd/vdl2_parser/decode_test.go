package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdl2_parser/internal/output"
	"vdl2_parser/internal/pipeline"
	"vdl2_parser/internal/reasm"
	"vdl2_parser/internal/x25"
)

type bufCloser struct{ bytes.Buffer }

func (*bufCloser) Close() error { return nil }

func TestParseLine(t *testing.T) {
	f, err := parseLine(`{"src":"10AB12","dst":"280001","data":"100121"}`, "")
	require.NoError(t, err)
	assert.Equal(t, "10AB12", f.Src.String())

	f, err = parseLine("10 01 21", "gnd2air")
	require.NoError(t, err)
	assert.Equal(t, "10 01 21", f.Data)
	assert.Equal(t, "gnd2air", f.Direction)
	assert.False(t, f.Timestamp.IsZero())

	_, err = parseLine(`{"src":`, "")
	assert.Error(t, err)
}

func TestDecodeStream(t *testing.T) {
	buf := &bufCloser{}
	p := pipeline.New(x25.New(), reasm.NewContext(), pipeline.WithOutput(output.NewJSON(buf)))

	input := strings.Join([]string{
		`# capture from YSSY`,
		`{"timestamp":"2026-05-04T10:30:00Z","src":"10AB12","dst":"280001","data":"121010aabb"}`,
		``,
		`{"timestamp":"2026-05-04T10:30:01Z","src":"10AB12","dst":"280001","data":"121002cc"}`,
		`{"src":`,
		`{"timestamp":"2026-05-04T10:30:02Z","src":"10AB12","dst":"280001","data":"zz"}`,
	}, "\n")

	var sum decodeSummary
	require.NoError(t, decodeStream(context.Background(), p, strings.NewReader(input), "", &sum))
	assert.Equal(t, 6, sum.Lines)
	assert.Equal(t, 3, sum.Frames)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, pipeline.Stats{Processed: 2, Failed: 1}, p.Stats())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"reasm_status":"in progress"`)
	assert.Contains(t, lines[1], `"reasm_status":"complete"`)
}
