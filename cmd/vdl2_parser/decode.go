package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vdl2_parser/internal/frame"
	"vdl2_parser/internal/metrics"
	"vdl2_parser/internal/output"
	"vdl2_parser/internal/pipeline"
	"vdl2_parser/internal/reasm"
	"vdl2_parser/internal/storage"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file...]",
	Short: "Decode frames from JSONL files or stdin",
	Long: `Decode frames from JSONL files, or from stdin when no file is given.

Each line is a frame object, or a bare hex X.25 packet for quick checks.
Frames are decoded in file order with a single reassembly context, so
fragmented data packets in a capture are reassembled.

Examples:
  vdl2_parser decode capture.jsonl
  echo '10 01 21' | vdl2_parser decode --output-format json
  vdl2_parser decode --store capture.jsonl`,
	RunE: runDecode,
}

var (
	decodeStore bool
	decodeStats bool
)

func init() {
	decodeCmd.Flags().BoolVar(&decodeStore, "store", false, "store decoded packets in the configured storage")
	decodeCmd.Flags().BoolVar(&decodeStats, "stats", false, "print a summary to stderr when done")
	decodeCmd.Flags().String("direction", "", "direction for bare hex lines (air2gnd/gnd2air)")
}

// decodeSummary counts what a decode run saw.
type decodeSummary struct {
	Lines   int
	Frames  int
	Skipped int
	Bytes   uint64
}

func runDecode(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out, err := output.Open(cfg.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	var sink storage.Sink = storage.Discard{}
	if decodeStore {
		if sink, err = storage.Open(ctx, cfg.Storage); err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer sink.Close()
	}

	m := metrics.NewPrometheus()
	p := pipeline.New(newDecoder(m), reasm.NewContext(),
		pipeline.WithOutput(out),
		pipeline.WithSink(sink),
	)

	direction, _ := cmd.Flags().GetString("direction")
	var sum decodeSummary
	if len(args) == 0 {
		err = decodeStream(ctx, p, os.Stdin, direction, &sum)
	} else {
		for _, path := range args {
			if err = decodeFile(ctx, p, path, direction, &sum); err != nil {
				break
			}
		}
	}
	if err != nil {
		return err
	}

	if decodeStats {
		st := p.Stats()
		fmt.Fprintf(os.Stderr, "lines=%d frames=%d skipped=%d bytes=%s decoded=%d failed=%d stored=%d\n",
			sum.Lines, sum.Frames, sum.Skipped, humanize.Bytes(sum.Bytes), st.Processed, st.Failed, st.Stored)
		if snap, err := m.Snapshot(); err == nil {
			for name, dirs := range snap {
				for dir, n := range dirs {
					fmt.Fprintf(os.Stderr, "  %s %s: %s\n", name, dir, humanize.Comma(int64(n)))
				}
			}
		}
	}
	return nil
}

func decodeFile(ctx context.Context, p *pipeline.Pipeline, path, direction string, sum *decodeSummary) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return decodeStream(ctx, p, f, direction, sum)
}

func decodeStream(ctx context.Context, p *pipeline.Pipeline, r io.Reader, direction string, sum *decodeSummary) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		sum.Lines++
		sum.Bytes += uint64(len(scanner.Bytes()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		f, err := parseLine(line, direction)
		if err != nil {
			sum.Skipped++
			logrus.WithField("line", sum.Lines).WithError(err).Warn("Skipping line")
			continue
		}
		sum.Frames++
		if _, err := p.Process(ctx, f); err != nil {
			if errors.Is(err, pipeline.ErrBadFrame) {
				logrus.WithField("line", sum.Lines).WithError(err).Warn("Skipping frame")
				continue
			}
			return err
		}
	}
	return scanner.Err()
}

// parseLine accepts a frame object or a bare hex packet.
func parseLine(line, direction string) (*frame.Frame, error) {
	if strings.HasPrefix(line, "{") {
		return frame.Decode([]byte(line))
	}
	return &frame.Frame{
		Timestamp: frame.Timestamp{Time: time.Now()},
		Direction: direction,
		Data:      line,
	}, nil
}
