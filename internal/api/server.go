// Package api provides the HTTP API of the decoder service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"vdl2_parser/internal/config"
	"vdl2_parser/internal/frame"
	"vdl2_parser/internal/metrics"
	"vdl2_parser/internal/output"
	"vdl2_parser/internal/pipeline"
	"vdl2_parser/internal/reasm"
	"vdl2_parser/internal/x25"
)

// maxDecodeBody limits the size of a decode request.
const maxDecodeBody = 1 << 20

// Server exposes on-demand decoding, reassembly table state and metrics.
type Server struct {
	decoder  *x25.Decoder
	pipeline *pipeline.Pipeline
	metrics  *metrics.Prometheus
	archive  Archive
	port     int
	log      logrus.FieldLogger
}

// NewServer creates an API server. p and m may be nil; the endpoints that
// need them then report empty state. Frames posted to /decode go through a
// copy of dec that reports no metrics, so the counters only reflect the feed.
func NewServer(dec *x25.Decoder, p *pipeline.Pipeline, m *metrics.Prometheus, cfg config.APIConfig) *Server {
	return &Server{
		decoder:  dec.With(x25.WithMetrics(metrics.Discard{})),
		pipeline: p,
		metrics:  m,
		port:     cfg.Port,
		log:      logrus.WithField("component", "api"),
	}
}

// Run serves the API until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.WithField("addr", srv.Addr).Info("API listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/decode", s.handleDecode)
		r.Get("/reasm", s.handleReasm)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/metrics/snapshot", s.handleMetricsSnapshot)
		r.Get("/packets", s.handlePackets)
		r.Get("/packets/stats", s.handlePacketStats)
	})
	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleDecode decodes the frames in the request body. The body is a single
// frame object or an array of them; frames in one request share a fresh
// reassembly context, so a fragmented sequence sent together reassembles.
// ?format=text returns the text rendering instead of JSON.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDecodeBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	frames, err := decodeFrames(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "text" {
		writeError(w, http.StatusBadRequest, "format must be json or text")
		return
	}

	rctx := reasm.NewContext()
	now := time.Now()
	records := make([]*output.Record, 0, len(frames))
	for i, f := range frames {
		raw, err := f.Payload()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("frame %d: %v", i, err))
			return
		}
		env := f.Env(rctx, now)
		node, flags := s.decoder.Parse(raw, env)
		records = append(records, &output.Record{Frame: f, RxTime: env.RxTime, Node: node, Flags: flags})
	}

	if format == "text" {
		var buf bytes.Buffer
		tw, err := output.NewText(nopCloser{&buf}, true, true)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, rec := range records {
			if err := tw.Write(rec); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
		return
	}

	out := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		b, err := output.Marshal(rec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out = append(out, b)
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeFrames(body []byte) ([]*frame.Frame, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty request body")
	}
	if body[0] != '[' {
		f, err := frame.Decode(body)
		if err != nil {
			return nil, err
		}
		return []*frame.Frame{f}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode frames: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("no frames in request")
	}
	frames := make([]*frame.Frame, 0, len(items))
	for i, item := range items {
		f, err := frame.Decode(item)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// ReasmTableResponse is one reassembly table in the /reasm response.
type ReasmTableResponse struct {
	reasm.TableStats
	Buffered string `json:"buffered"`
}

// ReasmResponse is the /reasm response.
type ReasmResponse struct {
	Tables   []ReasmTableResponse `json:"tables"`
	Pipeline *pipeline.Stats      `json:"pipeline,omitempty"`
}

func (s *Server) handleReasm(w http.ResponseWriter, r *http.Request) {
	resp := ReasmResponse{Tables: []ReasmTableResponse{}}
	if s.pipeline != nil {
		stats := s.pipeline.Stats()
		resp.Pipeline = &stats
		if rctx := s.pipeline.Reasm(); rctx != nil {
			for _, st := range rctx.Stats() {
				resp.Tables = append(resp.Tables, ReasmTableResponse{
					TableStats: st,
					Buffered:   humanize.Bytes(uint64(st.BufferedBytes)),
				})
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) handleMetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	snap, err := s.metrics.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
