package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vdl2_parser/internal/storage"
)

// Archive is a queryable packet store. *storage.SQLiteDB satisfies it.
type Archive interface {
	Query(ctx context.Context, p storage.QueryParams) ([]storage.PacketRecord, error)
	CountByType(ctx context.Context) (map[string]int, error)
}

// WithArchive enables the /packets endpoints backed by a.
func (s *Server) WithArchive(a Archive) *Server {
	s.archive = a
	return s
}

// PacketResponse is a stored packet with its decoded tree inlined.
type PacketResponse struct {
	storage.PacketRecord
	Decoded json.RawMessage `json:"decoded"`
}

func (s *Server) handlePackets(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "no packet archive configured")
		return
	}

	// Parse query parameters.
	q := r.URL.Query()
	params := storage.QueryParams{
		PktType:     q.Get("type"),
		Src:         strings.ToUpper(q.Get("src")),
		Dst:         strings.ToUpper(q.Get("dst")),
		ReasmStatus: q.Get("reasm"),
		ErrOnly:     q.Get("err") == "true",
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		params.Since = t
	}

	// Pagination.
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		params.Limit = min(limit, 1000)
	} else {
		params.Limit = 50
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		params.Offset = offset
	}

	records, err := s.archive.Query(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := make([]PacketResponse, 0, len(records))
	for _, rec := range records {
		result = append(result, PacketResponse{PacketRecord: rec, Decoded: json.RawMessage(rec.DecodedJSON)})
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePacketStats(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "no packet archive configured")
		return
	}
	counts, err := s.archive.CountByType(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":   total,
		"by_type": counts,
	})
}
