package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"vdl2_parser/internal/config"
)

// setupTestClickHouse connects to the ClickHouse server in CLICKHOUSE_HOST.
// Returns nil if it is not set or unreachable.
func setupTestClickHouse(t *testing.T) *ClickHouseDB {
	t.Helper()

	host := os.Getenv("CLICKHOUSE_HOST")
	if host == "" {
		return nil
	}
	cfg := config.DBConfig{
		Host:     host,
		Port:     9000,
		User:     envOr("CLICKHOUSE_USER", "default"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		Database: envOr("CLICKHOUSE_DB", "default"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := OpenClickHouse(ctx, cfg)
	if err != nil {
		return nil
	}
	if err := ch.CreateSchema(ctx); err != nil {
		_ = ch.Close()
		return nil
	}
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestClickHouseBatching(t *testing.T) {
	ch := setupTestClickHouse(t)
	if ch == nil {
		t.Skip("No ClickHouse connection available")
	}
	ctx := context.Background()
	ch.batchSize = 2

	first, second := testRecord(t), testRecord(t)
	if err := ch.Store(ctx, first); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(ch.pending) != 1 {
		t.Fatalf("pending = %d after one record, want 1", len(ch.pending))
	}
	if err := ch.Store(ctx, second); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(ch.pending) != 0 {
		t.Fatalf("pending = %d after a full batch, want 0", len(ch.pending))
	}

	var n uint64
	row := ch.Conn().QueryRow(ctx, "SELECT count() FROM x25_packets WHERE id IN (?, ?)", first.ID, second.ID)
	if err := row.Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestClickHouseFlushEmpty(t *testing.T) {
	var ch ClickHouseDB
	if err := ch.Flush(context.Background()); err != nil {
		t.Errorf("Flush with nothing pending: %v", err)
	}
}
