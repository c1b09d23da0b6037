package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"vdl2_parser/internal/config"
)

// DefaultBatchSize is the number of records buffered before a ClickHouse
// batch is sent.
const DefaultBatchSize = 500

// ClickHouseDB stores packet records in ClickHouse. Records are buffered
// and sent in batches; Flush and Close send whatever is pending.
type ClickHouseDB struct {
	conn      driver.Conn
	batchSize int

	mu      sync.Mutex
	pending []*PacketRecord
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg config.DBConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn, batchSize: DefaultBatchSize}, nil
}

// CreateSchema creates the ClickHouse table.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	err := d.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS x25_packets (
			id              UUID,
			rx_time         DateTime64(3),
			station         LowCardinality(String),
			src             LowCardinality(String),
			dst             LowCardinality(String),
			direction       LowCardinality(String),
			pkt_type        LowCardinality(String),
			chan_group      UInt8,
			chan_num        UInt8,
			err             Bool,
			reasm_status    LowCardinality(String),
			next_proto      LowCardinality(String),
			flags           Array(LowCardinality(String)),
			raw             String,
			decoded         String,
			created_at      DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(rx_time)
		ORDER BY (pkt_type, src, dst, rx_time)
		SETTINGS index_granularity = 8192`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Store buffers the record, sending the batch once it is full.
func (d *ClickHouseDB) Store(ctx context.Context, r *PacketRecord) error {
	d.mu.Lock()
	d.pending = append(d.pending, r)
	if len(d.pending) < d.batchSize {
		d.mu.Unlock()
		return nil
	}
	batch := d.pending
	d.pending = nil
	d.mu.Unlock()
	return d.InsertBatch(ctx, batch)
}

// Flush sends any buffered records.
func (d *ClickHouseDB) Flush(ctx context.Context) error {
	d.mu.Lock()
	batch := d.pending
	d.pending = nil
	d.mu.Unlock()
	return d.InsertBatch(ctx, batch)
}

// InsertBatch stores multiple records in one ClickHouse batch.
func (d *ClickHouseDB) InsertBatch(ctx context.Context, records []*PacketRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO x25_packets (id, rx_time, station, src, dst, direction, pkt_type, chan_group, chan_num,
			err, reasm_status, next_proto, flags, raw, decoded)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(r.ID, r.RxTime, r.Station, r.Src, r.Dst, r.Direction, r.PktType, r.ChanGroup, r.ChanNum,
			r.Err, r.ReasmStatus, r.NextProto, r.Flags, r.RawHex, r.DecodedJSON)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Close flushes pending records and closes the connection.
func (d *ClickHouseDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	flushErr := d.Flush(ctx)
	if err := d.conn.Close(); err != nil {
		return err
	}
	return flushErr
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}
