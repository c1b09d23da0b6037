package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vdl2_parser/internal/config"
)

// PostgresDB stores packet records in PostgreSQL.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg config.DBConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS x25_packets (
		id              UUID PRIMARY KEY,
		rx_time         TIMESTAMPTZ NOT NULL,
		station         TEXT,
		src             TEXT NOT NULL,
		dst             TEXT NOT NULL,
		direction       TEXT NOT NULL,
		pkt_type        TEXT,
		chan_group      SMALLINT,
		chan_num        SMALLINT,
		err             BOOLEAN NOT NULL DEFAULT FALSE,
		reasm_status    TEXT,
		next_proto      TEXT,
		flags           TEXT[] NOT NULL DEFAULT '{}',
		raw             TEXT NOT NULL,
		decoded         JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_x25_packets_rx_time ON x25_packets(rx_time);
	CREATE INDEX IF NOT EXISTS idx_x25_packets_flow ON x25_packets(src, dst);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Store inserts a packet record. Storing the same record twice is a no-op.
func (d *PostgresDB) Store(ctx context.Context, r *PacketRecord) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO x25_packets (id, rx_time, station, src, dst, direction, pkt_type, chan_group, chan_num,
			err, reasm_status, next_proto, flags, raw, decoded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.RxTime, r.Station, r.Src, r.Dst, r.Direction, r.PktType, int16(r.ChanGroup), int16(r.ChanNum),
		r.Err, r.ReasmStatus, r.NextProto, r.Flags, r.RawHex, r.DecodedJSON)
	if err != nil {
		return fmt.Errorf("insert packet: %w", err)
	}
	return nil
}

// Get returns the record with the given ID, or nil if there is none.
func (d *PostgresDB) Get(ctx context.Context, id string) (*PacketRecord, error) {
	var r PacketRecord
	var chanGroup, chanNum int16
	err := d.pool.QueryRow(ctx, `
		SELECT id, rx_time, station, src, dst, direction, pkt_type, chan_group, chan_num,
			err, reasm_status, next_proto, flags, raw, decoded::text
		FROM x25_packets WHERE id = $1
	`, id).Scan(&r.ID, &r.RxTime, &r.Station, &r.Src, &r.Dst, &r.Direction, &r.PktType, &chanGroup, &chanNum,
		&r.Err, &r.ReasmStatus, &r.NextProto, &r.Flags, &r.RawHex, &r.DecodedJSON)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get packet: %w", err)
	}
	r.ChanGroup, r.ChanNum = uint8(chanGroup), uint8(chanNum)
	return &r, nil
}

// Pool returns the underlying connection pool.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}
