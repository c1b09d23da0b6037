package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// sqliteTimeLayout stores rx_time at a fixed width so text comparison and
// ordering follow time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteDB is a local archive of packet records.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS packets (
		id TEXT PRIMARY KEY,
		rx_time TEXT NOT NULL,
		station TEXT,
		src TEXT NOT NULL,
		dst TEXT NOT NULL,
		direction TEXT NOT NULL,
		pkt_type TEXT,
		chan_group INTEGER,
		chan_num INTEGER,
		err INTEGER NOT NULL DEFAULT 0,
		reasm_status TEXT,
		next_proto TEXT,
		flags TEXT,
		raw TEXT NOT NULL,
		decoded TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_packets_rx_time ON packets(rx_time);
	CREATE INDEX IF NOT EXISTS idx_packets_pkt_type ON packets(pkt_type);
	CREATE INDEX IF NOT EXISTS idx_packets_flow ON packets(src, dst);
	`)
	return err
}

// Store inserts a packet record.
func (d *SQLiteDB) Store(ctx context.Context, r *PacketRecord) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO packets (id, rx_time, station, src, dst, direction, pkt_type, chan_group, chan_num,
			err, reasm_status, next_proto, flags, raw, decoded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID.String(), r.RxTime.UTC().Format(sqliteTimeLayout), r.Station, r.Src, r.Dst, r.Direction,
		r.PktType, r.ChanGroup, r.ChanNum, r.Err, r.ReasmStatus, r.NextProto,
		strings.Join(r.Flags, ","), r.RawHex, r.DecodedJSON)
	if err != nil {
		return fmt.Errorf("insert packet: %w", err)
	}
	return nil
}

// QueryParams contains filtering options for querying packets.
type QueryParams struct {
	PktType     string    // Exact match on the packet type name.
	Src         string    // Exact match on the source address.
	Dst         string    // Exact match on the destination address.
	ReasmStatus string    // Exact match on the reassembly status.
	ErrOnly     bool      // Only unparseable packets.
	Since       time.Time // Only packets received at or after Since.
	Limit       int       // Max results (default 100).
	Offset      int       // Pagination offset.
}

// Query retrieves packets matching p, newest first.
func (d *SQLiteDB) Query(ctx context.Context, p QueryParams) ([]PacketRecord, error) {
	var conditions []string
	var args []interface{}

	if p.PktType != "" {
		conditions = append(conditions, "pkt_type = ?")
		args = append(args, p.PktType)
	}
	if p.Src != "" {
		conditions = append(conditions, "src = ?")
		args = append(args, p.Src)
	}
	if p.Dst != "" {
		conditions = append(conditions, "dst = ?")
		args = append(args, p.Dst)
	}
	if p.ReasmStatus != "" {
		conditions = append(conditions, "reasm_status = ?")
		args = append(args, p.ReasmStatus)
	}
	if p.ErrOnly {
		conditions = append(conditions, "err = 1")
	}
	if !p.Since.IsZero() {
		conditions = append(conditions, "rx_time >= ?")
		args = append(args, p.Since.UTC().Format(sqliteTimeLayout))
	}

	query := `SELECT id, rx_time, station, src, dst, direction, pkt_type, chan_group, chan_num,
		err, reasm_status, next_proto, flags, raw, decoded FROM packets`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY rx_time DESC, id"

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, p.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query packets: %w", err)
	}
	defer rows.Close()

	var records []PacketRecord
	for rows.Next() {
		var r PacketRecord
		var id, rxTime, flags string
		var station, pktType, reasm, next sql.NullString
		if err := rows.Scan(&id, &rxTime, &station, &r.Src, &r.Dst, &r.Direction, &pktType,
			&r.ChanGroup, &r.ChanNum, &r.Err, &reasm, &next, &flags, &r.RawHex, &r.DecodedJSON); err != nil {
			return nil, fmt.Errorf("scan packet: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("packet id %q: %w", id, err)
		}
		if r.RxTime, err = time.Parse(sqliteTimeLayout, rxTime); err != nil {
			return nil, fmt.Errorf("packet rx_time %q: %w", rxTime, err)
		}
		r.Station, r.PktType, r.ReasmStatus, r.NextProto = station.String, pktType.String, reasm.String, next.String
		r.Flags = []string{}
		if flags != "" {
			r.Flags = strings.Split(flags, ",")
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountByType returns the number of stored packets per packet type.
// Unparseable packets are counted under "".
func (d *SQLiteDB) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT COALESCE(pkt_type, ''), COUNT(*) FROM packets GROUP BY pkt_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return nil, err
		}
		counts[t] = c
	}
	return counts, rows.Err()
}
