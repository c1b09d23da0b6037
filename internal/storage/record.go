// Package storage provides persistent storage for decoded X.25 packets.
package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vdl2_parser/internal/config"
	"vdl2_parser/internal/frame"
	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/x25"
)

// PacketRecord is one decoded X.25 packet as stored by the sinks.
type PacketRecord struct {
	ID          uuid.UUID `json:"id"`
	RxTime      time.Time `json:"rx_time"`
	Station     string    `json:"station,omitempty"`
	Src         string    `json:"src"`
	Dst         string    `json:"dst"`
	Direction   string    `json:"direction"`
	PktType     string    `json:"pkt_type"`
	ChanGroup   uint8     `json:"chan_group"`
	ChanNum     uint8     `json:"chan_num"`
	Err         bool      `json:"err"`
	ReasmStatus string    `json:"reasm_status,omitempty"`
	NextProto   string    `json:"next_proto,omitempty"`
	Flags       []string  `json:"flags"`
	RawHex      string    `json:"raw"`
	DecodedJSON string    `json:"decoded"`
}

// NewRecord builds a record from a decoded node chain. raw is the X.25
// packet the chain was decoded from.
func NewRecord(f *frame.Frame, rxTime time.Time, node *proto.Node, flags proto.MsgFlags, raw []byte) (*PacketRecord, error) {
	decoded, err := json.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("marshal decoded packet: %w", err)
	}
	rec := &PacketRecord{
		ID:          uuid.New(),
		RxTime:      rxTime.UTC(),
		Direction:   flags.Direction().String(),
		Flags:       flags.Names(),
		RawHex:      hex.EncodeToString(raw),
		DecodedJSON: string(decoded),
	}
	if f != nil {
		rec.Station = f.Station
		rec.Src = f.Src.String()
		rec.Dst = f.Dst.String()
	}
	top := node
	if x := node.Find("x25"); x != nil {
		top = x
	}
	if pkt, ok := top.Data.(*x25.Packet); ok {
		rec.Err = pkt.Err
		if !pkt.Err {
			rec.PktType = pkt.Name()
			rec.ChanGroup = pkt.Header.ChanGroup
			rec.ChanNum = pkt.Header.ChanNum
			if pkt.Type == x25.TypeData {
				rec.ReasmStatus = pkt.ReasmStatus.String()
			}
		}
	}
	if top.Next != nil {
		rec.NextProto = top.Next.Key
	}
	return rec, nil
}

// Sink stores packet records.
type Sink interface {
	Store(ctx context.Context, rec *PacketRecord) error
	Close() error
}

// Discard is a Sink that stores nothing.
type Discard struct{}

func (Discard) Store(context.Context, *PacketRecord) error { return nil }
func (Discard) Close() error                               { return nil }

// Open opens the sink selected by cfg.Driver and makes sure its schema exists.
func Open(ctx context.Context, cfg config.StorageConfig) (Sink, error) {
	switch cfg.Driver {
	case "", "none":
		return Discard{}, nil
	case "sqlite":
		return OpenSQLite(cfg.SQLite.Path)
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.CreateSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return pg, nil
	case "clickhouse":
		ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		if err := ch.CreateSchema(ctx); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return ch, nil
	case "mongo":
		m, err := OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
