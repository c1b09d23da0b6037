package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"vdl2_parser/internal/config"
)

// MongoDB stores packet records as documents, with the decoded tree kept
// as a nested document so it can be queried field by field.
type MongoDB struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to MongoDB and ensures the collection indexes exist.
func OpenMongo(ctx context.Context, cfg config.MongoConfig) (*MongoDB, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "rx_time", Value: 1}}},
		{Keys: bson.D{{Key: "src", Value: 1}, {Key: "dst", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return &MongoDB{client: client, coll: coll}, nil
}

// Store inserts a packet record.
func (d *MongoDB) Store(ctx context.Context, r *PacketRecord) error {
	doc, err := mongoDocument(r)
	if err != nil {
		return err
	}
	if _, err := d.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert packet: %w", err)
	}
	return nil
}

// Count returns the number of documents matching filter.
func (d *MongoDB) Count(ctx context.Context, filter bson.D) (int64, error) {
	return d.coll.CountDocuments(ctx, filter)
}

// Close disconnects the client.
func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func mongoDocument(r *PacketRecord) (bson.D, error) {
	var decoded bson.M
	if err := json.Unmarshal([]byte(r.DecodedJSON), &decoded); err != nil {
		return nil, fmt.Errorf("decoded packet: %w", err)
	}
	return bson.D{
		{Key: "_id", Value: r.ID.String()},
		{Key: "rx_time", Value: r.RxTime},
		{Key: "station", Value: r.Station},
		{Key: "src", Value: r.Src},
		{Key: "dst", Value: r.Dst},
		{Key: "direction", Value: r.Direction},
		{Key: "pkt_type", Value: r.PktType},
		{Key: "chan_group", Value: int32(r.ChanGroup)},
		{Key: "chan_num", Value: int32(r.ChanNum)},
		{Key: "err", Value: r.Err},
		{Key: "reasm_status", Value: r.ReasmStatus},
		{Key: "next_proto", Value: r.NextProto},
		{Key: "flags", Value: r.Flags},
		{Key: "raw", Value: r.RawHex},
		{Key: "decoded", Value: decoded},
	}, nil
}
