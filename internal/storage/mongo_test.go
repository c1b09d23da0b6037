package storage

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/bson"

	"vdl2_parser/internal/config"
)

func TestMongoDocument(t *testing.T) {
	Convey("Given a decoded Receive Ready record", t, func() {
		rec := testRecord(t)

		Convey("the document is keyed by the record ID", func() {
			doc, err := mongoDocument(rec)
			So(err, ShouldBeNil)
			m := doc.Map()
			So(m["_id"], ShouldEqual, rec.ID.String())
			So(m["pkt_type"], ShouldEqual, "Receive Ready")
			So(m["chan_num"], ShouldEqual, int32(1))
			So(m["flags"], ShouldResemble, []string{"src_air", "x25_control"})

			Convey("and embeds the decoded tree as a subdocument", func() {
				decoded, ok := m["decoded"].(bson.M)
				So(ok, ShouldBeTrue)
				So(decoded, ShouldContainKey, "x25")
			})
		})

		Convey("a record with broken decoded JSON is rejected", func() {
			rec.DecodedJSON = "{"
			_, err := mongoDocument(rec)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := OpenMongo(ctx, config.MongoConfig{URI: uri, Database: "vdl2_test", Collection: "packets"})
	if err != nil {
		t.Fatalf("OpenMongo: %v", err)
	}
	defer db.Close()

	rec := testRecord(t)
	if err := db.Store(ctx, rec); err != nil {
		t.Fatalf("Store: %v", err)
	}
	n, err := db.Count(ctx, bson.D{{Key: "_id", Value: rec.ID.String()}})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
