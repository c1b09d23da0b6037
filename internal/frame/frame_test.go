package frame

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/reasm"
)

func TestFlexInt64_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  FlexInt64
	}{
		{"integer", `123`, 123},
		{"string number", `"456"`, 456},
		{"empty string", `""`, 0},
		{"invalid string", `"not a number"`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FlexInt64
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("Unmarshal returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FlexInt64 = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	Convey("Decoding a flat frame", t, func() {
		f, err := Decode([]byte(`{"id":"7","timestamp":"2026-05-04T10:30:00.25Z","src":"10AB12","dst":2621441,
			"direction":"downlink","data":"10 01 61"}`))
		So(err, ShouldBeNil)

		Convey("reads the addresses in both notations", func() {
			So(f.Src, ShouldEqual, Addr(0x10AB12))
			So(f.Dst, ShouldEqual, Addr(0x280001))
			So(f.Dst.String(), ShouldEqual, "280001")
		})

		Convey("parses the RFC 3339 timestamp", func() {
			So(f.Timestamp.Time, ShouldEqual, time.Date(2026, 5, 4, 10, 30, 0, 250e6, time.UTC))
		})

		Convey("decodes the spaced hex payload", func() {
			b, err := f.Payload()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x10, 0x01, 0x61})
		})

		Convey("maps downlink to the air source flag", func() {
			So(f.Flags(), ShouldEqual, proto.SrcAir)
		})
	})

	Convey("Decoding a wrapped frame", t, func() {
		f, err := Decode([]byte(`{"source":{"name":"feeder-1"},"vdl2":{"timestamp":1777890600.5,
			"src":"280001","dst":"10ab12","direction":"gnd2air","data":"100161"}}`))
		So(err, ShouldBeNil)
		So(f.Station, ShouldEqual, "feeder-1")
		So(f.Flags(), ShouldEqual, proto.SrcGnd)
		So(f.Timestamp.Time, ShouldEqual, time.Unix(1777890600, 5e8).UTC())
	})

	Convey("Decoding invalid input", t, func() {
		Convey("fails on malformed JSON", func() {
			_, err := Decode([]byte(`{"src":`))
			So(err, ShouldNotBeNil)
		})
		Convey("fails on a bad address", func() {
			_, err := Decode([]byte(`{"src":"xyz","data":"00"}`))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPayload(t *testing.T) {
	Convey("Given frames with odd payloads", t, func() {
		Convey("an empty payload reports ErrNoPayload", func() {
			_, err := (&Frame{Data: "  "}).Payload()
			So(err, ShouldEqual, ErrNoPayload)
		})
		Convey("non-hex data fails", func() {
			_, err := (&Frame{Data: "zz"}).Payload()
			So(err, ShouldNotBeNil)
		})
	})
}

func TestEnv(t *testing.T) {
	Convey("Building the decoder environment", t, func() {
		rctx := reasm.NewContext()
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		f := &Frame{Src: 0x10AB12, Dst: 0x280001, Direction: "uplink"}

		env := f.Env(rctx, now)
		So(env.Reasm, ShouldEqual, rctx)
		So(env.RxTime, ShouldEqual, now)
		So(env.Src, ShouldEqual, uint32(0x10AB12))
		So(env.Dst, ShouldEqual, uint32(0x280001))
		So(env.Flags, ShouldEqual, proto.SrcGnd)

		Convey("the frame timestamp wins over now", func() {
			f.Timestamp = Timestamp{now.Add(-time.Hour)}
			So(f.Env(rctx, now).RxTime, ShouldEqual, now.Add(-time.Hour))
		})
	})
}
