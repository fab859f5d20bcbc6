package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/dextap/internal/domain/jsonvalue"
	"github.com/okian/dextap/internal/domain/latency"
	model "github.com/okian/dextap/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEvent(t *testing.T) {
	convey.Convey("Given an Event", t, func() {
		payload, err := jsonvalue.Parse([]byte(`{"signature":"5sig","buyer":"Buy3r"}`), 0)
		convey.So(err, convey.ShouldBeNil)
		lat, _ := latency.Estimate(1_000_075_000, 1_000_000_000, true)

		event := model.Event{
			Seq:      7,
			Tag:      "PumpFunTrade",
			Category: "PumpFunTrade",
			Payload:  payload,
			Latency:  &lat,
			RecvUs:   1_000_075_000,
		}

		convey.Convey("When reading derived fields", func() {
			convey.So(event.Signature(), convey.ShouldEqual, "5sig")
			convey.So(event.Label(), convey.ShouldEqual, "PumpFun Trade")
		})

		convey.Convey("When marshalling", func() {
			out, err := json.Marshal(event)

			convey.Convey("Then the payload is embedded verbatim after the envelope", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(out), convey.ShouldEqual,
					`{"seq":7,"tag":"PumpFunTrade","category":"PumpFunTrade","recv_us":1000075000,`+
						`"latency":{"raw_us":75000,"display_us":75000,"tier":"medium","clock_skew_suspected":false},`+
						`"payload":{"signature":"5sig","buyer":"Buy3r"}}`)
			})
		})

		convey.Convey("When the event has no latency and no signature", func() {
			bare := model.Event{Tag: "unknown", Category: "unknown", Payload: jsonvalue.ArrayValue()}

			convey.So(bare.Signature(), convey.ShouldEqual, "")
			convey.So(string(bare.AppendJSON(nil)), convey.ShouldEqual,
				`{"seq":0,"tag":"unknown","category":"unknown","recv_us":0,"payload":[]}`)
		})

		convey.Convey("When the signature was left undecoded", func() {
			raw, _ := jsonvalue.Parse([]byte(`{"signature":[1,2,3]}`), 0)
			convey.So(model.Event{Payload: raw}.Signature(), convey.ShouldEqual, "")
		})
	})
}
