package events_test

import (
	"testing"

	"github.com/okian/nutrimon/internal/events"
	"github.com/smartystreets/goconvey/convey"
)

func TestBus(t *testing.T) {
	convey.Convey("Given a bus with subscribers", t, func() {
		bus := events.New()
		var synced []events.DataSynced
		var gens []uint64
		convey.So(bus.Subscribe(events.TopicDataSynced, func(ev events.DataSynced) { synced = append(synced, ev) }), convey.ShouldBeNil)
		convey.So(bus.Subscribe(events.TopicDatasetInvalidated, func(g uint64) { gens = append(gens, g) }), convey.ShouldBeNil)

		convey.Convey("When events are published", func() {
			bus.PublishInvalidated(3)
			bus.PublishDataSynced(events.DataSynced{RunID: "r1", OK: true, Files: 2})

			convey.Convey("Then handlers ran before Publish returned", func() {
				convey.So(gens, convey.ShouldResemble, []uint64{3})
				convey.So(synced, convey.ShouldHaveLength, 1)
				convey.So(synced[0].RunID, convey.ShouldEqual, "r1")
			})
		})

		convey.Convey("When a topic has no handlers", func() {
			convey.So(bus.HasSubscribers(events.TopicIconsSynced), convey.ShouldBeFalse)

			convey.Convey("Then publishing is a no-op", func() {
				convey.So(func() { bus.PublishIconsSynced(events.IconsSynced{OK: true}) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When a bus is nil", func() {
			var nilBus *events.Bus

			convey.Convey("Then publishing is a no-op", func() {
				convey.So(func() { nilBus.PublishInvalidated(1) }, convey.ShouldNotPanic)
			})
		})
	})
}
