package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sync"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"site": "north"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it registers metrics on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.syncRuns.WithLabelValues("data", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_sync_sync_runs_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording sync and fetch metrics", func() {
			before := testutil.ToFloat64(globalManager.syncRuns.WithLabelValues("data", "partial"))
			RecordSyncRun("data", "partial")
			RecordSyncDuration("data", 120)
			RecordListError(2)
			RecordFetch("data", "ok")
			RecordFetchAttempt("data")
			RecordFetchBytes(512)
			RecordFetchLatency(30)

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.syncRuns.WithLabelValues("data", "partial")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.listErrors), ShouldBeGreaterThanOrEqualTo, 2)
				So(testutil.ToFloat64(globalManager.fetchBytes), ShouldBeGreaterThanOrEqualTo, 512)
			})
		})

		Convey("When tracking worker activity", func() {
			UpdateWorkerActiveCount("icons", 1)
			UpdateWorkerActiveCount("icons", 1)
			UpdateWorkerActiveCount("icons", -2)
			UpdateQueueDepth("icons", 3)

			Convey("Then the gauge returns to zero", func() {
				So(testutil.ToFloat64(globalManager.workerActiveCount.WithLabelValues("icons")), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.queueDepth.WithLabelValues("icons")), ShouldEqual, 3)
			})
		})

		Convey("When recording ingest metrics", func() {
			UpdateIngestRecords(42)
			RecordIngestFile("loaded")
			RecordIngestDropped("missing_field", 0)
			RecordIngestDropped("bad_date", 3)
			RecordCacheReload(5)
			RecordCacheHit()

			Convey("Then the values are visible", func() {
				So(testutil.ToFloat64(globalManager.ingestRecords), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.ingestDropped.WithLabelValues("bad_date")), ShouldBeGreaterThanOrEqualTo, 3)
			})
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/aggregate", "GET", "200")
				RecordHTTPRequestDuration("/aggregate", "GET", "200", 3.5)
			}, ShouldNotPanic)
		})

		Convey("Then GetRegistry exposes the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
