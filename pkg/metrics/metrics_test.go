package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "evalharvest")
				So(manager.subsystem, ShouldEqual, "pipeline")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("harvest"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithConstLabels(map[string]string{"run": "r1"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the metrics carry the custom names and labels", func() {
				manager.itemsProcessed.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_harvest_items_processed_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "r1")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording skipped items", func() {
			before := testutil.ToFloat64(globalManager.itemsSkipped.WithLabelValues("not_found"))
			RecordItemSkipped("not_found")
			RecordItemSkipped("not_found")

			Convey("Then the class counter grows", func() {
				So(testutil.ToFloat64(globalManager.itemsSkipped.WithLabelValues("not_found"))-before, ShouldEqual, 2)
			})
		})

		Convey("When recording a flush", func() {
			before := testutil.ToFloat64(globalManager.flushedRows.WithLabelValues("flatfile"))
			RecordFlush("flatfile", 10, 0.02)

			Convey("Then rows and flushes are counted per backend", func() {
				So(testutil.ToFloat64(globalManager.flushedRows.WithLabelValues("flatfile"))-before, ShouldEqual, 10)
			})
		})

		Convey("When updating gauges", func() {
			UpdateBufferedRows(7)
			UpdateIndexEntries(3)
			UpdateQueueSize(5)
			UpdateQueueCapacity(10)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.bufferedRows), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.indexEntries), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
			})
		})

		Convey("When recording the remaining series", func() {
			So(func() {
				RecordItemProcessed(0.5)
				RecordFetchAttempt("list")
				RecordFetchRetry("read", 15)
				RecordRecordsExtracted(4)
				RecordMetricSkipped()
				RecordRecordStale()
				RecordItemFlagged()
				RecordFlushError("columnar")
				AddActiveWorkers(2)
				AddActiveWorkers(-2)
				RecordHTTPRequest("healthz", "200")
			}, ShouldNotPanic)
		})

		Convey("When reading the registry", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
