package metrics_test

import (
	"testing"

	"github.com/okian/keysprint/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithPrometheusRegistry(reg))
		So(m, ShouldNotBeNil)

		Convey("Then all metrics are registered and gatherable", func() {
			families, err := reg.Gather()
			So(err, ShouldBeNil)
			// Counters with no observations are not gathered; gauges are.
			names := make(map[string]bool, len(families))
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["keysprint_race_active_players"], ShouldBeTrue)
			So(names["keysprint_bus_subscribers"], ShouldBeTrue)
			So(names["keysprint_results_log_size"], ShouldBeTrue)
		})

		Convey("And a second manager on another registry does not collide", func() {
			So(func() {
				metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			}, ShouldNotPanic)
		})
	})

	Convey("Given the global helpers", t, func() {
		Convey("When recording race and bus activity", func() {
			So(func() {
				metrics.RecordRaceStarted()
				metrics.RecordRaceFinished()
				metrics.RecordRoomReset()
				metrics.RecordCountdownTick()
				metrics.RecordBotTick()
				metrics.UpdateActivePlayers(2)
				metrics.RecordIntentProcessed("join")
				metrics.RecordIntentDropped()
				metrics.RecordIntentIgnored("duplicate_bot")
				metrics.RecordBusPublished("room_update")
				metrics.RecordBusDelivery()
				metrics.RecordBusDropped()
				metrics.UpdateBusSubscribers(3)
				metrics.RecordPlayerWPM(72)
				metrics.RecordBotWPM(58)
				metrics.RecordResultAppended()
				metrics.UpdateResultLogSize(10)
				metrics.RecordHTTPRequest("stats", "GET", "200")
				metrics.RecordHTTPRequestDuration("stats", "GET", "200", 1.2)
				metrics.UpdateSystemMemoryUsage(1 << 20)
				metrics.UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})

		Convey("Then the global registry serves them", func() {
			So(metrics.GetRegistry(), ShouldNotBeNil)
			families, err := metrics.GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
