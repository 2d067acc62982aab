package bus_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/internal/adapters/bus"
	. "github.com/smartystreets/goconvey/convey"
)

const waitTimeout = 2 * time.Second

func recv(c <-chan any) (any, bool) {
	select {
	case v := <-c:
		return v, true
	case <-time.After(waitTimeout):
		return nil, false
	}
}

func TestInMemoryBus(t *testing.T) {
	Convey("Given a bus with no latency", t, func() {
		b := bus.NewInMemoryBus(bus.WithLatency(0))
		defer b.Close()
		ctx := context.Background()

		Convey("When two subscribers listen on the same event", func() {
			got1 := make(chan any, 4)
			got2 := make(chan any, 4)
			b.Subscribe("room_update", func(_ context.Context, p any) { got1 <- p })
			b.Subscribe("room_update", func(_ context.Context, p any) { got2 <- p })

			payload := &struct{ Countdown int }{Countdown: 3}
			So(b.Publish(ctx, "room_update", payload), ShouldBeTrue)

			Convey("Then both receive the same payload reference", func() {
				v1, ok := recv(got1)
				So(ok, ShouldBeTrue)
				v2, ok := recv(got2)
				So(ok, ShouldBeTrue)
				So(v1, ShouldEqual, payload)
				So(v2, ShouldEqual, payload)
			})
		})

		Convey("When events are published in sequence", func() {
			got := make(chan any, 8)
			b.Subscribe("race_start", func(_ context.Context, p any) { got <- p })

			So(b.Publish(ctx, "race_start", 1), ShouldBeTrue)
			So(b.Publish(ctx, "race_start", 2), ShouldBeTrue)
			So(b.Publish(ctx, "race_start", 3), ShouldBeTrue)

			Convey("Then delivery preserves publish order", func() {
				for want := 1; want <= 3; want++ {
					v, ok := recv(got)
					So(ok, ShouldBeTrue)
					So(v, ShouldEqual, want)
				}
			})
		})

		Convey("When a subscriber unsubscribes", func() {
			got := make(chan any, 4)
			id := b.Subscribe("room_update", func(_ context.Context, p any) { got <- p })
			other := make(chan any, 4)
			b.Subscribe("room_update", func(_ context.Context, p any) { other <- p })

			So(b.Unsubscribe("room_update", id), ShouldBeTrue)
			So(b.Publish(ctx, "room_update", "after"), ShouldBeTrue)

			Convey("Then only the remaining subscriber is delivered to", func() {
				v, ok := recv(other)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "after")
				select {
				case <-got:
					So("unexpected delivery", ShouldBeEmpty)
				case <-time.After(50 * time.Millisecond):
				}
			})

			Convey("And unsubscribing twice reports false", func() {
				So(b.Unsubscribe("room_update", id), ShouldBeFalse)
			})
		})

		Convey("When publishing to an event with no subscribers", func() {
			So(b.Publish(ctx, "nobody_home", "x"), ShouldBeTrue)
		})

		Convey("When the bus is closed", func() {
			So(b.Close(), ShouldBeNil)
			So(b.IsClosed(), ShouldBeTrue)

			Convey("Then publish is rejected and close is idempotent", func() {
				So(b.Publish(ctx, "room_update", "late"), ShouldBeFalse)
				So(b.Close(), ShouldBeNil)
			})
		})
	})

	Convey("Given a bus with simulated latency on a fake clock", t, func() {
		clock := clockwork.NewFakeClock()
		b := bus.NewInMemoryBus(
			bus.WithLatency(50*time.Millisecond),
			bus.WithClock(clock),
		)
		defer b.Close()

		got := make(chan any, 4)
		b.Subscribe("room_update", func(_ context.Context, p any) { got <- p })

		Convey("When a publish is accepted", func() {
			So(b.Publish(context.Background(), "room_update", "delayed"), ShouldBeTrue)

			Convey("Then delivery waits for the latency to elapse", func() {
				// The dispatcher must reach its sleep before we advance.
				ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
				defer cancel()
				So(clock.BlockUntilContext(ctx, 1), ShouldBeNil)

				select {
				case <-got:
					So("delivered before latency elapsed", ShouldBeEmpty)
				default:
				}

				clock.Advance(50 * time.Millisecond)
				v, ok := recv(got)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "delayed")
			})
		})
	})

	Convey("Given a bus with a tiny buffer", t, func() {
		clock := clockwork.NewFakeClock()
		b := bus.NewInMemoryBus(
			bus.WithLatency(time.Hour),
			bus.WithClock(clock),
			bus.WithBufferSize(1),
		)
		defer b.Close()
		ctx := context.Background()

		Convey("When the buffer is saturated", func() {
			// First publish is pulled by the dispatcher which then sleeps;
			// the second fills the buffer slot.
			So(b.Publish(ctx, "e", 1), ShouldBeTrue)
			waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
			defer cancel()
			So(clock.BlockUntilContext(waitCtx, 1), ShouldBeNil)
			So(b.Publish(ctx, "e", 2), ShouldBeTrue)

			Convey("Then further publishes are dropped, not blocked", func() {
				So(b.Publish(ctx, "e", 3), ShouldBeFalse)
			})
		})
	})
}
