package race_test

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/internal/domain/race"
	"github.com/okian/keysprint/internal/domain/words"
	. "github.com/smartystreets/goconvey/convey"
)

const waitTimeout = 2 * time.Second

type published struct {
	event   string
	payload any
}

// capturePub delivers broadcasts synchronously to the test, which makes
// every read a happens-before barrier against the actor loop.
type capturePub struct {
	ch chan published
}

func newCapturePub() *capturePub {
	return &capturePub{ch: make(chan published, 256)}
}

func (p *capturePub) Publish(_ context.Context, event string, payload any) bool {
	p.ch <- published{event: event, payload: payload}
	return true
}

func (p *capturePub) next(t *testing.T) published {
	t.Helper()
	select {
	case ev := <-p.ch:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for broadcast")
		return published{}
	}
}

func (p *capturePub) nextSnapshot(t *testing.T) race.Snapshot {
	t.Helper()
	ev := p.next(t)
	if ev.event != race.EventRoomUpdate {
		t.Fatalf("expected %s, got %s", race.EventRoomUpdate, ev.event)
	}
	return ev.payload.(race.Snapshot)
}

func (p *capturePub) expectQuiet(d time.Duration) bool {
	select {
	case <-p.ch:
		return false
	case <-time.After(d):
		return true
	}
}

type fixture struct {
	clock *clockwork.FakeClock
	pub   *capturePub
	coord *race.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	pub := newCapturePub()
	coord := race.New(
		race.WithPublisher(pub),
		race.WithClock(clock),
		race.WithTextSource(words.NewGenerator(words.WithRand(rand.New(rand.NewSource(11))))),
		race.WithRand(rand.New(rand.NewSource(42))),
	)
	if err := coord.Start(context.Background()); err != nil {
		t.Fatalf("start coordinator: %v", err)
	}
	t.Cleanup(coord.Stop)
	return &fixture{clock: clock, pub: pub, coord: coord}
}

// sync waits until every previously submitted intent and fired timer has
// been fully handled by the actor loop.
func (f *fixture) sync(t *testing.T) race.Snapshot {
	t.Helper()
	snap, err := f.coord.State(context.Background())
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return snap
}

// raceToRacing drives a fresh fixture through join, bot admission and
// countdown until the room is racing. It returns the broadcasts seen from
// countdown entry onward.
func (f *fixture) raceToRacing(t *testing.T, username string) {
	t.Helper()
	ctx := context.Background()

	f.coord.Join(ctx, username)
	f.pub.nextSnapshot(t)
	f.sync(t)

	f.clock.Advance(1500 * time.Millisecond) // bot joins
	f.pub.nextSnapshot(t)
	f.sync(t)

	f.clock.Advance(time.Second) // countdown entered
	f.pub.nextSnapshot(t)
	f.sync(t)

	for i := 0; i < 2; i++ { // countdown 2, 1
		f.clock.Advance(time.Second)
		f.pub.nextSnapshot(t)
		f.sync(t)
	}

	f.clock.Advance(time.Second) // countdown reaches zero
	start := f.pub.next(t)
	if start.event != race.EventRaceStart {
		t.Fatalf("expected %s, got %s", race.EventRaceStart, start.event)
	}
	f.pub.nextSnapshot(t)
	f.sync(t)
}

func TestCoordinatorLifecycle(t *testing.T) {
	Convey("Given a started coordinator on a fake clock", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("When a human joins", func() {
			f.coord.Join(ctx, "alice")
			snap := f.pub.nextSnapshot(t)

			Convey("Then the room broadcasts waiting with one player", func() {
				So(snap.Status, ShouldEqual, race.StatusWaiting)
				So(snap.Players, ShouldHaveLength, 1)
				So(snap.Players[0].ID, ShouldEqual, "alice")
				So(snap.Players[0].IsBot, ShouldBeFalse)
				So(snap.Countdown, ShouldBeNil)
				So(snap.StartTime, ShouldBeNil)
				So(strings.Count(snap.Text, " "), ShouldEqual, 29)
			})

			Convey("And after the bot join delay the bot is admitted", func() {
				f.sync(t)
				f.clock.Advance(1500 * time.Millisecond)
				snap := f.pub.nextSnapshot(t)

				So(snap.Players, ShouldHaveLength, 2)
				So(snap.Players[1].IsBot, ShouldBeTrue)
				So(snap.Status, ShouldEqual, race.StatusWaiting)

				Convey("And the countdown begins at 3 one second later", func() {
					f.sync(t)
					f.clock.Advance(time.Second)
					snap := f.pub.nextSnapshot(t)

					So(snap.Status, ShouldEqual, race.StatusCountdown)
					So(snap.Countdown, ShouldNotBeNil)
					So(*snap.Countdown, ShouldEqual, 3)

					Convey("And it ticks down to racing with a race-start broadcast", func() {
						f.sync(t)
						f.clock.Advance(time.Second)
						snap := f.pub.nextSnapshot(t)
						So(*snap.Countdown, ShouldEqual, 2)

						f.sync(t)
						f.clock.Advance(time.Second)
						snap = f.pub.nextSnapshot(t)
						So(*snap.Countdown, ShouldEqual, 1)

						f.sync(t)
						f.clock.Advance(time.Second)
						ev := f.pub.next(t)
						So(ev.event, ShouldEqual, race.EventRaceStart)
						startPayload := ev.payload.(race.RaceStart)

						snap = f.pub.nextSnapshot(t)
						So(snap.Status, ShouldEqual, race.StatusRacing)
						So(snap.Countdown, ShouldBeNil)
						So(snap.StartTime, ShouldNotBeNil)
						So(snap.StartTime.Equal(startPayload.StartTime), ShouldBeTrue)
					})
				})
			})
		})

		Convey("When the same human joins twice", func() {
			f.coord.Join(ctx, "alice")
			f.pub.nextSnapshot(t)
			f.coord.Join(ctx, "alice")
			snap := f.pub.nextSnapshot(t)

			Convey("Then the room still has a single entry for that identity", func() {
				So(snap.Players, ShouldHaveLength, 1)
			})

			Convey("And only one bot is ever admitted", func() {
				f.sync(t)
				f.clock.Advance(1500 * time.Millisecond)
				snap := f.pub.nextSnapshot(t)
				So(snap.Players, ShouldHaveLength, 2)

				bots := 0
				for _, p := range snap.Players {
					if p.IsBot {
						bots++
					}
				}
				So(bots, ShouldEqual, 1)
			})
		})

		Convey("When a join intent has an empty username", func() {
			f.coord.Join(ctx, "")

			Convey("Then nothing is admitted or broadcast", func() {
				snap := f.sync(t)
				So(snap.Players, ShouldBeEmpty)
				So(f.pub.expectQuiet(50*time.Millisecond), ShouldBeTrue)
			})
		})
	})
}

func TestCoordinatorRacing(t *testing.T) {
	Convey("Given a room that has reached the racing phase", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		f.raceToRacing(t, "alice")

		Convey("When the bot ticks", func() {
			f.clock.Advance(time.Second)
			first := f.pub.nextSnapshot(t)
			f.sync(t)
			f.clock.Advance(time.Second)
			second := f.pub.nextSnapshot(t)

			Convey("Then bot progress advances monotonically within bounds", func() {
				var b1, b2 race.Player
				for _, p := range first.Players {
					if p.IsBot {
						b1 = p
					}
				}
				for _, p := range second.Players {
					if p.IsBot {
						b2 = p
					}
				}
				So(b1.Progress, ShouldBeGreaterThan, 0)
				So(b2.Progress, ShouldBeGreaterThan, b1.Progress)
				So(b2.Progress, ShouldBeLessThanOrEqualTo, 100)
				So(b1.WPM, ShouldBeBetweenOrEqual, 55, 65)
				So(b2.WPM, ShouldBeBetweenOrEqual, 55, 65)
			})
		})

		Convey("When the human reports progress", func() {
			f.coord.ReportProgress(ctx, "alice", 72, 40)
			snap := f.pub.nextSnapshot(t)

			Convey("Then the last reported values are stored", func() {
				So(snap.Players[0].Progress, ShouldEqual, 40)
				So(snap.Players[0].WPM, ShouldEqual, 72)
			})

			Convey("And a lower later report never moves progress backwards", func() {
				f.coord.ReportProgress(ctx, "alice", 60, 25)
				snap := f.pub.nextSnapshot(t)
				So(snap.Players[0].Progress, ShouldEqual, 40)
				So(snap.Players[0].WPM, ShouldEqual, 60)
			})

			Convey("And a report above 100 is clamped", func() {
				f.coord.ReportProgress(ctx, "alice", 90, 250)
				snap := f.pub.nextSnapshot(t)
				So(snap.Players[0].Progress, ShouldEqual, 100)
				So(snap.Status, ShouldEqual, race.StatusFinished)
			})
		})

		Convey("When a report references an unknown player", func() {
			f.coord.ReportProgress(ctx, "mallory", 200, 99)

			Convey("Then it is dropped without mutation or broadcast", func() {
				snap := f.sync(t)
				So(snap.Players, ShouldHaveLength, 2)
				for _, p := range snap.Players {
					So(p.Progress, ShouldBeLessThan, 99)
				}
				So(f.pub.expectQuiet(50*time.Millisecond), ShouldBeTrue)
			})
		})

		Convey("When the human finishes the text", func() {
			f.coord.ReportProgress(ctx, "alice", 85, 100)
			snap := f.pub.nextSnapshot(t)

			Convey("Then the room is finished immediately", func() {
				So(snap.Status, ShouldEqual, race.StatusFinished)
			})

			Convey("And the bot ticker is cancelled", func() {
				f.sync(t)
				f.clock.Advance(10 * time.Second)
				So(f.pub.expectQuiet(100*time.Millisecond), ShouldBeTrue)
			})

			Convey("And later win evaluations are no-ops", func() {
				f.coord.ReportProgress(ctx, "alice", 85, 100)
				again := f.pub.nextSnapshot(t)
				So(again.Status, ShouldEqual, race.StatusFinished)
			})
		})

		Convey("Then progress never decreases across consecutive broadcasts", func() {
			last := map[string]float64{}
			for i := 0; i < 5; i++ {
				f.coord.ReportProgress(ctx, "alice", 70, float64(10*i))
				f.pub.nextSnapshot(t)
				f.sync(t)
				f.clock.Advance(time.Second)
				snap := f.pub.nextSnapshot(t)
				f.sync(t)
				for _, p := range snap.Players {
					So(p.Progress, ShouldBeGreaterThanOrEqualTo, last[p.ID])
					last[p.ID] = p.Progress
				}
			}
		})
	})
}

func TestCoordinatorResetAndLeave(t *testing.T) {
	Convey("Given a finished race", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		f.raceToRacing(t, "alice")

		snapBefore := f.sync(t)
		f.coord.ReportProgress(ctx, "alice", 85, 100)
		f.pub.nextSnapshot(t)
		f.sync(t)

		Convey("When a reset is requested", func() {
			f.coord.RequestReset(ctx)
			snap := f.pub.nextSnapshot(t)

			Convey("Then scores are cleared and fresh text is generated", func() {
				So(snap.Status, ShouldEqual, race.StatusWaiting)
				So(snap.RoomID, ShouldEqual, snapBefore.RoomID)
				So(snap.Text, ShouldNotEqual, snapBefore.Text)
				So(snap.StartTime, ShouldBeNil)
				for _, p := range snap.Players {
					So(p.Progress, ShouldEqual, 0)
					So(p.WPM, ShouldEqual, 0)
				}
			})

			Convey("And the countdown re-enters after the restart delay", func() {
				f.sync(t)
				f.clock.Advance(time.Second)
				snap := f.pub.nextSnapshot(t)
				So(snap.Status, ShouldEqual, race.StatusCountdown)
				So(*snap.Countdown, ShouldEqual, 3)
			})
		})

		Convey("When the player leaves", func() {
			f.coord.Leave(ctx)
			snap := f.sync(t)

			Convey("Then the room is replaced wholesale", func() {
				So(snap.RoomID, ShouldNotEqual, snapBefore.RoomID)
				So(snap.Players, ShouldBeEmpty)
				So(snap.Status, ShouldEqual, race.StatusWaiting)
			})

			Convey("And no broadcast ever comes from the old room", func() {
				f.clock.Advance(time.Hour)
				So(f.pub.expectQuiet(100*time.Millisecond), ShouldBeTrue)
			})
		})
	})

	Convey("Given a room mid-countdown", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		f.coord.Join(ctx, "alice")
		f.pub.nextSnapshot(t)
		f.sync(t)
		f.clock.Advance(1500 * time.Millisecond)
		f.pub.nextSnapshot(t)
		f.sync(t)
		f.clock.Advance(time.Second)
		snap := f.pub.nextSnapshot(t)
		So(snap.Status, ShouldEqual, race.StatusCountdown)
		f.sync(t)

		Convey("When the player leaves before racing begins", func() {
			f.coord.Leave(ctx)
			f.sync(t)

			Convey("Then the countdown never resumes", func() {
				f.clock.Advance(time.Hour)
				So(f.pub.expectQuiet(100*time.Millisecond), ShouldBeTrue)
			})
		})
	})
}

func TestCoordinatorControl(t *testing.T) {
	Convey("Given coordinator lifecycle controls", t, func() {
		Convey("Starting without a publisher fails", func() {
			c := race.New()
			So(c.Start(context.Background()), ShouldEqual, race.ErrNoPublisher)
		})

		Convey("Start is idempotent and Stop rejects further intents", func() {
			f := newFixture(t)
			So(f.coord.Start(context.Background()), ShouldBeNil)

			f.coord.Stop()
			So(f.coord.Join(context.Background(), "bob"), ShouldBeFalse)
			_, err := f.coord.State(context.Background())
			So(err, ShouldEqual, race.ErrNotRunning)
		})
	})
}
