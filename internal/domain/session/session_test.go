package session_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/internal/domain/session"
	"github.com/okian/keysprint/internal/domain/words"
	. "github.com/smartystreets/goconvey/convey"
)

func newSource() *words.Generator {
	return words.NewGenerator(words.WithRand(rand.New(rand.NewSource(7))))
}

func TestSettingsValidate(t *testing.T) {
	Convey("Given solo round settings", t, func() {
		Convey("Every permitted combination validates", func() {
			for _, target := range []int{15, 30, 60} {
				So(session.Settings{Mode: session.ModeTime, Target: target}.Validate(), ShouldBeNil)
			}
			for _, target := range []int{10, 25, 50} {
				So(session.Settings{Mode: session.ModeWords, Target: target}.Validate(), ShouldBeNil)
			}
		})

		Convey("An unknown mode is rejected", func() {
			err := session.Settings{Mode: "zen", Target: 30}.Validate()
			So(err, ShouldWrap, session.ErrInvalidMode)
		})

		Convey("An off-menu target is rejected", func() {
			So(session.Settings{Mode: session.ModeTime, Target: 45}.Validate(), ShouldWrap, session.ErrInvalidTarget)
			So(session.Settings{Mode: session.ModeWords, Target: 30}.Validate(), ShouldWrap, session.ErrInvalidTarget)
		})
	})
}

func TestTimedSession(t *testing.T) {
	ctx := context.Background()

	Convey("Given a 15 second timed round", t, func() {
		clock := clockwork.NewFakeClock()
		s, err := session.New(ctx,
			session.Settings{Mode: session.ModeTime, Target: 15},
			newSource(),
			session.WithClock(clock),
		)
		So(err, ShouldBeNil)
		So(s.Text(), ShouldNotBeBlank)
		So(s.Started(), ShouldBeFalse)

		Convey("When the first update arrives", func() {
			live, done, err := s.Update(0, 0)
			So(err, ShouldBeNil)

			Convey("Then the round starts and rates are still zero", func() {
				So(s.Started(), ShouldBeTrue)
				So(done, ShouldBeFalse)
				So(live.WPM, ShouldEqual, 0)
				So(live.Accuracy, ShouldEqual, 100)
			})

			Convey("And mid-round updates report live stats without finishing", func() {
				clock.Advance(6 * time.Second)
				live, done, err := s.Update(30, 32)
				So(err, ShouldBeNil)
				So(done, ShouldBeFalse)
				So(live.TimeElapsed, ShouldEqual, 6)
				So(live.WPM, ShouldBeGreaterThan, 0)

				Convey("And crossing the target ends the round", func() {
					clock.Advance(9 * time.Second)
					live, done, err := s.Update(100, 110)
					So(err, ShouldBeNil)
					So(done, ShouldBeTrue)
					So(s.Finished(), ShouldBeTrue)
					So(live.TimeElapsed, ShouldEqual, 15)

					Convey("And the result carries the final stats", func() {
						res, err := s.Result(ctx)
						So(err, ShouldBeNil)
						So(res.Mode, ShouldEqual, session.ModeTime)
						So(res.Target, ShouldEqual, 15)
						// 110 typed chars in 0.25 min is 88 gross; 10
						// errors in 0.25 min cost 40, leaving 48 net.
						So(res.Stats.RawWPM, ShouldEqual, 88)
						So(res.Stats.WPM, ShouldEqual, 48)
						So(res.Stats.Accuracy, ShouldEqual, 91)
					})

					Convey("And further updates are rejected", func() {
						_, _, err := s.Update(120, 130)
						So(err, ShouldEqual, session.ErrFinished)
					})
				})
			})
		})

		Convey("When an update lands past the target", func() {
			_, _, err := s.Update(0, 0)
			So(err, ShouldBeNil)
			clock.Advance(22 * time.Second)
			_, done, err := s.Update(90, 95)
			So(err, ShouldBeNil)
			So(done, ShouldBeTrue)

			Convey("Then the result reports exactly the target duration", func() {
				res, err := s.Result(ctx)
				So(err, ShouldBeNil)
				So(res.Stats.TimeElapsed, ShouldEqual, 15)
			})
		})
	})
}

func TestWordSession(t *testing.T) {
	ctx := context.Background()

	Convey("Given a 10 word round", t, func() {
		clock := clockwork.NewFakeClock()
		s, err := session.New(ctx,
			session.Settings{Mode: session.ModeWords, Target: 10},
			newSource(),
			session.WithClock(clock),
		)
		So(err, ShouldBeNil)
		total := len(s.Text())
		So(total, ShouldBeGreaterThan, 0)

		Convey("When the typist works through the passage", func() {
			_, done, err := s.Update(0, 0)
			So(err, ShouldBeNil)
			So(done, ShouldBeFalse)

			clock.Advance(10 * time.Second)
			_, done, err = s.Update(total/2, total/2)
			So(err, ShouldBeNil)
			So(done, ShouldBeFalse)

			Convey("Then typing every character ends the round", func() {
				clock.Advance(10 * time.Second)
				live, done, err := s.Update(total, total+3)
				So(err, ShouldBeNil)
				So(done, ShouldBeTrue)
				So(live.CorrectChars, ShouldEqual, total)

				res, err := s.Result(ctx)
				So(err, ShouldBeNil)
				So(res.Mode, ShouldEqual, session.ModeWords)
				So(res.Stats.TimeElapsed, ShouldEqual, 20)
			})
		})
	})
}

func TestSessionGuards(t *testing.T) {
	ctx := context.Background()

	Convey("Given session construction and result guards", t, func() {
		Convey("Invalid settings fail construction", func() {
			_, err := session.New(ctx, session.Settings{Mode: "zen", Target: 1}, newSource())
			So(err, ShouldWrap, session.ErrInvalidMode)
		})

		Convey("A nil text source fails construction", func() {
			_, err := session.New(ctx, session.Settings{Mode: session.ModeTime, Target: 30}, nil)
			So(err, ShouldEqual, session.ErrNoTextSource)
		})

		Convey("Result before the first keystroke is rejected", func() {
			s, err := session.New(ctx, session.Settings{Mode: session.ModeTime, Target: 30}, newSource())
			So(err, ShouldBeNil)
			_, err = s.Result(ctx)
			So(err, ShouldEqual, session.ErrNotStarted)
		})

		Convey("Result before completion is rejected", func() {
			clock := clockwork.NewFakeClock()
			s, err := session.New(ctx,
				session.Settings{Mode: session.ModeTime, Target: 30},
				newSource(),
				session.WithClock(clock),
			)
			So(err, ShouldBeNil)
			_, _, err = s.Update(5, 5)
			So(err, ShouldBeNil)
			_, err = s.Result(ctx)
			So(err, ShouldEqual, session.ErrNotFinished)
		})

		Convey("Negative and inconsistent tallies are clamped", func() {
			clock := clockwork.NewFakeClock()
			s, err := session.New(ctx,
				session.Settings{Mode: session.ModeTime, Target: 15},
				newSource(),
				session.WithClock(clock),
			)
			So(err, ShouldBeNil)
			clockAdvanceAndUpdate := func(correct, typed int) {
				clock.Advance(2 * time.Second)
				live, _, err := s.Update(correct, typed)
				So(err, ShouldBeNil)
				So(live.Accuracy, ShouldBeBetweenOrEqual, 0, 100)
				So(live.WPM, ShouldBeGreaterThanOrEqualTo, 0)
			}
			clockAdvanceAndUpdate(-5, -10)
			clockAdvanceAndUpdate(50, 20)
		})
	})
}
