package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/evalharvest/internal/domain/errkind"
	"github.com/okian/evalharvest/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBackoff(t *testing.T) {
	Convey("Given a backoff without jitter", t, func() {
		b := NewBackoff(time.Second, 0, nil)

		Convey("Then delays double on every draw", func() {
			So(b.Next(), ShouldEqual, time.Second)
			So(b.Next(), ShouldEqual, 2*time.Second)
			So(b.Next(), ShouldEqual, 4*time.Second)
			So(b.Next(), ShouldEqual, 8*time.Second)
		})
	})

	Convey("Given a backoff with jitter at its upper bound", t, func() {
		b := NewBackoff(10*time.Second, 0.1, func() float64 { return 1 })

		Convey("Then each draw is scaled by 1+f before doubling", func() {
			So(b.Next().Seconds(), ShouldAlmostEqual, 11, 1e-6)
			So(b.Next().Seconds(), ShouldAlmostEqual, 24.2, 1e-6)
		})
	})

	Convey("Given a backoff with jitter at its lower bound", t, func() {
		b := NewBackoff(10*time.Second, 0.5, func() float64 { return 0 })

		Convey("Then the first delay is scaled by 1-f", func() {
			So(b.Next(), ShouldEqual, 5*time.Second)
		})
	})
}

type recorder struct {
	slept []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return nil
}

func newTestFetcher(r *recorder, attempts int) *Fetcher {
	return New(
		WithInitialDelay(time.Second),
		WithJitter(0),
		WithMaxAttempts(attempts),
		WithSleep(r.sleep),
		WithLogger(logger.Nop()),
	)
}

func TestDo(t *testing.T) {
	Convey("Given a fetcher with five attempts", t, func() {
		ctx := context.Background()
		r := &recorder{}
		f := newTestFetcher(r, 5)

		Convey("When the operation fails transiently twice", func() {
			calls := 0
			v, err := Do(ctx, f, "read", "owner/ds", func(context.Context) (string, error) {
				calls++
				if calls < 3 {
					return "", errkind.Wrap(errkind.ErrTransient, "503", nil)
				}
				return "payload", nil
			})

			Convey("Then it retries with doubling delays and succeeds", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "payload")
				So(calls, ShouldEqual, 3)
				So(r.slept, ShouldResemble, []time.Duration{time.Second, 2 * time.Second})
			})
		})

		Convey("When the operation is not found", func() {
			calls := 0
			_, err := Do(ctx, f, "read", "owner/missing", func(context.Context) (int, error) {
				calls++
				return 0, errkind.Wrap(errkind.ErrNotFound, "404", nil)
			})

			Convey("Then it aborts after one attempt without sleeping", func() {
				So(errors.Is(err, errkind.ErrNotFound), ShouldBeTrue)
				So(calls, ShouldEqual, 1)
				So(Attempts(err), ShouldEqual, 1)
				So(r.slept, ShouldBeEmpty)
			})
		})

		Convey("When every attempt is transient", func() {
			calls := 0
			_, err := Do(ctx, f, "list", "owner/flaky", func(context.Context) (int, error) {
				calls++
				return 0, errkind.Wrap(errkind.ErrTransient, "429", nil)
			})

			Convey("Then it gives up as unavailable after the cap", func() {
				So(errors.Is(err, errkind.ErrUnavailable), ShouldBeTrue)
				So(errors.Is(err, errkind.ErrTransient), ShouldBeTrue)
				So(errkind.Classify(err), ShouldEqual, errkind.ClassUnavailable)
				So(calls, ShouldEqual, 5)
				So(Attempts(err), ShouldEqual, 5)
				So(r.slept, ShouldHaveLength, 4)
				So(f.MaxAttempts(), ShouldEqual, 5)
			})
		})

		Convey("When the context ends during a backoff sleep", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			slow := New(WithInitialDelay(time.Hour), WithMaxAttempts(3), WithLogger(logger.Nop()))
			_, err := Do(cctx, slow, "read", "owner/ds", func(context.Context) (int, error) {
				return 0, errkind.Wrap(errkind.ErrTransient, "reset", nil)
			})

			Convey("Then the cancellation is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestAttemptsOfForeignError(t *testing.T) {
	if n := Attempts(errors.New("plain")); n != 0 {
		t.Errorf("expected 0 attempts, got %d", n)
	}
}
