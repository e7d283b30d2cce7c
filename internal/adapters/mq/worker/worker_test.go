package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/evalharvest/internal/adapters/mq/queue"
	"github.com/okian/evalharvest/internal/adapters/mq/worker"
	"github.com/okian/evalharvest/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func filled(items ...string) *queue.InMemoryQueue[string] {
	q := queue.NewInMemoryQueue[string](queue.WithCapacity(len(items) + 1))
	for _, it := range items {
		_ = q.Enqueue(context.Background(), it)
	}
	_ = q.Close()
	return q
}

func upper(_ context.Context, s string) (string, error) {
	if strings.HasPrefix(s, "bad") {
		return "", errors.New("boom " + s)
	}
	return strings.ToUpper(s), nil
}

func TestPoolSentinel(t *testing.T) {
	convey.Convey("Given a sentinel pool of three workers over five items", t, func() {
		ctx := context.Background()
		q := filled("a", "b", "bad-c", "d", "e")
		pool := worker.NewPool(3, q, worker.Shared(upper),
			worker.WithCompletion(worker.Sentinel), worker.WithLogger(logger.Nop()))
		results, err := pool.Start(ctx)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the results are collected", func() {
			var got, failed []string
			err := worker.Collect(ctx, results, worker.Sentinel, pool.Size(), func(r worker.Result[string, string]) error {
				if r.Err != nil {
					failed = append(failed, r.Item)
					return nil
				}
				got = append(got, r.Value)
				return nil
			})

			convey.Convey("Then every item is accounted for once and errors stay per item", func() {
				convey.So(err, convey.ShouldBeNil)
				sort.Strings(got)
				convey.So(got, convey.ShouldResemble, []string{"A", "B", "D", "E"})
				convey.So(failed, convey.ShouldResemble, []string{"bad-c"})
				convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When started twice", func() {
			_, err := pool.Start(ctx)

			convey.Convey("Then the second start is refused", func() {
				convey.So(errors.Is(err, worker.ErrStarted), convey.ShouldBeTrue)
				_ = worker.Collect(ctx, results, worker.Sentinel, pool.Size(), func(worker.Result[string, string]) error { return nil })
			})
		})
	})
}

func TestPoolCount(t *testing.T) {
	convey.Convey("Given a count pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		items := make([]string, 20)
		for i := range items {
			items[i] = fmt.Sprintf("s%02d", i)
		}
		q := filled(items...)
		pool := worker.NewPool(4, q, worker.Shared(upper), worker.WithCompletion(worker.Count))
		results, err := pool.Start(ctx)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When exactly the submitted number of results is read", func() {
			n := 0
			err := worker.Collect(ctx, results, worker.Count, len(items), func(worker.Result[string, string]) error {
				n++
				return nil
			})

			convey.Convey("Then no marker is needed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, len(items))
			})
		})

		convey.Convey("When more results are expected than were submitted", func() {
			err := worker.Collect(ctx, results, worker.Count, len(items)+1, func(worker.Result[string, string]) error { return nil })

			convey.Convey("Then collection reports the shortfall", func() {
				convey.So(errors.Is(err, worker.ErrIncomplete), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the handler fails", func() {
			fatal := errors.New("sink down")
			err := worker.Collect(ctx, results, worker.Count, len(items), func(worker.Result[string, string]) error { return fatal })

			convey.Convey("Then collection stops with that error", func() {
				convey.So(errors.Is(err, fatal), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPoolPerWorkerState(t *testing.T) {
	convey.Convey("Given a factory building one counter per worker", t, func() {
		ctx := context.Background()
		q := filled("a", "b", "c", "d", "e", "f")
		var mu sync.Mutex
		built := map[int]bool{}
		factory := func(id int) worker.ProcessFunc[string, int] {
			mu.Lock()
			built[id] = true
			mu.Unlock()
			seen := 0
			return func(context.Context, string) (int, error) {
				seen++
				return seen, nil
			}
		}
		pool := worker.NewPool(2, q, factory)
		results, err := pool.Start(ctx)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then each worker owns its processor", func() {
			perWorker := map[int]int{}
			err := worker.Collect(ctx, results, pool.Completion(), pool.Size(), func(r worker.Result[string, int]) error {
				perWorker[r.Worker]++
				convey.So(r.Value, convey.ShouldEqual, perWorker[r.Worker])
				return nil
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(built), convey.ShouldEqual, 2)
			convey.So(perWorker[0]+perWorker[1], convey.ShouldEqual, 6)
		})
	})
}

func TestPoolCancellation(t *testing.T) {
	convey.Convey("Given a pool whose queue never closes", t, func() {
		q := queue.NewInMemoryQueue[string](queue.WithCapacity(4))
		ctx, cancel := context.WithCancel(context.Background())
		pool := worker.NewPool(2, q, worker.Shared(upper))
		results, err := pool.Start(ctx)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then the workers exit and the result channel closes", func() {
				select {
				case _, ok := <-results:
					for ok {
						_, ok = <-results
					}
				case <-time.After(time.Second):
					convey.So("workers did not stop", convey.ShouldBeEmpty)
				}
				convey.So(q.Close(), convey.ShouldBeNil)
			})
		})
	})
}
