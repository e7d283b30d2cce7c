package worker

import (
	"context"
	"fmt"
)

// Collect reads results until the completion condition of mode is met and
// hands every item result to handle. total is the number of submitted items
// in Count mode and the number of workers in Sentinel mode. The first error
// from handle stops collection and is returned.
func Collect[T, R any](ctx context.Context, results <-chan Result[T, R], mode Completion, total int, handle func(Result[T, R]) error) error {
	remaining := total
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return fmt.Errorf("%w: %d %s outstanding", ErrIncomplete, remaining, unit(mode))
			}
			if res.Done {
				if mode == Sentinel {
					remaining--
				}
				continue
			}
			if mode == Count {
				remaining--
			}
			if err := handle(res); err != nil {
				return err
			}
		}
	}
	return nil
}

func unit(mode Completion) string {
	if mode == Sentinel {
		return "workers"
	}
	return "results"
}
