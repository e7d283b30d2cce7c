package fetch

import (
	"math/rand/v2"
	"time"
)

// backoffFactor multiplies the delay after every draw.
const backoffFactor = 2

// Backoff is an unbounded sequence of retry delays. Each draw applies the
// symmetric jitter to the running delay, yields it, then doubles it, so the
// jitter compounds across draws. The consumer caps how many it takes.
type Backoff struct {
	// next is the running delay in seconds.
	next   float64
	jitter float64
	rand   func() float64
}

// NewBackoff starts a sequence at initial with jitter fraction f in [0, 1).
// rnd returns values in [0, 1); nil uses math/rand/v2.
func NewBackoff(initial time.Duration, f float64, rnd func() float64) *Backoff {
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Backoff{next: initial.Seconds(), jitter: f, rand: rnd}
}

// Next returns the delay to sleep before the coming attempt.
func (b *Backoff) Next() time.Duration {
	if b.jitter > 0 {
		u := (2*b.rand() - 1) * b.jitter
		b.next += b.next * u
	}
	d := time.Duration(b.next * float64(time.Second))
	b.next *= backoffFactor
	return d
}
