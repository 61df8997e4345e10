// Package ratelimiter throttles byte streams with a token bucket.
package ratelimiter

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// minBurst keeps the bucket large enough for typical read and write buffers.
const minBurst = 256 * 1024

// RateLimiter limits throughput in bytes per second using the token bucket
// algorithm from golang.org/x/time/rate. One token is one byte.
//
// A nil *RateLimiter never blocks, so callers can pass one around without
// checking whether throttling is configured.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing bytesPerSecond sustained throughput and
// bursts of up to burst bytes. A zero rate returns nil (unlimited). The
// burst is raised to at least bytesPerSecond and 256 KiB.
func New(bytesPerSecond, burst int) *RateLimiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst = max(burst, bytesPerSecond, minBurst)
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst)}
}

// WaitN blocks until n bytes may pass or ctx is done. Requests larger than
// the burst are split.
func (r *RateLimiter) WaitN(ctx context.Context, n int) error {
	if r == nil {
		return nil
	}
	burst := r.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := r.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// SetLimit changes the sustained rate. Zero or less disables throttling.
func (r *RateLimiter) SetLimit(bytesPerSecond int) {
	if r == nil {
		return
	}
	if bytesPerSecond <= 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(bytesPerSecond))
}

// Limit returns the sustained rate in bytes per second.
func (r *RateLimiter) Limit() float64 {
	if r == nil {
		return float64(rate.Inf)
	}
	return float64(r.limiter.Limit())
}

// Writer wraps w so every write waits for its bytes to be admitted.
func (r *RateLimiter) Writer(ctx context.Context, w io.Writer) io.Writer {
	if r == nil {
		return w
	}
	return &writer{ctx: ctx, w: w, r: r}
}

// Reader wraps rd so every read is admitted after the fact.
func (r *RateLimiter) Reader(ctx context.Context, rd io.Reader) io.Reader {
	if r == nil {
		return rd
	}
	return &reader{ctx: ctx, rd: rd, r: r}
}

type writer struct {
	ctx context.Context
	w   io.Writer
	r   *RateLimiter
}

func (w *writer) Write(p []byte) (int, error) {
	if err := w.r.WaitN(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

type reader struct {
	ctx context.Context
	rd  io.Reader
	r   *RateLimiter
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.rd.Read(p)
	if n > 0 {
		if werr := r.r.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
