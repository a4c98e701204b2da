package utils

import (
	"context"
	"math/rand"
	"time"
)

type Backoff struct {
	base       time.Duration
	maxRetries int
	jitter     time.Duration
}

func NewBackoff(base time.Duration, maxRetries int) Backoff {
	return Backoff{base: base, maxRetries: maxRetries, jitter: base}
}

// Do reintenta fn mientras retryable(err) sea true, con backoff exponencial
// + jitter. Corta en cuanto el contexto se cancela.
func (b Backoff) Do(ctx context.Context, retryable func(error) bool, fn func(i int) error) error {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if i == b.maxRetries || (retryable != nil && !retryable(err)) {
			return err
		}
		t := time.Duration(1<<i) * b.base
		if b.jitter > 0 {
			t += time.Duration(rand.Int63n(int64(b.jitter)))
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(t):
		}
	}
	return err
}
