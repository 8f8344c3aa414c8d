package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const (
	defaultTxMaxRetries = 5
	defaultTxBackoff    = 20 * time.Millisecond
)

// TxRunner is the transaction surface services depend on.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RetryingTxRunner replays an entire transaction, read step included, when the
// store reports a serialization failure or deadlock. Non-transient errors pass
// through untouched.
type RetryingTxRunner struct {
	inner      TxRunner
	maxRetries int
	backoff    time.Duration
	onRetry    func()
}

// NewRetryingTxRunner wraps the runner with bounded conflict retries.
func NewRetryingTxRunner(inner TxRunner, maxRetries int, backoff time.Duration) *RetryingTxRunner {
	if maxRetries <= 0 {
		maxRetries = defaultTxMaxRetries
	}
	if backoff <= 0 {
		backoff = defaultTxBackoff
	}
	return &RetryingTxRunner{inner: inner, maxRetries: maxRetries, backoff: backoff}
}

// OnRetry registers a callback invoked each time a conflict retry is scheduled.
func (r *RetryingTxRunner) OnRetry(fn func()) {
	r.onRetry = fn
}

// WithTx runs fn inside a transaction, retrying transient commit conflicts.
func (r *RetryingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	backoff := retry.WithMaxRetries(uint64(r.maxRetries), retry.NewExponential(r.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := r.inner.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if IsSerializationFailure(err) {
			if r.onRetry != nil {
				r.onRetry()
			}
			return retry.RetryableError(err)
		}
		return err
	})
}
