package datasource

import (
	"context"
	"time"
)

// retryConnect calls connect until it succeeds, the attempts in opts are
// used up or ctx ends. A nil opts means a single attempt.
func retryConnect(ctx context.Context, opts *RetryConfig, connect func(context.Context) error) error {
	if opts == nil || opts.MaxRetries <= 0 {
		return connect(ctx)
	}

	delay := opts.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}

	var err error
	for i := 0; i < opts.MaxRetries; i++ {
		if err = connect(ctx); err == nil {
			return nil
		}
		if i == opts.MaxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
			if opts.MaxDelay > 0 && delay > opts.MaxDelay {
				delay = opts.MaxDelay
			}
		}
	}
	return err
}
