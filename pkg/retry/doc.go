// Package retry provides exponential backoff with optional jitter.
//
// Presets:
//
//   - DefaultConfig: 3 attempts, 100ms to 5s
//   - Quick: 3 attempts, 25ms to 250ms, used when a registration call
//     establishes the publishing source inline
//   - Persistent: 30 attempts, 200ms to 10s, used by long-running processes
//
// Wrap an error with NonRetryable to stop immediately:
//
//	err := retry.Do(ctx, retry.Quick(), func() error {
//	    if cfg.URL == "" {
//	        return retry.NonRetryable(errs.ErrMissingConfig)
//	    }
//	    return client.Connect(ctx)
//	})
package retry
