// Package retry provides retry loops and pacing delays for Instagram calls.
//
// Do runs an operation up to MaxAttempts times, pausing according to a
// BackoffStrategy between attempts. Once the last attempt fails it returns
// straight away:
//
//	followers, err := retry.DoWithResult(func() (*models.Relations, error) {
//		return client.FetchFollowers(ctx, userID)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ConstantBackoff{Delay: 2 * time.Second},
//		RetryIf:     retry.RetryUnlessCancelled,
//		Context:     ctx,
//	})
//
// UniformJitter is a BackoffStrategy for pacing between actions, where each
// delay is drawn uniformly from a window.
package retry
