// Package ratelimit throttles requests to Instagram's web API.
//
// The TokenBucket refills its whole capacity once per period, which keeps
// follower paging and unfollow calls under a fixed requests-per-minute budget:
//
//	limiter := ratelimit.PerMinute(60)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
