// Package runner executes the unfollow command on behalf of a front end.
//
// A Runner checks that credentials are configured, takes the cooldown gate
// and hands the workflow to a worker pool. The Discord bot and the CLI both
// go through it, so they share one gate per process:
//
//	outcome := r.Invoke(ctx, runner.Request{Invoker: userID})
//	switch outcome.Status {
//	case runner.StatusCooldown:
//	    // tell the user how long to wait
//	case runner.StatusCompleted:
//	    // render outcome.Result
//	}
package runner
