// Package instagram is a small client for Instagram's web API, covering
// what the unfollow workflow needs: login and logout, follower and following
// lists, and unfollowing an account.
//
// A Client holds one web session (cookies and CSRF token). Create a new one
// per run:
//
//	client, err := instagram.NewClient(instagram.OptionsFromConfig(&cfg.Instagram, limiter, log))
//	if err != nil {
//	    return err
//	}
//	if err := client.Login(ctx, user, password); err != nil {
//	    return err
//	}
//	defer client.Logout(ctx)
//
// Failures are *errors.Error values typed by what went wrong, so callers can
// tell a rate limit from a rejected password.
package instagram
