// Package unfollow implements the non-follower cleanup: log in, load the
// followers and following lists, and unfollow every account that does not
// follow back.
//
// The workflow moves through
//
//	idle -> authenticating -> fetching_followers -> fetching_following ->
//	computing_diff -> unfollowing -> done
//
// and ends in failed when login or either fetch fails. Each fetch gets a
// fixed number of tries with a constant pause between them. Unfollows are
// paced with a random pause after a success and a longer fixed pause after a
// failure. A failed unfollow never stops the batch.
//
// All waits are real blocking waits. Run is meant to be executed on a
// worker, not on a caller's request path.
package unfollow
