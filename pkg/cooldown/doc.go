// Package cooldown implements the global gate in front of the unfollow
// command: one run at a time, and a fixed cooldown after each successful run.
package cooldown
