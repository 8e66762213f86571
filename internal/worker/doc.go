// Package worker provides a small bounded pool for long blocking tasks such
// as an unfollow run, so chat handlers can stay responsive while the task
// sleeps between Instagram calls.
package worker
