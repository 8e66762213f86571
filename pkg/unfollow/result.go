package unfollow

import (
	"time"

	"igunfollow/pkg/models"
)

// State is a step of the workflow
type State string

const (
	StateIdle              State = "idle"
	StateAuthenticating    State = "authenticating"
	StateFetchingFollowers State = "fetching_followers"
	StateFetchingFollowing State = "fetching_following"
	StateComputingDiff     State = "computing_diff"
	StateUnfollowing       State = "unfollowing"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Result summarises one run
type Result struct {
	RunID string

	TotalFollowing     int
	TotalFollowers     int
	NonReciprocalCount int
	Unfollowed         int
	Failed             int

	// Success is set once the unfollow phase (or its short-circuit) finished
	Success bool
	// NoActionNeeded means everyone followed back
	NoActionNeeded bool
	// DryRun means accounts were listed but not unfollowed
	DryRun bool

	// Accounts are the non-reciprocal accounts in processing order
	Accounts []models.Account
	// FailedAccounts are the accounts whose unfollow failed
	FailedAccounts []models.Account

	// State is where the run ended
	State     State
	StartedAt time.Time
	Duration  time.Duration
}

// Event is emitted on every state change and after each account
type Event struct {
	RunID string
	State State
	// Account is set for per-account events in the unfollow phase
	Account *models.Account
	// Index is 1-based within Total
	Index int
	Total int
	Err   error
}

// Observer receives workflow events. It is called from the worker running
// the workflow and must not block.
type Observer func(Event)
