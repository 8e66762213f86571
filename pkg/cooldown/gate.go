package cooldown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDuration is how long the command stays locked after a successful run
const DefaultDuration = 24 * time.Hour

// Options configures a Gate
type Options struct {
	// Duration of the cooldown after a run; DefaultDuration when zero
	Duration time.Duration
	// OnFailure starts the cooldown after failed runs as well
	OnFailure bool
	// Clock defaults to the real clock
	Clock clockwork.Clock
}

// Status is a snapshot of the gate as seen by one caller
type Status struct {
	OnCooldown bool
	InProgress bool
	// Remaining is the time left on the cooldown, zero when not on cooldown
	Remaining time.Duration
	// LastUser is who triggered the run behind an active cooldown, or who
	// holds the gate when InProgress is set. Empty otherwise.
	LastUser string
}

// Blocked reports whether a new run would be refused
func (s Status) Blocked() bool {
	return s.OnCooldown || s.InProgress
}

// SecondsRemaining is Remaining truncated to whole seconds
func (s Status) SecondsRemaining() int {
	return int(s.Remaining / time.Second)
}

// Gate is the process-wide cooldown. It admits one run at a time and, once
// a run completes successfully, refuses new runs until the cooldown has
// elapsed. State lives in memory only and resets on restart.
type Gate struct {
	clock     clockwork.Clock
	duration  time.Duration
	onFailure bool

	mu       sync.Mutex
	lastRun  time.Time
	lastUser string
	running  bool
	holder   string
	lease    *Lease
}

// NewGate creates a gate with no recorded run
func NewGate(opts Options) *Gate {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	return &Gate{
		clock:     clock,
		duration:  duration,
		onFailure: opts.OnFailure,
	}
}

// Duration returns the configured cooldown length
func (g *Gate) Duration() time.Duration {
	return g.duration
}

// Check reports the cooldown state without changing it
func (g *Gate) Check() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.cooldownStatus()
}

// cooldownStatus must be called with mu held
func (g *Gate) cooldownStatus() Status {
	if g.lastRun.IsZero() {
		return Status{}
	}

	elapsed := g.clock.Since(g.lastRun)
	if elapsed >= g.duration {
		return Status{}
	}

	return Status{
		OnCooldown: true,
		Remaining:  g.duration - elapsed,
		LastUser:   g.lastUser,
	}
}

// TryAcquire checks the gate and, if it is open, reserves it for user in the
// same step. A nil lease means the run must not start; the returned status
// says why. Refused attempts leave the gate untouched.
func (g *Gate) TryAcquire(user string) (*Lease, Status) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return nil, Status{InProgress: true, LastUser: g.holder}
	}

	status := g.cooldownStatus()
	if status.OnCooldown {
		return nil, status
	}

	g.running = true
	g.holder = user
	g.lease = &Lease{gate: g, user: user, acquiredAt: g.clock.Now()}
	return g.lease, status
}

// finish releases the gate for lease l and optionally records the run.
// Only the current lease has effect.
func (g *Gate) finish(l *Lease, record bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lease != l {
		return
	}

	g.running = false
	g.holder = ""
	g.lease = nil

	if record {
		g.lastRun = g.clock.Now()
		g.lastUser = l.user
	}
}

// Reset forgets the last run. A run in progress is not affected.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastRun = time.Time{}
	g.lastUser = ""
}

// Lease is the right to run once. It must be completed exactly once; later
// calls are ignored.
type Lease struct {
	gate       *Gate
	user       string
	acquiredAt time.Time
	once       sync.Once
}

// User returns who acquired the lease
func (l *Lease) User() string {
	return l.user
}

// AcquiredAt returns when the lease was granted
func (l *Lease) AcquiredAt() time.Time {
	return l.acquiredAt
}

// Complete releases the gate. A successful run starts the cooldown, and so
// does a failed one when the gate is configured with OnFailure.
func (l *Lease) Complete(success bool) {
	l.once.Do(func() {
		l.gate.finish(l, success || l.gate.onFailure)
	})
}

// Release frees the gate without recording a run, for work that should not
// count against the cooldown such as a dry run
func (l *Lease) Release() {
	l.once.Do(func() {
		l.gate.finish(l, false)
	})
}
