package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"igunfollow/internal/worker"
	"igunfollow/pkg/cooldown"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/metrics"
	"igunfollow/pkg/unfollow"
)

// Status is how an invocation ended
type Status string

const (
	// StatusConfigError means credentials are missing; nothing was contacted
	StatusConfigError Status = "config_error"
	// StatusCooldown means the gate is cooling down after a previous run
	StatusCooldown Status = "cooldown"
	// StatusBusy means another run is in progress or no worker is free
	StatusBusy Status = "busy"
	// StatusCompleted means the workflow finished
	StatusCompleted Status = "completed"
	// StatusFailed means the workflow hit a fatal error
	StatusFailed Status = "failed"
)

// CredentialSource resolves the Instagram credentials for a run
type CredentialSource func(ctx context.Context) (unfollow.Credentials, error)

// ClientFactory opens a fresh Instagram session for a run
type ClientFactory func() (unfollow.Client, error)

// Request is one invocation of the command
type Request struct {
	// Invoker identifies who triggered the run (a Discord user ID or "cli")
	Invoker string
	DryRun  bool
	// OnAccepted is called once the run has passed the gate and was queued
	OnAccepted func(runID string)
	// Observer receives workflow progress events
	Observer unfollow.Observer
}

// Outcome is what the caller renders
type Outcome struct {
	Status Status
	RunID  string
	Result *unfollow.Result
	Err    error
	// Gate is the gate state that refused the run, for StatusCooldown and StatusBusy
	Gate cooldown.Status
	// CooldownDuration is the configured cooldown length
	CooldownDuration time.Duration
}

// Options configures a Runner
type Options struct {
	Credentials CredentialSource
	NewClient   ClientFactory
	Gate        *cooldown.Gate
	Pool        *worker.Pool
	Settings    unfollow.Settings
	Logger      logger.Logger
	Clock       clockwork.Clock
	// NewRunID defaults to random UUIDs
	NewRunID func() string
}

// Runner ties the credential check, the cooldown gate and the worker pool
// together around the unfollow workflow
type Runner struct {
	credentials CredentialSource
	newClient   ClientFactory
	gate        *cooldown.Gate
	pool        *worker.Pool
	settings    unfollow.Settings
	logger      logger.Logger
	clock       clockwork.Clock
	newRunID    func() string
}

// New creates a runner
func New(opts Options) *Runner {
	r := &Runner{
		credentials: opts.Credentials,
		newClient:   opts.NewClient,
		gate:        opts.Gate,
		pool:        opts.Pool,
		settings:    opts.Settings,
		logger:      opts.Logger,
		clock:       opts.Clock,
		newRunID:    opts.NewRunID,
	}
	if r.logger == nil {
		r.logger = logger.GetLogger()
	}
	if r.clock == nil {
		r.clock = clockwork.NewRealClock()
	}
	if r.newRunID == nil {
		r.newRunID = uuid.NewString
	}
	if r.gate == nil {
		r.gate = cooldown.NewGate(cooldown.Options{Clock: r.clock})
	}
	return r
}

// Gate returns the runner's cooldown gate
func (r *Runner) Gate() *cooldown.Gate {
	return r.gate
}

// Invoke runs the command once. Missing credentials are reported before the
// gate is consulted. A run that passes the gate executes on the pool; Invoke
// waits for it unless ctx ends first, in which case the run continues and
// still settles the gate when it finishes.
func (r *Runner) Invoke(ctx context.Context, req Request) Outcome {
	outcome := r.invoke(ctx, req)
	outcome.CooldownDuration = r.gate.Duration()
	metrics.InvocationsTotal.WithLabelValues(string(outcome.Status)).Inc()
	return outcome
}

func (r *Runner) invoke(ctx context.Context, req Request) Outcome {
	log := r.logger.WithField("invoker", req.Invoker)

	creds, err := r.resolveCredentials(ctx)
	if err != nil {
		log.WithError(err).Warn("Unfollow command is not configured")
		return Outcome{Status: StatusConfigError, Err: err}
	}

	lease, gateStatus := r.gate.TryAcquire(req.Invoker)
	if lease == nil {
		if gateStatus.InProgress {
			metrics.GateRejections.WithLabelValues("in_progress").Inc()
			log.InfoWithFields("Unfollow run already in progress", map[string]interface{}{
				"holder": gateStatus.LastUser,
			})
			return Outcome{Status: StatusBusy, Gate: gateStatus}
		}
		metrics.GateRejections.WithLabelValues("cooldown").Inc()
		log.InfoWithFields("Unfollow command on cooldown", map[string]interface{}{
			"remaining": gateStatus.Remaining,
			"last_user": gateStatus.LastUser,
		})
		return Outcome{Status: StatusCooldown, Gate: gateStatus}
	}

	runID := r.newRunID()
	log = log.WithField("run_id", runID)

	future, err := worker.Submit(r.pool, "unfollow:"+runID, func(ctx context.Context) (*unfollow.Result, error) {
		return r.execute(ctx, runID, lease, creds, req, log)
	})
	if err != nil {
		lease.Release()
		log.WithError(err).Warn("Could not queue unfollow run")
		if errors.Is(err, worker.ErrQueueFull) {
			return Outcome{Status: StatusBusy, RunID: runID, Err: err}
		}
		return Outcome{Status: StatusFailed, RunID: runID, Err: err}
	}

	// a task dropped by a stopping pool never runs execute; settled leases
	// ignore the extra release
	go func() {
		<-future.Done()
		lease.Release()
	}()

	log.Info("Unfollow run accepted")
	if req.OnAccepted != nil {
		req.OnAccepted(runID)
	}

	result, err := future.Wait(ctx)
	if err != nil {
		return Outcome{Status: StatusFailed, RunID: runID, Result: result, Err: err}
	}
	return Outcome{Status: StatusCompleted, RunID: runID, Result: result}
}

// execute runs on a worker and settles the lease whatever happens
func (r *Runner) execute(ctx context.Context, runID string, lease *cooldown.Lease, creds unfollow.Credentials, req Request, log logger.Logger) (result *unfollow.Result, err error) {
	start := r.clock.Now()
	defer func() {
		metrics.RunDuration.Observe(r.clock.Since(start).Seconds())
		switch {
		case req.DryRun:
			lease.Release()
		default:
			lease.Complete(err == nil && result != nil && result.Success)
		}
	}()

	client, err := r.newClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create instagram client: %w", err)
	}

	settings := r.settings
	settings.DryRun = req.DryRun

	wf := unfollow.New(client, settings,
		unfollow.WithRunID(runID),
		unfollow.WithLogger(log),
		unfollow.WithObserver(req.Observer),
	)

	result, err = wf.Run(ctx, creds)
	if err != nil {
		log.WithError(err).Error("Unfollow run failed")
	}
	return result, err
}

func (r *Runner) resolveCredentials(ctx context.Context) (unfollow.Credentials, error) {
	if r.credentials == nil {
		return unfollow.Credentials{}, &unfollow.ConfigurationError{Missing: unfollow.Credentials{}.Missing()}
	}

	creds, err := r.credentials(ctx)
	if err != nil {
		var cfgErr *unfollow.ConfigurationError
		if errors.As(err, &cfgErr) {
			return creds, err
		}
		return creds, &unfollow.ConfigurationError{Missing: creds.Missing()}
	}
	if missing := creds.Missing(); len(missing) > 0 {
		return creds, &unfollow.ConfigurationError{Missing: missing}
	}
	return creds, nil
}
