package unfollow

import (
	"context"
	"time"

	"igunfollow/pkg/config"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/metrics"
	"igunfollow/pkg/models"
	"igunfollow/pkg/retry"
)

// logoutTimeout bounds the best-effort logout on the way out
const logoutTimeout = 15 * time.Second

// Client is the Instagram session the workflow drives
type Client interface {
	Login(ctx context.Context, username, password string) error
	CurrentUserID() (string, error)
	FetchFollowers(ctx context.Context, userID string) (*models.Relations, error)
	FetchFollowing(ctx context.Context, userID string) (*models.Relations, error)
	Unfollow(ctx context.Context, accountID string) error
	Logout(ctx context.Context) error
}

// Credentials identify the Instagram account to clean up
type Credentials struct {
	Username string
	Password string
}

// Missing lists the credential fields that are empty
func (c Credentials) Missing() []string {
	var missing []string
	if c.Username == "" {
		missing = append(missing, config.EnvInstagramUser)
	}
	if c.Password == "" {
		missing = append(missing, config.EnvInstagramPassword)
	}
	return missing
}

// Settings controls retries and pacing
type Settings struct {
	// FetchAttempts is the total number of tries per relation list
	FetchAttempts int
	// FetchRetryDelay is the pause between two fetch tries
	FetchRetryDelay time.Duration
	// SettleDelay is the pause before the first unfollow
	SettleDelay time.Duration
	// MinDelay and MaxDelay bound the random pause after a successful unfollow
	MinDelay time.Duration
	MaxDelay time.Duration
	// FailureDelay is the pause after a failed unfollow
	FailureDelay time.Duration
	// DryRun lists non-reciprocal accounts without unfollowing them
	DryRun bool
}

// DefaultSettings returns the production pacing
func DefaultSettings() Settings {
	return Settings{
		FetchAttempts:   3,
		FetchRetryDelay: 2 * time.Second,
		SettleDelay:     3 * time.Second,
		MinDelay:        4 * time.Second,
		MaxDelay:        8 * time.Second,
		FailureDelay:    10 * time.Second,
	}
}

// SettingsFromConfig builds settings from the unfollow config section
func SettingsFromConfig(cfg *config.UnfollowConfig) Settings {
	return Settings{
		FetchAttempts:   cfg.FetchAttempts,
		FetchRetryDelay: cfg.FetchRetryDelay,
		SettleDelay:     cfg.SettleDelay,
		MinDelay:        cfg.MinDelay,
		MaxDelay:        cfg.MaxDelay,
		FailureDelay:    cfg.FailureDelay,
	}
}

// Option customises a Workflow
type Option func(*Workflow)

// WithObserver registers a callback for progress events
func WithObserver(o Observer) Option {
	return func(w *Workflow) { w.observer = o }
}

// WithLogger sets the workflow logger
func WithLogger(l logger.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithRunID tags results, events and logs with a run identifier
func WithRunID(id string) Option {
	return func(w *Workflow) { w.runID = id }
}

// WithRandom replaces the source for the post-unfollow jitter. r must
// return values in [0, 1).
func WithRandom(r func() float64) Option {
	return func(w *Workflow) { w.random = r }
}

// Workflow logs in, diffs followers against following and unfollows every
// account that does not follow back. A Workflow is good for one Run.
type Workflow struct {
	client   Client
	settings Settings
	observer Observer
	logger   logger.Logger
	runID    string
	random   func() float64
}

// New creates a workflow over client
func New(client Client, settings Settings, opts ...Option) *Workflow {
	if settings.FetchAttempts < 1 {
		settings.FetchAttempts = 1
	}

	w := &Workflow{
		client:   client,
		settings: settings,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.GetLogger()
	}
	if w.runID != "" {
		w.logger = w.logger.WithField("run_id", w.runID)
	}
	return w
}

// Run executes the workflow. Authentication and fetch failures are fatal
// and returned as *AuthenticationError or *FetchError alongside the partial
// result. Per-account unfollow failures only show up in the counters.
// Once logged in, logout is attempted on every return path.
func (w *Workflow) Run(ctx context.Context, creds Credentials) (result *Result, err error) {
	result = &Result{
		RunID:     w.runID,
		DryRun:    w.settings.DryRun,
		State:     StateIdle,
		StartedAt: time.Now(),
	}
	defer func() {
		result.Duration = time.Since(result.StartedAt)
		if err != nil {
			w.enter(result, StateFailed, err)
		}
	}()

	if missing := creds.Missing(); len(missing) > 0 {
		return result, &ConfigurationError{Missing: missing}
	}

	w.enter(result, StateAuthenticating, nil)
	if err := w.client.Login(ctx, creds.Username, creds.Password); err != nil {
		return result, &AuthenticationError{Err: err}
	}
	defer w.logout(ctx)

	userID, err := w.client.CurrentUserID()
	if err != nil {
		return result, &AuthenticationError{Err: err}
	}

	w.enter(result, StateFetchingFollowers, nil)
	followers, err := w.fetch(ctx, "followers", userID, w.client.FetchFollowers)
	if err != nil {
		return result, err
	}
	result.TotalFollowers = followers.Len()

	w.enter(result, StateFetchingFollowing, nil)
	following, err := w.fetch(ctx, "following", userID, w.client.FetchFollowing)
	if err != nil {
		return result, err
	}
	result.TotalFollowing = following.Len()

	w.enter(result, StateComputingDiff, nil)
	result.Accounts = NonReciprocal(followers, following)
	result.NonReciprocalCount = len(result.Accounts)

	w.logger.InfoWithFields("Computed non-reciprocal accounts", map[string]interface{}{
		"followers":      result.TotalFollowers,
		"following":      result.TotalFollowing,
		"non_reciprocal": result.NonReciprocalCount,
	})

	switch {
	case result.NonReciprocalCount == 0:
		result.NoActionNeeded = true
	case w.settings.DryRun:
		w.list(result)
	default:
		w.enter(result, StateUnfollowing, nil)
		if err := w.unfollowAll(ctx, result); err != nil {
			return result, err
		}
	}

	result.Success = true
	w.enter(result, StateDone, nil)
	logger.LogRunSummary(w.logger, result.TotalFollowing, result.TotalFollowers,
		result.NonReciprocalCount, result.Unfollowed, result.Failed, time.Since(result.StartedAt))
	return result, nil
}

// fetch loads one relation list, retrying every failure except cancellation
func (w *Workflow) fetch(ctx context.Context, which, userID string, fn func(context.Context, string) (*models.Relations, error)) (*models.Relations, error) {
	var (
		lastErr  error
		attempts int
	)

	relations, err := retry.DoWithResult(func() (*models.Relations, error) {
		attempts++
		rel, err := fn(ctx, userID)
		lastErr = err
		return rel, err
	}, &retry.Config{
		MaxAttempts: w.settings.FetchAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: w.settings.FetchRetryDelay},
		RetryIf:     retry.RetryUnlessCancelled,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			metrics.FetchRetries.WithLabelValues(which).Inc()
		},
		Context: ctx,
		Logger:  w.logger.WithField("relation", which),
	})
	if err != nil {
		if ctx.Err() != nil {
			lastErr = err
		}
		return nil, &FetchError{Which: which, Attempts: attempts, Err: lastErr}
	}
	if relations == nil {
		relations = models.NewRelations()
	}
	return relations, nil
}

// unfollowAll walks the non-reciprocal accounts in order. A failed account
// is counted and skipped; only a cancelled context stops the loop.
func (w *Workflow) unfollowAll(ctx context.Context, result *Result) error {
	if err := retry.Wait(ctx, w.settings.SettleDelay); err != nil {
		return err
	}

	jitter := &retry.UniformJitter{Min: w.settings.MinDelay, Max: w.settings.MaxDelay, Rand: w.random}
	total := len(result.Accounts)

	for i, account := range result.Accounts {
		index := i + 1

		var pause time.Duration
		if err := w.client.Unfollow(ctx, account.ID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			unfollowErr := &UnfollowError{Account: account, Err: err}
			result.Failed++
			result.FailedAccounts = append(result.FailedAccounts, account)
			metrics.AccountsTotal.WithLabelValues("failed").Inc()
			logger.LogUnfollow(w.logger, account.Username, account.ID, index, total, unfollowErr)
			w.emit(Event{State: StateUnfollowing, Account: &account, Index: index, Total: total, Err: unfollowErr})
			pause = w.settings.FailureDelay
		} else {
			result.Unfollowed++
			metrics.AccountsTotal.WithLabelValues("unfollowed").Inc()
			logger.LogUnfollow(w.logger, account.Username, account.ID, index, total, nil)
			w.emit(Event{State: StateUnfollowing, Account: &account, Index: index, Total: total})
			pause = jitter.NextDelay(index)
		}

		if err := retry.Wait(ctx, pause); err != nil {
			return err
		}
	}

	return nil
}

// list reports the non-reciprocal accounts without touching them
func (w *Workflow) list(result *Result) {
	total := len(result.Accounts)
	for i, account := range result.Accounts {
		metrics.AccountsTotal.WithLabelValues("listed").Inc()
		w.logger.InfoWithFields("Would unfollow account", map[string]interface{}{
			"username":   account.Username,
			"account_id": account.ID,
		})
		w.emit(Event{State: StateComputingDiff, Account: &account, Index: i + 1, Total: total})
	}
}

// logout ends the session, ignoring failures. It still runs when ctx has
// been cancelled.
func (w *Workflow) logout(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()

	if err := w.client.Logout(ctx); err != nil {
		metrics.LogoutFailures.Inc()
		w.logger.WithError(&LogoutError{Err: err}).Warn("Logout failed, ignoring")
	}
}

func (w *Workflow) enter(result *Result, state State, err error) {
	if result.State == state {
		return
	}
	result.State = state
	w.logger.DebugWithFields("Workflow state changed", map[string]interface{}{
		"state": string(state),
	})
	w.emit(Event{State: state, Err: err})
}

func (w *Workflow) emit(e Event) {
	if w.observer == nil {
		return
	}
	e.RunID = w.runID
	w.observer(e)
}
