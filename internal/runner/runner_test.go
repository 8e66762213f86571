package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/internal/worker"
	"igunfollow/pkg/cooldown"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/metrics"
	"igunfollow/pkg/models"
	"igunfollow/pkg/unfollow"
)

type stubClient struct {
	loginErr     error
	loginGate    chan struct{}
	followers    *models.Relations
	following    *models.Relations
	followersErr error
	fetches      atomic.Int32
	unfollowed   atomic.Int32
	loggedOut    atomic.Bool
}

func (c *stubClient) Login(ctx context.Context, username, password string) error {
	if c.loginGate != nil {
		select {
		case <-c.loginGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.loginErr
}

func (c *stubClient) CurrentUserID() (string, error) { return "42", nil }

func (c *stubClient) FetchFollowers(ctx context.Context, userID string) (*models.Relations, error) {
	c.fetches.Add(1)
	if c.followersErr != nil {
		return nil, c.followersErr
	}
	return c.followers, nil
}

func (c *stubClient) FetchFollowing(ctx context.Context, userID string) (*models.Relations, error) {
	return c.following, nil
}

func (c *stubClient) Unfollow(ctx context.Context, accountID string) error {
	c.unfollowed.Add(1)
	return nil
}

func (c *stubClient) Logout(ctx context.Context) error {
	c.loggedOut.Store(true)
	return nil
}

func newStubClient() *stubClient {
	return &stubClient{
		followers: models.RelationsOf(models.Account{ID: "1", Username: "mutual"}),
		following: models.RelationsOf(
			models.Account{ID: "1", Username: "mutual"},
			models.Account{ID: "2", Username: "one_way"},
		),
	}
}

type harness struct {
	runner  *Runner
	clock   clockwork.FakeClock
	pool    *worker.Pool
	clients atomic.Int32
}

func newHarness(t *testing.T, client *stubClient, creds unfollow.Credentials) *harness {
	t.Helper()

	h := &harness{clock: clockwork.NewFakeClock()}
	log := logger.NewTestLogger()

	h.pool = worker.NewPool(1, 1, log)
	h.pool.Start(context.Background())
	t.Cleanup(h.pool.Stop)

	h.runner = New(Options{
		Credentials: func(ctx context.Context) (unfollow.Credentials, error) {
			return creds, nil
		},
		NewClient: func() (unfollow.Client, error) {
			h.clients.Add(1)
			return client, nil
		},
		Gate:     cooldown.NewGate(cooldown.Options{Clock: h.clock}),
		Pool:     h.pool,
		Settings: unfollow.Settings{FetchAttempts: 1},
		Logger:   log,
		Clock:    h.clock,
		NewRunID: func() string { return "run-1" },
	})
	return h
}

var validCreds = unfollow.Credentials{Username: "me", Password: "secret"}

func TestInvokeMissingCredentials(t *testing.T) {
	h := newHarness(t, newStubClient(), unfollow.Credentials{Username: "me"})

	outcome := h.runner.Invoke(context.Background(), Request{Invoker: "u1"})

	assert.Equal(t, StatusConfigError, outcome.Status)
	var cfgErr *unfollow.ConfigurationError
	require.ErrorAs(t, outcome.Err, &cfgErr)
	assert.Len(t, cfgErr.Missing, 1)
	assert.Zero(t, h.clients.Load(), "no client should be created")
	assert.False(t, h.runner.Gate().Check().Blocked())
}

func TestInvokeCredentialSourceError(t *testing.T) {
	h := newHarness(t, newStubClient(), validCreds)
	h.runner.credentials = func(ctx context.Context) (unfollow.Credentials, error) {
		return unfollow.Credentials{}, errors.New("keyring locked")
	}

	outcome := h.runner.Invoke(context.Background(), Request{Invoker: "u1"})

	assert.Equal(t, StatusConfigError, outcome.Status)
	assert.Zero(t, h.clients.Load())
}

func TestInvokeSuccessStartsCooldown(t *testing.T) {
	client := newStubClient()
	h := newHarness(t, client, validCreds)

	var accepted string
	outcome := h.runner.Invoke(context.Background(), Request{
		Invoker:    "u1",
		OnAccepted: func(runID string) { accepted = runID },
	})

	require.Equal(t, StatusCompleted, outcome.Status, "err: %v", outcome.Err)
	assert.Equal(t, "run-1", accepted)
	assert.Equal(t, "run-1", outcome.RunID)
	assert.Equal(t, 1, outcome.Result.Unfollowed)
	assert.Equal(t, cooldown.DefaultDuration, outcome.CooldownDuration)
	assert.EqualValues(t, 1, client.unfollowed.Load())

	h.clock.Advance(time.Hour)
	second := h.runner.Invoke(context.Background(), Request{Invoker: "u2"})

	assert.Equal(t, StatusCooldown, second.Status)
	assert.Equal(t, "u1", second.Gate.LastUser)
	assert.Equal(t, 23*time.Hour, second.Gate.Remaining)
	assert.EqualValues(t, 1, h.clients.Load(), "refused run must not create a client")
}

func TestInvokeAllowedAfterCooldownElapses(t *testing.T) {
	h := newHarness(t, newStubClient(), validCreds)

	require.Equal(t, StatusCompleted, h.runner.Invoke(context.Background(), Request{Invoker: "u1"}).Status)

	h.clock.Advance(cooldown.DefaultDuration)
	outcome := h.runner.Invoke(context.Background(), Request{Invoker: "u2"})

	assert.Equal(t, StatusCompleted, outcome.Status)
	assert.Equal(t, "u2", h.runner.Gate().Check().LastUser)
}

func TestInvokeFailureDoesNotStartCooldown(t *testing.T) {
	client := newStubClient()
	client.loginErr = errors.New("incorrect password")
	h := newHarness(t, client, validCreds)

	outcome := h.runner.Invoke(context.Background(), Request{Invoker: "u1"})

	assert.Equal(t, StatusFailed, outcome.Status)
	var authErr *unfollow.AuthenticationError
	require.ErrorAs(t, outcome.Err, &authErr)
	assert.Equal(t, "incorrect password", authErr.Error())
	assert.False(t, h.runner.Gate().Check().Blocked())

	client.loginErr = nil
	assert.Equal(t, StatusCompleted, h.runner.Invoke(context.Background(), Request{Invoker: "u1"}).Status)
}

func TestInvokeFetchRetriesExhaustedDoesNotStartCooldown(t *testing.T) {
	client := newStubClient()
	client.followersErr = errors.New("feedback_required")
	h := newHarness(t, client, validCreds)
	h.runner.settings = unfollow.Settings{FetchAttempts: 3}

	outcome := h.runner.Invoke(context.Background(), Request{Invoker: "u1"})

	assert.Equal(t, StatusFailed, outcome.Status)
	var fetchErr *unfollow.FetchError
	require.ErrorAs(t, outcome.Err, &fetchErr)
	assert.Equal(t, "followers", fetchErr.Which)
	assert.Contains(t, outcome.Err.Error(), "failed to get followers")
	assert.EqualValues(t, 3, client.fetches.Load())
	assert.Zero(t, client.unfollowed.Load())
	assert.True(t, client.loggedOut.Load(), "logout follows a successful login")
	assert.False(t, h.runner.Gate().Check().Blocked())
}

func TestInvokeFailureStartsCooldownWhenConfigured(t *testing.T) {
	client := newStubClient()
	client.loginErr = errors.New("incorrect password")
	h := newHarness(t, client, validCreds)
	h.runner.gate = cooldown.NewGate(cooldown.Options{Clock: h.clock, OnFailure: true})

	require.Equal(t, StatusFailed, h.runner.Invoke(context.Background(), Request{Invoker: "u1"}).Status)

	assert.Equal(t, StatusCooldown, h.runner.Invoke(context.Background(), Request{Invoker: "u1"}).Status)
}

func TestInvokeDryRunDoesNotConsumeCooldown(t *testing.T) {
	client := newStubClient()
	h := newHarness(t, client, validCreds)

	outcome := h.runner.Invoke(context.Background(), Request{Invoker: "u1", DryRun: true})

	require.Equal(t, StatusCompleted, outcome.Status)
	assert.True(t, outcome.Result.DryRun)
	assert.Equal(t, 1, outcome.Result.NonReciprocalCount)
	assert.Zero(t, client.unfollowed.Load())
	assert.False(t, h.runner.Gate().Check().Blocked())
}

func TestInvokeBusyWhileRunning(t *testing.T) {
	client := newStubClient()
	client.loginGate = make(chan struct{})
	h := newHarness(t, client, validCreds)

	accepted := make(chan struct{})
	var (
		wg    sync.WaitGroup
		first Outcome
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = h.runner.Invoke(context.Background(), Request{
			Invoker:    "u1",
			OnAccepted: func(string) { close(accepted) },
		})
	}()
	<-accepted

	second := h.runner.Invoke(context.Background(), Request{Invoker: "u2"})
	assert.Equal(t, StatusBusy, second.Status)
	assert.True(t, second.Gate.InProgress)
	assert.Equal(t, "u1", second.Gate.LastUser)

	close(client.loginGate)
	wg.Wait()
	assert.Equal(t, StatusCompleted, first.Status)
}

func TestInvokeCallerGivesUpRunStillSettlesGate(t *testing.T) {
	client := newStubClient()
	client.loginGate = make(chan struct{})
	h := newHarness(t, client, validCreds)

	ctx, cancel := context.WithCancel(context.Background())
	outcome := h.runner.Invoke(ctx, Request{
		Invoker:    "u1",
		OnAccepted: func(string) { cancel() },
	})
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
	assert.Equal(t, StatusBusy, h.runner.Invoke(context.Background(), Request{Invoker: "u2"}).Status)

	close(client.loginGate)
	assert.Eventually(t, func() bool {
		return h.runner.Gate().Check().OnCooldown
	}, time.Second, 5*time.Millisecond)
}

func TestInvokePoolStoppedReleasesGate(t *testing.T) {
	h := newHarness(t, newStubClient(), validCreds)
	h.pool.Stop()

	outcome := h.runner.Invoke(context.Background(), Request{Invoker: "u1"})

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, worker.ErrPoolStopped)
	assert.False(t, h.runner.Gate().Check().Blocked())
}

func TestInvokeRecordsMetrics(t *testing.T) {
	h := newHarness(t, newStubClient(), validCreds)

	completed := testutil.ToFloat64(metrics.InvocationsTotal.WithLabelValues(string(StatusCompleted)))
	rejected := testutil.ToFloat64(metrics.GateRejections.WithLabelValues("cooldown"))

	h.runner.Invoke(context.Background(), Request{Invoker: "u1"})
	h.runner.Invoke(context.Background(), Request{Invoker: "u1"})

	assert.Equal(t, completed+1, testutil.ToFloat64(metrics.InvocationsTotal.WithLabelValues(string(StatusCompleted))))
	assert.Equal(t, rejected+1, testutil.ToFloat64(metrics.GateRejections.WithLabelValues("cooldown")))
}
