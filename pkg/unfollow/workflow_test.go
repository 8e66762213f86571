package unfollow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/pkg/logger"
	"igunfollow/pkg/models"
)

var testCreds = Credentials{Username: "someone", Password: "hunter2"}

func fastSettings() Settings {
	return Settings{
		FetchAttempts:   3,
		FetchRetryDelay: time.Millisecond,
		SettleDelay:     time.Millisecond,
		MinDelay:        time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		FailureDelay:    time.Millisecond,
	}
}

func accounts(ids ...string) *models.Relations {
	r := models.NewRelations()
	for _, id := range ids {
		r.Add(models.Account{ID: id, Username: "user_" + id})
	}
	return r
}

func TestNonReciprocal(t *testing.T) {
	tests := []struct {
		name      string
		followers *models.Relations
		following *models.Relations
		want      []string
	}{
		{"everyone follows back", accounts("a", "b"), accounts("a", "b"), nil},
		{"keeps following order", accounts("b"), accounts("d", "a", "b", "c"), []string{"d", "a", "c"}},
		{"no followers", accounts(), accounts("x", "y"), []string{"x", "y"}},
		{"followers only", accounts("x", "y"), accounts(), nil},
		{"nil followers", nil, accounts("x"), []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, a := range NonReciprocal(tt.followers, tt.following) {
				got = append(got, a.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunEmptyDiffShortCircuits(t *testing.T) {
	client := newFakeClient()
	client.followers = accounts("A", "B")
	client.following = accounts("A", "B")

	var states []State
	wf := New(client, fastSettings(), WithLogger(logger.NewTestLogger()), WithObserver(func(e Event) {
		if e.Account == nil {
			states = append(states, e.State)
		}
	}))

	result, err := wf.Run(context.Background(), testCreds)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.NoActionNeeded)
	assert.Equal(t, 0, result.Unfollowed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.NonReciprocalCount)
	assert.Equal(t, 2, result.TotalFollowers)
	assert.Equal(t, 2, result.TotalFollowing)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 0, client.count("unfollow:A")+client.count("unfollow:B"))
	assert.Equal(t, 1, client.logoutCalled)

	assert.Equal(t, []State{StateAuthenticating, StateFetchingFollowers, StateFetchingFollowing, StateComputingDiff, StateDone}, states)
}

func TestRunPartialFailure(t *testing.T) {
	client := newFakeClient()
	client.followers = accounts("keep")
	client.following = accounts("keep", "n1", "n2", "n3")
	client.unfollowErr["n2"] = errors.New("feedback_required")

	log := logger.NewTestLogger()
	var perAccount []Event
	wf := New(client, fastSettings(), WithLogger(log), WithRunID("run-1"), WithObserver(func(e Event) {
		if e.Account != nil {
			perAccount = append(perAccount, e)
		}
	}))

	result, err := wf.Run(context.Background(), testCreds)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 3, result.NonReciprocalCount)
	assert.Equal(t, 2, result.Unfollowed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.FailedAccounts, 1)
	assert.Equal(t, "n2", result.FailedAccounts[0].ID)
	assert.Equal(t, []string{"n1", "n3"}, client.unfollowed)
	assert.Equal(t, 1, client.logoutCalled)
	assert.Equal(t, "logout", client.calls[len(client.calls)-1])

	require.Len(t, perAccount, 3)
	assert.Equal(t, 2, perAccount[1].Index)
	assert.Equal(t, 3, perAccount[1].Total)
	var unfollowErr *UnfollowError
	require.ErrorAs(t, perAccount[1].Err, &unfollowErr)
	assert.Equal(t, "n2", unfollowErr.Account.ID)
	assert.Equal(t, "run-1", perAccount[0].RunID)

	warns := log.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "Unfollow failed", warns[0].Message)
	assert.Equal(t, "run-1", warns[0].Fields["run_id"])
}

func TestRunFetchRetryExhaustion(t *testing.T) {
	client := newFakeClient()
	client.followersErr = []error{errors.New("timeout 1"), errors.New("timeout 2"), errors.New("timeout 3")}

	wf := New(client, fastSettings(), WithLogger(logger.NewTestLogger()))
	result, err := wf.Run(context.Background(), testCreds)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "followers", fetchErr.Which)
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Equal(t, "failed to get followers: timeout 3", err.Error())

	assert.Equal(t, 3, client.count("followers"))
	assert.Equal(t, 0, client.count("following"))
	assert.Equal(t, 1, client.logoutCalled, "logout is still attempted after a fetch failure")
	assert.False(t, result.Success)
	assert.Equal(t, StateFailed, result.State)
}

func TestRunFetchRecoversWithinAttempts(t *testing.T) {
	client := newFakeClient()
	client.followers = accounts("a")
	client.following = accounts("a", "b")
	client.followingErr = []error{errors.New("502"), errors.New("502")}

	wf := New(client, fastSettings(), WithLogger(logger.NewTestLogger()))
	result, err := wf.Run(context.Background(), testCreds)
	require.NoError(t, err)

	assert.Equal(t, 3, client.count("following"))
	assert.Equal(t, 1, result.Unfollowed)
}

func TestRunFollowingFailureNamesFollowing(t *testing.T) {
	client := newFakeClient()
	client.followingErr = []error{errors.New("x"), errors.New("x"), errors.New("rate limited")}

	wf := New(client, fastSettings(), WithLogger(logger.NewTestLogger()))
	_, err := wf.Run(context.Background(), testCreds)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "following", fetchErr.Which)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRunAuthenticationFailure(t *testing.T) {
	client := newFakeClient()
	client.loginErr = errors.New("The password you entered is incorrect.")

	wf := New(client, fastSettings(), WithLogger(logger.NewTestLogger()))
	result, err := wf.Run(context.Background(), testCreds)

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "The password you entered is incorrect.", err.Error())
	assert.Equal(t, []string{"login"}, client.calls, "no fetch and no logout without a session")
	assert.Equal(t, StateFailed, result.State)
}

func TestRunMissingCredentials(t *testing.T) {
	client := newFakeClient()
	wf := New(client, fastSettings(), WithLogger(logger.NewTestLogger()))

	_, err := wf.Run(context.Background(), Credentials{Username: "someone"})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"IG_password"}, cfgErr.Missing)
	assert.Empty(t, client.calls)
}

func TestRunLogoutErrorIsSwallowed(t *testing.T) {
	client := newFakeClient()
	client.followers = accounts("a")
	client.following = accounts("a")
	client.logoutErr = errors.New("session gone")

	log := logger.NewTestLogger()
	wf := New(client, fastSettings(), WithLogger(log))
	result, err := wf.Run(context.Background(), testCreds)

	require.NoError(t, err)
	assert.True(t, result.Success)

	var logoutLogged bool
	for _, msg := range log.GetMessagesByLevel("WARN") {
		var logoutErr *LogoutError
		if errors.As(msg.Error, &logoutErr) {
			logoutLogged = true
		}
	}
	assert.True(t, logoutLogged)
}

func TestRunDryRunListsWithoutUnfollowing(t *testing.T) {
	client := newFakeClient()
	client.followers = accounts("a")
	client.following = accounts("a", "b", "c")

	settings := fastSettings()
	settings.DryRun = true

	var listed []string
	wf := New(client, settings, WithLogger(logger.NewTestLogger()), WithObserver(func(e Event) {
		if e.Account != nil {
			listed = append(listed, e.Account.Username)
		}
	}))

	result, err := wf.Run(context.Background(), testCreds)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.NonReciprocalCount)
	assert.Equal(t, 0, result.Unfollowed)
	assert.Empty(t, client.unfollowed)
	assert.Equal(t, []string{"user_b", "user_c"}, listed)
	assert.Equal(t, 1, client.logoutCalled)
}

func TestRunPacing(t *testing.T) {
	client := newFakeClient()
	client.following = accounts("a", "b")
	client.unfollowErr["b"] = errors.New("nope")

	settings := Settings{
		FetchAttempts: 1,
		SettleDelay:   30 * time.Millisecond,
		MinDelay:      40 * time.Millisecond,
		MaxDelay:      80 * time.Millisecond,
		FailureDelay:  100 * time.Millisecond,
	}
	wf := New(client, settings, WithLogger(logger.NewTestLogger()), WithRandom(func() float64 { return 0.5 }))

	start := time.Now()
	result, err := wf.Run(context.Background(), testCreds)
	require.NoError(t, err)

	// settle 30ms + jitter 60ms + failure 100ms
	assert.GreaterOrEqual(t, time.Since(start), 190*time.Millisecond)
	assert.GreaterOrEqual(t, result.Duration, 190*time.Millisecond)
}

func TestRunCancelledDuringUnfollow(t *testing.T) {
	client := newFakeClient()
	client.following = accounts("a", "b", "c")

	settings := fastSettings()
	settings.MinDelay = time.Hour
	settings.MaxDelay = 2 * time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	wf := New(client, settings, WithLogger(logger.NewTestLogger()), WithObserver(func(e Event) {
		if e.Account != nil {
			cancel()
		}
	}))

	result, err := wf.Run(ctx, testCreds)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, result.Unfollowed)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 1, client.logoutCalled, "logout runs even after cancellation")
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateUnfollowing.Terminal())
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 3, s.FetchAttempts)
	assert.Equal(t, 2*time.Second, s.FetchRetryDelay)
	assert.Equal(t, 3*time.Second, s.SettleDelay)
	assert.Equal(t, 4*time.Second, s.MinDelay)
	assert.Equal(t, 8*time.Second, s.MaxDelay)
	assert.Equal(t, 10*time.Second, s.FailureDelay)
}
