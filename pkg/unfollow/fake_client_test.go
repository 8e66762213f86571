package unfollow

import (
	"context"
	"errors"
	"sync"

	"igunfollow/pkg/models"
)

// fakeClient scripts an Instagram session for workflow tests
type fakeClient struct {
	mu sync.Mutex

	loginErr     error
	userID       string
	followers    *models.Relations
	following    *models.Relations
	followersErr []error // consumed per call, nil entries succeed
	followingErr []error
	unfollowErr  map[string]error
	logoutErr    error

	calls        []string
	unfollowed   []string
	logoutCalled int
	loggedIn     bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		userID:      "42",
		followers:   models.NewRelations(),
		following:   models.NewRelations(),
		unfollowErr: map[string]error{},
	}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) Login(ctx context.Context, username, password string) error {
	f.record("login")
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}

func (f *fakeClient) CurrentUserID() (string, error) {
	if !f.loggedIn {
		return "", errors.New("not logged in")
	}
	return f.userID, nil
}

func next(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeClient) FetchFollowers(ctx context.Context, userID string) (*models.Relations, error) {
	f.record("followers")
	if err := next(&f.followersErr); err != nil {
		return nil, err
	}
	return f.followers, nil
}

func (f *fakeClient) FetchFollowing(ctx context.Context, userID string) (*models.Relations, error) {
	f.record("following")
	if err := next(&f.followingErr); err != nil {
		return nil, err
	}
	return f.following, nil
}

func (f *fakeClient) Unfollow(ctx context.Context, accountID string) error {
	f.record("unfollow:" + accountID)
	if err := f.unfollowErr[accountID]; err != nil {
		return err
	}
	f.mu.Lock()
	f.unfollowed = append(f.unfollowed, accountID)
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.record("logout")
	f.mu.Lock()
	f.logoutCalled++
	f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeClient) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}
