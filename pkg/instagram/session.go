package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	errs "igunfollow/pkg/errors"
)

// ErrNotLoggedIn is returned by calls that need a session before Login succeeded
var ErrNotLoggedIn = errs.New(errs.ErrorTypeAuth, 0, "not logged in")

// Login opens a web session. It first loads the login page to obtain a CSRF
// token, then submits the credentials. Two-factor and checkpoint challenges
// are reported as checkpoint errors since they need a human.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if err := c.loadLoginPage(ctx); err != nil {
		return err
	}
	if c.csrfToken() == "" {
		return errs.New(errs.ErrorTypeAuth, 0, "login page did not set a csrf token")
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	var resp loginResponse
	if err := c.postForm(ctx, c.baseURL+LoginEndpoint, "login", form, &resp); err != nil {
		return err
	}

	switch {
	case resp.TwoFactorRequired:
		return errs.New(errs.ErrorTypeCheckpoint, 0, "two-factor authentication required for %s", username)
	case resp.CheckpointURL != "" || resp.Message == "checkpoint_required":
		return errs.New(errs.ErrorTypeCheckpoint, 0, "Instagram requires a security checkpoint for %s", username)
	case !resp.Authenticated && !resp.User:
		return errs.New(errs.ErrorTypeAuth, 0, "unknown username %s", username)
	case !resp.Authenticated:
		return errs.New(errs.ErrorTypeAuth, 0, "incorrect password for %s", username)
	}

	userID := resp.UserID.String()
	if userID == "" {
		id, err := c.FetchProfileID(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to resolve user id: %w", err)
		}
		userID = id
	}

	c.mu.Lock()
	c.userID = userID
	c.username = username
	c.mu.Unlock()

	c.logger.InfoWithFields("Logged in to Instagram", map[string]interface{}{
		"username": username,
		"user_id":  userID,
	})
	return nil
}

func (c *Client) loadLoginPage(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+LoginPageEndpoint, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req, "login_page")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CurrentUserID returns the numeric ID of the logged-in account
func (c *Client) CurrentUserID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.userID == "" {
		return "", ErrNotLoggedIn
	}
	return c.userID, nil
}

// Logout ends the session. The local session is forgotten even when the
// request fails.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	userID := c.userID
	c.userID = ""
	c.username = ""
	c.mu.Unlock()

	if userID == "" {
		return nil
	}

	form := url.Values{}
	form.Set("one_tap_app_login", "0")
	form.Set("user_id", userID)

	var resp statusResponse
	if err := c.postForm(ctx, c.baseURL+LogoutEndpoint, "logout", form, &resp); err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "ok" {
		return errs.New(errs.ErrorTypeRejected, 0, "logout rejected: %s", resp.Message)
	}

	c.logger.DebugWithFields("Logged out of Instagram", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

// FetchProfileID looks up the numeric ID behind a username
func (c *Client) FetchProfileID(ctx context.Context, username string) (string, error) {
	var resp profileResponse
	if err := c.getJSON(ctx, ProfileURL(c.baseURL, username), "profile", &resp); err != nil {
		return "", err
	}

	if resp.RequiresToLogin {
		return "", errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "Instagram requires authentication to view %s", username)
	}
	if resp.Data.User.ID == "" {
		return "", errs.New(errs.ErrorTypeNotFound, http.StatusNotFound, "profile %s not found", username)
	}
	return resp.Data.User.ID, nil
}
