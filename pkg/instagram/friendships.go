package instagram

import (
	"context"
	"net/url"

	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/models"
	"igunfollow/pkg/retry"
)

// FetchFollowers returns every account following userID, in API order
func (c *Client) FetchFollowers(ctx context.Context, userID string) (*models.Relations, error) {
	return c.fetchRelations(ctx, userID, RelationFollowers)
}

// FetchFollowing returns every account userID follows, in API order
func (c *Client) FetchFollowing(ctx context.Context, userID string) (*models.Relations, error) {
	return c.fetchRelations(ctx, userID, RelationFollowing)
}

// fetchRelations walks the friendships pages, following next_max_id until
// Instagram stops returning one, pausing pageDelay between pages
func (c *Client) fetchRelations(ctx context.Context, userID string, relation Relation) (*models.Relations, error) {
	relations := models.NewRelations()
	seen := map[string]bool{}
	maxID := ""

	for page := 1; ; page++ {
		var resp friendshipsResponse
		if err := c.getJSON(ctx, FriendshipsURL(c.baseURL, userID, relation, c.pageSize, maxID), string(relation), &resp); err != nil {
			return nil, err
		}
		if resp.Status == "fail" {
			return nil, errs.New(errs.ErrorTypeRejected, 0, "failed to load %s: %s", relation, resp.Message)
		}

		for _, u := range resp.Users {
			relations.Add(u.toAccount())
		}
		logger.LogFetchProgress(c.logger, string(relation), relations.Len(), page)

		next := resp.NextMaxID.String()
		if next == "" || seen[next] {
			break
		}
		seen[next] = true
		maxID = next

		if err := retry.Wait(ctx, c.pageDelay); err != nil {
			return nil, err
		}
	}

	return relations, nil
}

// Unfollow stops following the given account
func (c *Client) Unfollow(ctx context.Context, accountID string) error {
	if _, err := c.CurrentUserID(); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("user_id", accountID)

	var resp statusResponse
	if err := c.postForm(ctx, DestroyURL(c.baseURL, accountID), "unfollow", form, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return errs.New(errs.ErrorTypeRejected, 0, "unfollow of %s rejected: %s", accountID, resp.Message)
	}
	return nil
}
