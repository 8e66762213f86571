package unfollow

import "igunfollow/pkg/models"

// NonReciprocal returns the accounts in following that are absent from
// followers, in following's order
func NonReciprocal(followers, following *models.Relations) []models.Account {
	var out []models.Account
	for _, account := range following.Accounts() {
		if !followers.Has(account.ID) {
			out = append(out, account)
		}
	}
	return out
}
