package instagram

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the base URL for Instagram
	DefaultBaseURL = "https://www.instagram.com"

	// DefaultAppID is the web client's X-IG-App-ID header value
	DefaultAppID = "936619743392459"

	// LoginPageEndpoint serves the login form and sets the csrftoken cookie
	LoginPageEndpoint = "/accounts/login/"

	// LoginEndpoint accepts the login form
	LoginEndpoint = "/api/v1/web/accounts/login/ajax/"

	// LogoutEndpoint ends the web session
	LogoutEndpoint = "/api/v1/web/accounts/logout/ajax/"

	// ProfileEndpoint is the endpoint pattern for user profiles
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// DestroyEndpoint is the endpoint pattern for unfollowing an account
	DestroyEndpoint = "/api/v1/friendships/destroy/%s/"

	// DefaultPageSize is the number of accounts requested per friendships page
	DefaultPageSize = 50

	// MaxPageSize is the largest page Instagram honours
	MaxPageSize = 200
)

// Relation names one side of the friendship graph
type Relation string

const (
	RelationFollowers Relation = "followers"
	RelationFollowing Relation = "following"
)

// ProfileURL constructs the URL for fetching a user's profile
func ProfileURL(baseURL, username string) string {
	params := url.Values{}
	params.Set("username", username)

	return fmt.Sprintf("%s%s?%s", baseURL, ProfileEndpoint, params.Encode())
}

// FriendshipsURL constructs the URL for one page of a user's followers or
// following list. An empty maxID requests the first page.
func FriendshipsURL(baseURL, userID string, relation Relation, pageSize int, maxID string) string {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	} else if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	params := url.Values{}
	params.Set("count", strconv.Itoa(pageSize))
	if maxID != "" {
		params.Set("max_id", maxID)
	}

	return fmt.Sprintf("%s/api/v1/friendships/%s/%s/?%s", baseURL, url.PathEscape(userID), relation, params.Encode())
}

// DestroyURL constructs the URL that unfollows the given account
func DestroyURL(baseURL, accountID string) string {
	return baseURL + fmt.Sprintf(DestroyEndpoint, url.PathEscape(accountID))
}

// UserProfileURL constructs the public profile URL for a user
func UserProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", DefaultBaseURL, username)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @ and surrounding whitespace or slashes
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}
