package instagram

import (
	"bytes"
	"encoding/json"
	"fmt"

	"igunfollow/pkg/models"
)

// FlexibleID decodes an identifier Instagram sends either as a JSON number
// or as a string. null decodes to the empty string.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

// statusResponse is the envelope shared by Instagram's JSON endpoints
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// friendshipsResponse is one page of a followers or following list
type friendshipsResponse struct {
	statusResponse
	Users     []friendshipUser `json:"users"`
	NextMaxID FlexibleID       `json:"next_max_id"`
	BigList   bool             `json:"big_list"`
	PageSize  int              `json:"page_size"`
}

type friendshipUser struct {
	PK         FlexibleID `json:"pk"`
	PKID       string     `json:"pk_id"`
	Username   string     `json:"username"`
	FullName   string     `json:"full_name"`
	IsPrivate  bool       `json:"is_private"`
	IsVerified bool       `json:"is_verified"`
}

func (u friendshipUser) toAccount() models.Account {
	id := u.PK.String()
	if id == "" {
		id = u.PKID
	}
	return models.Account{
		ID:         id,
		Username:   u.Username,
		FullName:   u.FullName,
		IsPrivate:  u.IsPrivate,
		IsVerified: u.IsVerified,
	}
}

// loginResponse is the reply to the login form
type loginResponse struct {
	statusResponse
	Authenticated     bool       `json:"authenticated"`
	User              bool       `json:"user"`
	UserID            FlexibleID `json:"userId"`
	CheckpointURL     string     `json:"checkpoint_url"`
	TwoFactorRequired bool       `json:"two_factor_required"`
	ErrorType         string     `json:"error_type"`
}

// profileResponse is the web_profile_info reply
type profileResponse struct {
	statusResponse
	RequiresToLogin bool `json:"requires_to_login"`
	Data            struct {
		User struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	} `json:"data"`
}
