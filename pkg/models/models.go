package models

// Account is a single Instagram profile as returned by the friendships endpoints
type Account struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name,omitempty"`
	IsPrivate  bool   `json:"is_private"`
	IsVerified bool   `json:"is_verified"`
}

// Relations maps account IDs to accounts, remembering the order in which
// accounts were added. Iteration order is the order the API returned them.
type Relations struct {
	order    []string
	accounts map[string]Account
}

// NewRelations creates an empty relation mapping
func NewRelations() *Relations {
	return &Relations{accounts: make(map[string]Account)}
}

// RelationsOf builds a mapping from the given accounts, in order
func RelationsOf(accounts ...Account) *Relations {
	r := NewRelations()
	for _, a := range accounts {
		r.Add(a)
	}
	return r
}

// Add inserts an account. Re-adding a known ID updates the stored account
// but keeps its original position.
func (r *Relations) Add(a Account) {
	if r.accounts == nil {
		r.accounts = make(map[string]Account)
	}
	if _, ok := r.accounts[a.ID]; !ok {
		r.order = append(r.order, a.ID)
	}
	r.accounts[a.ID] = a
}

// Get returns the account stored under id
func (r *Relations) Get(id string) (Account, bool) {
	if r == nil {
		return Account{}, false
	}
	a, ok := r.accounts[id]
	return a, ok
}

// Has reports whether id is present
func (r *Relations) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Len returns the number of accounts
func (r *Relations) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// IDs returns the account IDs in insertion order
func (r *Relations) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Accounts returns the accounts in insertion order
func (r *Relations) Accounts() []Account {
	if r == nil {
		return nil
	}
	out := make([]Account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.accounts[id])
	}
	return out
}
