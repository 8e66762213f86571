package auth

import "sync"

// mockStore is an in-memory CredentialStore with error injection
type mockStore struct {
	mu       sync.RWMutex
	accounts map[string]Account

	StoreError error
	ListError  error
}

func newMockStore() *mockStore {
	return &mockStore{accounts: make(map[string]Account)}
}

// newMockManager returns a Manager backed by a single mock store
func newMockManager() (*Manager, *mockStore) {
	store := newMockStore()
	return NewManagerWithStores(store), store
}

func (m *mockStore) Store(account *Account) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Username] = *account
	return nil
}

func (m *mockStore) Retrieve(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (m *mockStore) List() ([]*Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]*Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		account := account
		accounts = append(accounts, &account)
	}
	return accounts, nil
}

func (m *mockStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, username)
	return nil
}

func (m *mockStore) Exists(username string) bool {
	_, err := m.Retrieve(username)
	return err == nil
}

func (m *mockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
