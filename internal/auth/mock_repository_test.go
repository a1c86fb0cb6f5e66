package auth_test

import (
	"context"
	"errors"

	"github.com/serroba/shortlinks/internal/auth"
)

var errMock = errors.New("mock error")

type mockUsers struct {
	byID      map[string]auth.User
	createErr error
	findErr   error
}

func newMockUsers() *mockUsers {
	return &mockUsers{byID: make(map[string]auth.User)}
}

func (m *mockUsers) Create(_ context.Context, user *auth.User) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.byID[user.ID] = *user

	return nil
}

func (m *mockUsers) Get(_ context.Context, id string) (*auth.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}

	return &user, nil
}

func (m *mockUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}

	for _, user := range m.byID {
		if user.Email == email {
			return &user, nil
		}
	}

	return nil, auth.ErrUserNotFound
}

type mockRefreshTokens struct {
	records   map[string]auth.RefreshTokenRecord
	saveErr   error
	deleteErr error
	deletes   int
}

func newMockRefreshTokens() *mockRefreshTokens {
	return &mockRefreshTokens{records: make(map[string]auth.RefreshTokenRecord)}
}

func (m *mockRefreshTokens) Save(_ context.Context, record *auth.RefreshTokenRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}

	m.records[record.UserID+"/"+record.TokenID] = *record

	return nil
}

func (m *mockRefreshTokens) Get(_ context.Context, userID, tokenID string) (*auth.RefreshTokenRecord, error) {
	record, ok := m.records[userID+"/"+tokenID]
	if !ok {
		return nil, auth.ErrTokenNotFound
	}

	return &record, nil
}

func (m *mockRefreshTokens) Delete(_ context.Context, userID, tokenID string) error {
	m.deletes++

	if m.deleteErr != nil {
		return m.deleteErr
	}

	delete(m.records, userID+"/"+tokenID)

	return nil
}

// plainHasher stores passwords with a fixed prefix so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(hash, password string) (bool, error) {
	return hash == "plain:"+password, nil
}
