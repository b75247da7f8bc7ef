package user

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"classmark/internal/apperr"
)

// fakeStore keeps users in a map keyed by email, enforcing uniqueness the
// way the schema constraint does.
type fakeStore struct {
	byEmail map[string]*User
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{byEmail: map[string]*User{}, nextID: 1}
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) Create(_ context.Context, u User) (int64, error) {
	if _, ok := s.byEmail[u.Email]; ok {
		return 0, apperr.New(apperr.Conflict, "User with this email already exists")
	}
	u.ID = s.nextID
	s.nextID++
	s.byEmail[u.Email] = &u
	return u.ID, nil
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(userID int64, name, _ string, _ int) (string, error) {
	return fmt.Sprintf("token-%d-%s", userID, name), nil
}

func TestRegister(t *testing.T) {
	svc := NewService(newFakeStore(), fakeIssuer{})

	summary, token, err := svc.Register(context.Background(), "Alice", "a@x.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", summary.Name)
	assert.Equal(t, "a@x.com", summary.Email)
	assert.Equal(t, RoleStudent, summary.RoleID)
	assert.NotZero(t, summary.ID)
	assert.NotEmpty(t, token)
}

func TestRegisterHashesPassword(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, fakeIssuer{})

	_, _, err := svc.Register(context.Background(), "Alice", "a@x.com", "pw123")
	require.NoError(t, err)

	stored := store.byEmail["a@x.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "pw123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw123")))
	assert.Equal(t, "local", stored.AuthProvider)
}

func TestRegisterMissingFields(t *testing.T) {
	svc := NewService(newFakeStore(), fakeIssuer{})

	tests := []struct {
		name                  string
		uname, email, passwrd string
	}{
		{"no name", "", "a@x.com", "pw"},
		{"no email", "Alice", "", "pw"},
		{"no password", "Alice", "a@x.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), tt.uname, tt.email, tt.passwrd)
			require.Error(t, err)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeStore(), fakeIssuer{})

	_, _, err := svc.Register(context.Background(), "Alice", "a@x.com", "pw123")
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "Other Alice", "a@x.com", "pw456")
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestLogin(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, fakeIssuer{})

	_, _, err := svc.Register(context.Background(), "Alice", "a@x.com", "pw123")
	require.NoError(t, err)

	token, name, err := svc.Login(context.Background(), "a@x.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
	assert.NotEmpty(t, token)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewService(newFakeStore(), fakeIssuer{})

	_, _, err := svc.Login(context.Background(), "nobody@x.com", "pw")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestLoginWrongPassword(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, fakeIssuer{})

	_, _, err := svc.Register(context.Background(), "Alice", "a@x.com", "pw123")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))
}

// Login uses the stored role, not the registration default.
func TestLoginKeepsStoredRole(t *testing.T) {
	store := newFakeStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	store.byEmail["t@x.com"] = &User{ID: 9, Name: "Teach", Email: "t@x.com", PasswordHash: string(hash), RoleID: 10}

	called := 0
	issuer := issuerFunc(func(userID int64, name, email string, roleID int) (string, error) {
		called++
		assert.Equal(t, 10, roleID)
		return "tok", nil
	})

	_, _, err = NewService(store, issuer).Login(context.Background(), "t@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, called)
}

type issuerFunc func(userID int64, name, email string, roleID int) (string, error)

func (f issuerFunc) Issue(userID int64, name, email string, roleID int) (string, error) {
	return f(userID, name, email, roleID)
}
