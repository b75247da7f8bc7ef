package user

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"classmark/internal/apperr"
)

const bcryptCost = 10

// Store is the persistence surface the service needs.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u User) (int64, error)
}

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64, name, email string, roleID int) (string, error)
}

// Service handles registration and login.
type Service struct {
	store  Store
	tokens TokenIssuer
}

// NewService creates a service backed by a store and a token issuer.
func NewService(store Store, tokens TokenIssuer) *Service {
	return &Service{store: store, tokens: tokens}
}

// Summary is the client-facing view of a user.
type Summary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	RoleID int    `json:"role_id"`
}

// Register creates a local account with the default student role and issues
// a token for automatic login.
func (s *Service) Register(ctx context.Context, name, email, password string) (Summary, string, error) {
	if name == "" || email == "" || password == "" {
		return Summary{}, "", apperr.New(apperr.Validation, "Please provide all required fields: name, email, and password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Summary{}, "", apperr.Wrap(apperr.Internal, "Error registering user", err)
	}

	id, err := s.store.Create(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       RoleStudent,
		AuthProvider: "local",
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.Conflict {
			return Summary{}, "", err
		}
		return Summary{}, "", apperr.Wrap(apperr.Internal, "Error registering user", err)
	}

	token, err := s.tokens.Issue(id, name, email, RoleStudent)
	if err != nil {
		return Summary{}, "", err
	}
	return Summary{ID: id, Name: name, Email: email, RoleID: RoleStudent}, token, nil
}

// Login verifies credentials and issues a token using the stored role.
func (s *Service) Login(ctx context.Context, email, password string) (string, string, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return "", "", apperr.Wrap(apperr.Internal, "Error logging in", err)
	}
	if u == nil {
		return "", "", apperr.New(apperr.NotFound, "User not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", "", apperr.New(apperr.Auth, "Invalid credentials")
	}

	token, err := s.tokens.Issue(u.ID, u.Name, u.Email, u.RoleID)
	if err != nil {
		return "", "", err
	}
	return token, u.Name, nil
}
