package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"classmark/internal/apperr"
)

// Claims is the JWT payload carried by every bearer token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	RoleID   int    `json:"role_id"`
	jwt.RegisteredClaims
}

// Issuer signs and validates bearer tokens.
type Issuer struct {
	issuer string
	key    []byte
	ttl    time.Duration
}

// NewIssuer creates an issuer signing HS256 tokens valid for ttl.
func NewIssuer(issuer, key string, ttl time.Duration) *Issuer {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Issuer{issuer: issuer, key: []byte(key), ttl: ttl}
}

// Issue signs a token embedding the user's identity and role.
func (i *Issuer) Issue(userID int64, name, email string, roleID int) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		UserName: name,
		Email:    email,
		RoleID:   roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "token issue failed", err)
	}
	return token, nil
}

// Parse validates a token and returns its claims. Any parse, signature,
// expiry, or issuer problem fails closed as an auth error.
func (i *Issuer) Parse(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, apperr.New(apperr.Auth, "unexpected signing method")
		}
		return i.key, nil
	})
	if err != nil {
		return Claims{}, apperr.Wrap(apperr.Auth, "invalid token", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, apperr.New(apperr.Auth, "invalid token")
	}
	if i.issuer != "" && claims.Issuer != i.issuer {
		return Claims{}, apperr.New(apperr.Auth, "invalid token")
	}
	return *claims, nil
}
