// Package auth verifies and issues the HS256 bearer tokens that identify the acting user.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/model"
)

// Leeway tolerated on exp/nbf checks.
const Leeway = 30 * time.Second

// Claims are the registered claims plus the display name of the subject.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"name,omitempty"`
}

// Keyring signs and verifies tokens with a single shared secret.
type Keyring struct {
	key []byte
	now func() time.Time
}

// NewKeyring returns a Keyring for key. An empty key is rejected.
func NewKeyring(key []byte) (*Keyring, error) {
	if len(key) == 0 {
		return nil, errors.New("auth: empty signing key")
	}
	return &Keyring{key: key, now: time.Now}, nil
}

// Issue creates a signed token for u valid for ttl.
func (k *Keyring) Issue(u model.User, ttl time.Duration) (string, time.Time, error) {
	if u.ID == uuid.Nil {
		return "", time.Time{}, fmt.Errorf("%w: nil subject", errs.ErrInvalidArgument)
	}
	now := k.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: u.Username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.key)
	return signed, exp, err
}

// Verify checks signature, algorithm and validity window of tok and returns
// the user it names. Every failure wraps errs.ErrUnauthenticated.
func (k *Keyring) Verify(tok string) (model.User, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return k.key, nil
	},
		jwt.WithLeeway(Leeway),
		jwt.WithTimeFunc(k.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return model.User{}, fmt.Errorf("%w: invalid token", errs.ErrUnauthenticated)
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return model.User{}, fmt.Errorf("%w: bad subject", errs.ErrUnauthenticated)
	}
	return model.User{ID: id, Username: claims.Username}, nil
}
