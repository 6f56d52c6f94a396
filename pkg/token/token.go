package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

// Purpose tags a signed token so that a token minted for one flow can never
// be replayed against another.
type Purpose string

const (
	PurposeActivation    Purpose = "activation"
	PurposePasswordReset Purpose = "password-reset"
)

type claims struct {
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// Signer issues and verifies purpose-tagged signed tokens carrying an email
// address. Expiry is derived from the token's own signing timestamp, so
// verification fails closed even if stored expiry metadata drifts.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner constructs a Signer with the shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue returns a signed token embedding the email, valid for ttl.
func (s *Signer) Issue(email string, purpose Purpose, ttl time.Duration) (string, time.Time, error) {
	if email == "" {
		return "", time.Time{}, fmt.Errorf("email required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify validates a token and returns the embedded email. Expired tokens
// yield ErrTokenExpired; tampered, malformed or cross-purpose tokens yield
// ErrTokenInvalid.
func (s *Signer) Verify(tokenString string, purpose Purpose) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", appErrors.Clone(appErrors.ErrTokenExpired, "")
		}
		return "", appErrors.Wrap(err, appErrors.ErrTokenInvalid.Code, appErrors.ErrTokenInvalid.Status, appErrors.ErrTokenInvalid.Message)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return "", appErrors.Clone(appErrors.ErrTokenInvalid, "")
	}
	if c.Purpose != purpose {
		return "", appErrors.Clone(appErrors.ErrTokenInvalid, "token issued for a different purpose")
	}
	if c.Subject == "" {
		return "", appErrors.Clone(appErrors.ErrTokenInvalid, "")
	}
	return c.Subject, nil
}
