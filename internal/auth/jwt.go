// Package auth issues and verifies the HS256 bearer tokens used by the API
// and guards the admin endpoints with a static key.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nikhilbhutani/voiceassistant/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrMissingSecret      = errors.New("jwt secret is empty")
)

const DefaultTokenTTL = 120 * time.Minute

type Claims struct {
	Sub string `json:"sub"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies access tokens and checks login credentials
// against the configured user table.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	users  map[string]string
	now    func() time.Time
}

func NewIssuer(cfg config.AuthConfig) (*Issuer, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		users:  cfg.Users,
		now:    time.Now,
	}, nil
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// CheckCredentials compares in constant time. Unknown users still pay for a
// comparison so the response time does not reveal which names exist.
func (i *Issuer) CheckCredentials(username, password string) error {
	want, ok := i.users[username]
	if !ok {
		subtle.ConstantTimeCompare([]byte(password), []byte(password))
		return ErrInvalidCredentials
	}
	if username == "" || subtle.ConstantTimeCompare([]byte(password), []byte(want)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

func (i *Issuer) Issue(subject string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}
	now := i.now()
	claims := Claims{
		Sub: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses tokenStr and returns its claims. Expired tokens yield
// ErrTokenExpired, everything else that fails yields ErrInvalidToken.
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
