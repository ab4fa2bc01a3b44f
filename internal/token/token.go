package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/swiftship/swiftship/internal/config"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// token class, malformed input, or expiry. Callers are not told which, so a
// forged token fails indistinguishably from a stale one.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carried by both token classes.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IdentityKey returns the subject the token was minted for.
func (c Claims) IdentityKey() string {
	return c.Subject
}

// Pair bundles a freshly minted access and refresh token.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Issuer mints and verifies HS256-signed access and refresh tokens. The two
// classes use distinct secrets so a leaked access secret cannot forge refresh
// tokens.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewIssuer creates a token issuer configured from cfg.
func NewIssuer(cfg config.Config) *Issuer {
	return &Issuer{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
}

// IssueAccessToken mints a short-lived access token.
func (i *Issuer) IssueAccessToken(identityKey, role string) (string, error) {
	return i.sign(identityKey, role, i.accessSecret, i.accessTTL)
}

// IssueRefreshToken mints a long-lived refresh token.
func (i *Issuer) IssueRefreshToken(identityKey, role string) (string, error) {
	return i.sign(identityKey, role, i.refreshSecret, i.refreshTTL)
}

// IssuePair mints an access/refresh token pair for the identity.
func (i *Issuer) IssuePair(identityKey, role string) (Pair, error) {
	access, err := i.IssueAccessToken(identityKey, role)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefreshToken(identityKey, role)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(i.accessTTL.Seconds()),
	}, nil
}

// VerifyAccessToken validates an access token and returns its claims.
func (i *Issuer) VerifyAccessToken(raw string) (Claims, error) {
	return i.verify(raw, i.accessSecret)
}

// VerifyRefreshToken validates a refresh token and returns its claims.
func (i *Issuer) VerifyRefreshToken(raw string) (Claims, error) {
	return i.verify(raw, i.refreshSecret)
}

func (i *Issuer) sign(identityKey, role string, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (i *Issuer) verify(raw string, secret []byte) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
