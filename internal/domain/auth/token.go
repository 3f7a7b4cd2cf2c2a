// Package auth issues and verifies the bearer tokens that identify store users.
package auth

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// RoleAdmin grants access to order reports.
const RoleAdmin = "admin"

const rolesClaim = "roles"

// ErrUnauthorized is returned for missing, malformed or expired tokens.
var ErrUnauthorized = errors.New("unauthorized")

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Roles  []string
}

// IsAdmin reports whether p holds RoleAdmin.
func (p Principal) IsAdmin() bool {
	return slices.Contains(p.Roles, RoleAdmin)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Tokens signs and verifies HS512 JWTs with a shared secret.
type Tokens struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokens creates Tokens. An empty issuer disables the issuer check.
func NewTokens(secret []byte, issuer string) (*Tokens, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	return &Tokens{secret: secret, issuer: issuer, now: time.Now}, nil
}

// Issue returns a signed token for p valid for ttl.
func (t *Tokens) Issue(p Principal, ttl time.Duration) (string, error) {
	now := t.now()
	b := jwt.NewBuilder().
		Subject(strconv.FormatInt(p.UserID, 10)).
		IssuedAt(now).
		Expiration(now.Add(ttl))
	if t.issuer != "" {
		b = b.Issuer(t.issuer)
	}
	if len(p.Roles) > 0 {
		b = b.Claim(rolesClaim, p.Roles)
	}

	tok, err := b.Build()
	if err != nil {
		return "", errors.Wrap(err, "build token")
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512(), t.secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return string(signed), nil
}

// Verify parses raw, checks its signature and standard claims, and returns
// the principal it identifies. Every failure wraps ErrUnauthorized.
func (t *Tokens) Verify(raw string) (Principal, error) {
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS512(), t.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(t.now)),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	tok, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return Principal{}, errors.Wrapf(ErrUnauthorized, "parse token: %v", err)
	}

	sub, ok := tok.Subject()
	if !ok {
		return Principal{}, errors.Wrap(ErrUnauthorized, "no subject")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return Principal{}, errors.Wrapf(ErrUnauthorized, "invalid subject %q", sub)
	}

	p := Principal{UserID: userID}
	if tok.Has(rolesClaim) {
		var roles []any
		if err := tok.Get(rolesClaim, &roles); err != nil {
			return Principal{}, errors.Wrapf(ErrUnauthorized, "roles claim: %v", err)
		}
		for _, r := range roles {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	return p, nil
}
