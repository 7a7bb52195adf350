// Package identity resolves the calling principal from a bearer credential.
//
// Core operations take a Principal produced here and never read role or
// username from request payloads.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gigboard/gigboard/src/gigs/failure"
)

type Role string

const (
	RoleBusiness   Role = "business"
	RoleFreelancer Role = "freelancer"
)

func (r Role) Valid() bool {
	return r == RoleBusiness || r == RoleFreelancer
}

// Principal is the authenticated caller.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Email    string `json:"email,omitempty"`

	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

func (p Principal) IsBusiness() bool { return p.Role == RoleBusiness }

// Claims is the credential payload minted by the identity provider.
type Claims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Resolver turns a raw bearer credential into a Principal.
type Resolver interface {
	Resolve(ctx context.Context, bearer string) (Principal, error)
}

// Revocations reports credentials withdrawn before their expiry.
type Revocations interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type JWTResolver struct {
	secret  []byte
	issuer  string
	revoked Revocations
}

func NewJWTResolver(secret []byte, issuer string, revoked Revocations) *JWTResolver {
	return &JWTResolver{secret: secret, issuer: issuer, revoked: revoked}
}

func (r *JWTResolver) Resolve(ctx context.Context, bearer string) (Principal, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return Principal{}, failure.Wrap(failure.ErrUnauthenticated, "missing credential")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(bearer, claims, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, failure.Wrap(failure.ErrUnauthenticated, "credential expired")
		}
		return Principal{}, failure.Wrap(failure.ErrUnauthenticated, "invalid credential")
	}

	if claims.Subject == "" || strings.TrimSpace(claims.Username) == "" {
		return Principal{}, failure.Wrap(failure.ErrUnauthenticated, "credential lacks subject or username")
	}
	if !claims.Role.Valid() {
		return Principal{}, failure.Wrap(failure.ErrUnauthenticated, "credential carries unknown role %q", claims.Role)
	}

	if r.revoked != nil && claims.ID != "" {
		revoked, err := r.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Principal{}, failure.Unavailable(err)
		}
		if revoked {
			return Principal{}, failure.Wrap(failure.ErrUnauthenticated, "credential revoked")
		}
	}

	p := Principal{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
		Email:    claims.Email,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// Issue mints a signed credential for p. Used by local tooling and tests; in
// production the identity provider mints credentials.
func Issue(p Principal, secret []byte, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: p.Username,
		Role:     p.Role,
		Email:    p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
