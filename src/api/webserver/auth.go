package webserver

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gigboard/gigboard/src/gigs/failure"
	"github.com/gigboard/gigboard/src/gigs/identity"
)

const principalKey = "principal"

// Revoker withdraws a credential until its expiry.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
}

type Auth struct {
	resolver identity.Resolver
	revoker  Revoker
}

func NewAuth(resolver identity.Resolver, revoker Revoker) Auth {
	return Auth{resolver: resolver, revoker: revoker}
}

func bearer(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	return h[7:], true
}

func (a Auth) resolve(c *gin.Context, tok string) bool {
	p, err := a.resolver.Resolve(c.Request.Context(), tok)
	if err != nil {
		respondErr(c, err)
		return false
	}
	c.Set(principalKey, p)
	c.Set("username", p.Username)
	c.Request = c.Request.WithContext(identity.WithPrincipal(c.Request.Context(), p))
	return true
}

// Required rejects requests without a valid credential.
func (a Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearer(c)
		if !ok {
			respondErr(c, failure.Wrap(failure.ErrUnauthenticated, "missing bearer credential"))
			return
		}
		if !a.resolve(c, tok) {
			return
		}
		c.Next()
	}
}

// Optional resolves a credential when one is presented. A bad credential is
// still rejected rather than silently downgraded to anonymous.
func (a Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok, ok := bearer(c); ok {
			if !a.resolve(c, tok) {
				return
			}
		}
		c.Next()
	}
}

func principal(c *gin.Context) identity.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(identity.Principal); ok {
			return p
		}
	}
	return identity.Principal{}
}

func (a Auth) Me(c *gin.Context) {
	c.JSON(http.StatusOK, principal(c))
}

func (a Auth) Logout(c *gin.Context) {
	p := principal(c)
	if a.revoker == nil || p.TokenID == "" {
		c.Status(http.StatusNoContent)
		return
	}
	if err := a.revoker.Revoke(c.Request.Context(), p.TokenID, p.ExpiresAt); err != nil {
		respondErr(c, failure.Unavailable(err))
		return
	}
	log.Printf("auth: %s logged out", p.Username)
	c.Status(http.StatusNoContent)
}
