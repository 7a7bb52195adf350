package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gigboard/gigboard/src/gigs/blob"
	"github.com/gigboard/gigboard/src/gigs/store"
)

type Profiles struct {
	store *store.Store
	blobs *blob.Resolver
}

func NewProfiles(s *store.Store, b *blob.Resolver) Profiles {
	return Profiles{store: s, blobs: b}
}

func (p Profiles) Get(c *gin.Context) {
	prof, err := p.store.GetProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":    prof,
		"avatar_url": p.blobs.Resolve(prof.AvatarKey),
	})
}
