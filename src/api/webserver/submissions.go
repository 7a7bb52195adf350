package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gigboard/gigboard/src/gigs/ledger"
)

type Submissions struct {
	ledger *ledger.Ledger
}

func NewSubmissions(l *ledger.Ledger) Submissions {
	return Submissions{ledger: l}
}

func (s Submissions) Create(c *gin.Context) {
	var req struct {
		SubmissionLink string `json:"submission_link" binding:"required"`
		WalletAddress  string `json:"wallet_address" binding:"required"`
		ContactEmail   string `json:"contact_email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sub, err := s.ledger.Submit(c.Request.Context(), c.Param("id"), principal(c), ledger.Entry{
		SubmissionLink: req.SubmissionLink,
		WalletAddress:  req.WalletAddress,
		ContactEmail:   req.ContactEmail,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (s Submissions) List(c *gin.Context) {
	subs, err := s.ledger.ForOwner(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (s Submissions) Mine(c *gin.Context) {
	sub, found, err := s.ledger.Mine(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"submitted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submitted": true, "submission": sub})
}
