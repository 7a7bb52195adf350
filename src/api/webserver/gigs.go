package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gigboard/gigboard/src/gigs/catalog"
	"github.com/gigboard/gigboard/src/gigs/store"
)

type Gigs struct {
	catalog *catalog.Catalog
}

func NewGigs(c *catalog.Catalog) Gigs {
	return Gigs{catalog: c}
}

type gigRequest struct {
	Company     string          `json:"company"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Type        store.GigType   `json:"type" binding:"required"`
	Deadline    time.Time       `json:"deadline" binding:"required"`
	TotalBounty decimal.Decimal `json:"total_bounty"`
	Breakdown   []store.Prize   `json:"bounty_breakdown" binding:"required,min=1"`
	Skills      []string        `json:"skills_required"`
	ContactInfo string          `json:"contact_info"`
}

func (r gigRequest) draft() catalog.Draft {
	return catalog.Draft{
		Company:     r.Company,
		Title:       r.Title,
		Description: r.Description,
		Type:        r.Type,
		Deadline:    r.Deadline,
		TotalBounty: r.TotalBounty,
		Breakdown:   r.Breakdown,
		Skills:      r.Skills,
		ContactInfo: r.ContactInfo,
	}
}

func (g Gigs) Create(c *gin.Context) {
	var req gigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	gig, err := g.catalog.Create(c.Request.Context(), principal(c), req.draft())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gig)
}

func (g Gigs) Amend(c *gin.Context) {
	var req gigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	gig, err := g.catalog.Amend(c.Request.Context(), c.Param("id"), principal(c), req.draft())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gig)
}

func (g Gigs) Get(c *gin.Context) {
	v, err := g.catalog.Detail(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (g Gigs) List(c *gin.Context) {
	f := store.ListFilter{
		Company: c.Query("company"),
		Type:    store.GigType(c.Query("type")),
	}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))
	if f.Offset < 0 {
		f.Offset = 0
	}

	gigs, err := g.catalog.List(c.Request.Context(), f)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gigs": gigs})
}

func (g Gigs) Mine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	gigs, err := g.catalog.Mine(c.Request.Context(), principal(c), limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gigs": gigs})
}
