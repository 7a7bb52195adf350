package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gigboard/gigboard/src/gigs/arbitration"
)

type Winners struct {
	arbiter *arbitration.Engine
}

func NewWinners(a *arbitration.Engine) Winners {
	return Winners{arbiter: a}
}

func (w Winners) Declare(c *gin.Context) {
	var req struct {
		Winners []arbitration.Award `json:"winners" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	winners, err := w.arbiter.Declare(c.Request.Context(), c.Param("id"), principal(c), req.Winners)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"winners": winners, "total": arbitration.Total(winners)})
}

func (w Winners) List(c *gin.Context) {
	winners, err := w.arbiter.Winners(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}
