package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gigboard/gigboard/src/gigs/chat"
	"github.com/gigboard/gigboard/src/gigs/failure"
)

type Chat struct {
	channel *chat.Channel
}

func NewChat(ch *chat.Channel) Chat {
	return Chat{channel: ch}
}

func (h Chat) Post(c *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.channel.Post(c.Request.Context(), c.Param("id"), principal(c), req.Body)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h Chat) List(c *gin.Context) {
	msgs, err := h.channel.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h Chat) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("messageID"), 10, 64)
	if err != nil {
		respondErr(c, failure.Wrap(failure.ErrNotFound, "message %s", c.Param("messageID")))
		return
	}
	if err := h.channel.Delete(c.Request.Context(), id, principal(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
