package webserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gigboard/gigboard/src/gigs/failure"
)

var statusByKind = map[failure.Kind]int{
	failure.KindValidation:      http.StatusBadRequest,
	failure.KindUnauthenticated: http.StatusUnauthorized,
	failure.KindUnauthorized:    http.StatusForbidden,
	failure.KindNotFound:        http.StatusNotFound,
	failure.KindConflict:        http.StatusConflict,
	failure.KindUnavailable:     http.StatusServiceUnavailable,
}

// respondErr writes err as {"err", "code", "kind"} with the status its kind maps to.
func respondErr(c *gin.Context, err error) {
	fe, ok := failure.As(err)
	if !ok {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"err": "internal error"})
		return
	}

	status, ok := statusByKind[fe.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if fe.Kind == failure.KindUnavailable {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, gin.H{"err": fe.Error(), "code": fe.Code, "kind": fe.Kind})
}

func badRequest(c *gin.Context, err error) {
	respondErr(c, failure.Wrap(failure.ErrValidation, "%v", err))
}
