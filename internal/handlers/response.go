package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/apierr"
)

// respondError maps a service error to its HTTP status and the error envelope
// the client expects: {"error": {"message", "code"}}.
func respondError(c *gin.Context, err error) {
	e := apierr.From(err)
	c.JSON(e.Status, gin.H{
		"error": gin.H{
			"message": e.Error(),
			"code":    e.Code,
		},
	})
}
