// Package api is the thin plumbing layer for the device's local HTTP API:
// handler resolution, module mounting and the shared error shape. The API
// is LAN-only and unauthenticated; access control is the network's job.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Error struct {
	Code    int
	Message string
}

// Errf builds an API error for a handler to return.
func Errf(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

type HandlerFunc func(ctx *gin.Context) (any, *Error)

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, error := h(ctx)
		if error != nil {
			ctx.JSON(error.Code, gin.H{"error": error.Message})
			return
		}

		ctx.JSON(http.StatusOK, result)
	}
}
