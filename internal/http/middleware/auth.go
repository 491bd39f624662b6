package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// callerKey is the Gin context key under which BearerAuth stores the
// authenticated caller.
const callerKey = "caller"

// adminCaller is the identity recorded for requests carrying the admin token.
const adminCaller = "admin"

// BearerAuth guards mutating routes with a static admin token.
//
// Requests must carry "Authorization: Bearer <token>". The comparison runs in
// constant time. An empty token disables the check so local setups work
// without configuration.
//
// On failure it aborts with 401 and the standard error body:
//
//	{ "request_id": "...", "code": "unauthorized", "message": "invalid or missing bearer token" }
func BearerAuth(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		const prefix = "Bearer "
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), want) != 1 {
			c.Header("WWW-Authenticate", `Bearer realm="skinvault"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(
				c.Writer.Header().Get(requestIDHeader), "unauthorized", "invalid or missing bearer token"))
			return
		}
		c.Set(callerKey, adminCaller)
		c.Next()
	}
}
