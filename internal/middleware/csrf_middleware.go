package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CSRFCookieName = "firmsite_csrf"
	CSRFHeaderName = "X-CSRF-Token"
	CSRFFormField  = "csrf_token"
	csrfContextKey = "csrf_token"
)

var stateChangingMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// CSRFMiddleware issues a double-submit token cookie and requires state
// changing requests to echo it in the X-CSRF-Token header or the csrf_token
// form field.
func CSRFMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFCookieName)
		if err != nil || strings.TrimSpace(token) == "" {
			token = ""
		}

		if _, check := stateChangingMethods[c.Request.Method]; check {
			submitted := strings.TrimSpace(c.GetHeader(CSRFHeaderName))
			if submitted == "" {
				submitted = strings.TrimSpace(c.PostForm(CSRFFormField))
			}
			if token == "" || submitted == "" {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing CSRF token"})
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
				return
			}
		}

		if token == "" {
			token = uuid.NewString()
			c.SetSameSite(http.SameSiteStrictMode)
			c.SetCookie(CSRFCookieName, token, 0, "/", "", secure, true)
		}

		c.Set(csrfContextKey, token)
		c.Next()
	}
}

// CSRFToken returns the token templates embed in their forms.
func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}
