package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"firmsite/internal/session"
	"firmsite/pkg/logger"
)

const (
	SessionCookieName = "firmsite_admin"
	sessionContextKey = "admin_session"
	adminLoginPath    = "/admin/login"
)

// SessionMiddleware loads the admin browser session named by the cookie,
// starting a new one when the cookie is missing or stale.
func SessionMiddleware(store session.Store, ttl time.Duration, secure bool) gin.HandlerFunc {
	maxAge := int(ttl.Seconds())

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var sess *session.Session
		if id, err := c.Cookie(SessionCookieName); err == nil && strings.TrimSpace(id) != "" {
			found, err := store.Get(ctx, id)
			switch {
			case err == nil:
				sess = found
			case !errors.Is(err, session.ErrNotFound):
				logger.Error(err, "Failed to load admin session", nil)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
				return
			}
		}

		if sess == nil {
			created, err := store.Create(ctx)
			if err != nil {
				logger.Error(err, "Failed to create admin session", nil)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
				return
			}
			sess = created
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, sess.ID, maxAge, "/admin", "", secure, true)
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session loaded by SessionMiddleware.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok && sess != nil
}

// RequireAdmin lets through sessions holding a live admin token. Browsers are
// sent to the login page; API callers get 401.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok || !sess.Authenticated() || TokenExpired(sess.AuthToken, time.Now()) {
			if wantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin login required"})
				return
			}
			c.Redirect(http.StatusSeeOther, adminLoginPath)
			c.Abort()
			return
		}

		c.Set("admin_email", sess.Email)
		c.Next()
	}
}

// TokenExpired reports whether token is a JWT whose exp claim has passed.
// The signature is checked by the backend on every call; tokens that are not
// JWTs are treated as opaque and never expire here.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/admin/api/") {
		return true
	}
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
