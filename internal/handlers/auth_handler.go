package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"firmsite/internal/adminauth"
	"firmsite/internal/middleware"
	"firmsite/internal/models"
	"firmsite/internal/service"
	"firmsite/pkg/logger"
)

const (
	loginPath     = "/admin/login"
	dashboardPath = "/admin"
)

// AuthHandler serves the staged admin login. Each step posts one form and
// redirects back to the login page, which renders the flow's current step.
type AuthHandler struct {
	*Renderer
	authService *service.AuthService
}

func NewAuthHandler(renderer *Renderer, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{Renderer: renderer, authService: authService}
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		h.renderError(c, http.StatusInternalServerError, "500 - Server Error", "Session unavailable")
		return
	}
	if sess.Authenticated() && !middleware.TokenExpired(sess.AuthToken, time.Now()) {
		c.Redirect(http.StatusSeeOther, dashboardPath)
		return
	}

	h.renderLogin(c, http.StatusOK, h.authService.State(sess.ID), "")
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, state adminauth.State, formError string) {
	h.renderAdmin(c, status, "admin_login.html", "Admin login", gin.H{
		"State":     state,
		"Step":      state.Step.String(),
		"FormError": formError,
	})
}

// State reports the login state as JSON so the login page can count the
// resend cooldown down.
func (h *AuthHandler) State(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}
	state := h.authService.State(sess.ID)
	c.JSON(http.StatusOK, gin.H{"state": state, "step": state.Step.String()})
}

func (h *AuthHandler) SubmitEmail(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var form models.EmailForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, h.authService.State(sess), "Please enter a valid email address.")
		return
	}

	h.finishStep(c, sess, h.authService.SubmitEmail(c.Request.Context(), sess, form.Email))
}

func (h *AuthHandler) Resend(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.finishStep(c, sess, h.authService.Resend(c.Request.Context(), sess))
}

func (h *AuthHandler) SubmitOTP(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var form models.OTPForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, h.authService.State(sess), "Please enter the code from your email.")
		return
	}

	h.finishStep(c, sess, h.authService.SubmitOTP(c.Request.Context(), sess, form.OTP))
}

func (h *AuthHandler) SubmitPassword(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var form models.PasswordForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, h.authService.State(sess), "Please enter your password.")
		return
	}

	if err := h.authService.SubmitPassword(c.Request.Context(), sess, form.Password); err != nil {
		h.finishStep(c, sess, err)
		return
	}

	c.Redirect(http.StatusSeeOther, dashboardPath)
}

// StartOver drops the current flow so the admin can enter another email.
func (h *AuthHandler) StartOver(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.authService.Reset(sess)
	c.Redirect(http.StatusSeeOther, loginPath)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if sess, ok := middleware.CurrentSession(c); ok {
		if err := h.authService.Logout(c.Request.Context(), sess.ID); err != nil {
			logger.Error(err, "Failed to delete admin session", nil)
		}
	}

	c.SetCookie(middleware.SessionCookieName, "", -1, "/admin", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusSeeOther, loginPath)
}

func (h *AuthHandler) session(c *gin.Context) (string, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		h.renderError(c, http.StatusInternalServerError, "500 - Server Error", "Session unavailable")
		return "", false
	}
	return sess.ID, true
}

// finishStep redirects back to the login page. Step failures are already
// recorded on the flow state; only a concurrent submit is reported inline.
func (h *AuthHandler) finishStep(c *gin.Context, sessionID string, err error) {
	if err != nil {
		var stepErr *adminauth.StepError
		switch {
		case errors.As(err, &stepErr):
			logger.Warn("Admin login step failed", map[string]interface{}{
				"step":  stepErr.Step.String(),
				"error": stepErr.Err.Error(),
			})
		case errors.Is(err, adminauth.ErrBusy):
			h.renderLogin(c, http.StatusConflict, h.authService.State(sessionID), "A request is already in progress.")
			return
		case errors.Is(err, adminauth.ErrWrongStep), errors.Is(err, adminauth.ErrCooldownActive):
		default:
			logger.Error(err, "Admin login step failed", nil)
		}
	}

	c.Redirect(http.StatusSeeOther, loginPath)
}
