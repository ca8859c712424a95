package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"firmsite/internal/authorization"
	"firmsite/internal/models"
	"firmsite/internal/service"
	"firmsite/pkg/logger"
)

// UserHandler manages admin panel users.
type UserHandler struct {
	*Renderer
	userService *service.UserService
}

func NewUserHandler(renderer *Renderer, userService *service.UserService) *UserHandler {
	return &UserHandler{Renderer: renderer, userService: userService}
}

func (h *UserHandler) List(c *gin.Context) {
	token, ok := adminToken(c)
	if !ok {
		return
	}

	notice := ""
	switch c.Query("status") {
	case "created":
		notice = "User created."
	case "deleted":
		notice = "User deleted."
	}
	h.renderUsers(c, token, http.StatusOK, models.CreateUserForm{Role: authorization.DefaultRole.String()}, notice, "")
}

func (h *UserHandler) renderUsers(c *gin.Context, token string, status int, form models.CreateUserForm, notice, formError string) {
	users, err := h.userService.List(c.Request.Context(), token)
	if err != nil {
		if statusForError(err) == http.StatusUnauthorized {
			c.Redirect(http.StatusSeeOther, loginPath)
			return
		}
		logger.Error(err, "Failed to list users", nil)
		if formError == "" {
			formError = backendMessage(err, "Users could not be loaded.")
		}
	}

	h.renderAdmin(c, status, "admin_users.html", "Users", gin.H{
		"Users":     users,
		"Form":      form,
		"Roles":     authorization.Roles(),
		"Notice":    notice,
		"FormError": formError,
	})
}

func (h *UserHandler) Create(c *gin.Context) {
	token, ok := adminToken(c)
	if !ok {
		return
	}

	var form models.CreateUserForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderUsers(c, token, http.StatusBadRequest, form, "", "Name, a valid email and a role are required.")
		return
	}

	if _, err := h.userService.Create(c.Request.Context(), token, form); err != nil {
		logger.Error(err, "Failed to create user", map[string]interface{}{"email": form.Email})
		h.renderUsers(c, token, statusForError(err), form, "", backendMessage(err, "The user could not be created."))
		return
	}

	c.Redirect(http.StatusSeeOther, "/admin/users?status=created")
}

func (h *UserHandler) Delete(c *gin.Context) {
	token, ok := adminToken(c)
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), token, c.Param("id")); err != nil {
		logger.Error(err, "Failed to delete user", map[string]interface{}{"id": c.Param("id")})
		h.renderUsers(c, token, statusForError(err), models.CreateUserForm{Role: authorization.DefaultRole.String()}, "", backendMessage(err, "The user could not be deleted."))
		return
	}

	c.Redirect(http.StatusSeeOther, "/admin/users?status=deleted")
}
