package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"firmsite/internal/service"
	"firmsite/pkg/logger"
)

// ContactHandler lists and deletes contact form submissions.
type ContactHandler struct {
	*Renderer
	contactService *service.ContactService
}

func NewContactHandler(renderer *Renderer, contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{Renderer: renderer, contactService: contactService}
}

func (h *ContactHandler) List(c *gin.Context) {
	token, ok := adminToken(c)
	if !ok {
		return
	}

	data := gin.H{}
	contacts, err := h.contactService.List(c.Request.Context(), token)
	if err != nil {
		if statusForError(err) == http.StatusUnauthorized {
			c.Redirect(http.StatusSeeOther, loginPath)
			return
		}
		logger.Error(err, "Failed to list contacts", nil)
		data["FormError"] = backendMessage(err, "Contact messages could not be loaded.")
	}
	data["Contacts"] = contacts
	if c.Query("status") == "deleted" {
		data["Notice"] = "Message deleted."
	}

	h.renderAdmin(c, http.StatusOK, "admin_contacts.html", "Contact messages", data)
}

func (h *ContactHandler) Delete(c *gin.Context) {
	token, ok := adminToken(c)
	if !ok {
		return
	}

	if err := h.contactService.Delete(c.Request.Context(), token, c.Param("id")); err != nil {
		logger.Error(err, "Failed to delete contact", map[string]interface{}{"id": c.Param("id")})
		h.renderError(c, statusForError(err), "Delete failed", backendMessage(err, "The message could not be deleted"))
		return
	}

	c.Redirect(http.StatusSeeOther, "/admin/contacts?status=deleted")
}
