package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"firmsite/internal/content"
	"firmsite/internal/middleware"
	"firmsite/internal/models"
	"firmsite/internal/service"
	"firmsite/pkg/logger"
)

// fieldInputPrefix namespaces editor inputs so they cannot collide with the
// CSRF field or the image attachment.
const fieldInputPrefix = "field."

// SectionHandler serves the admin dashboard and the generic section editor.
type SectionHandler struct {
	*Renderer
	pageService   *service.PageService
	uploadService *service.UploadService
}

func NewSectionHandler(renderer *Renderer, pageService *service.PageService, uploadService *service.UploadService) *SectionHandler {
	return &SectionHandler{Renderer: renderer, pageService: pageService, uploadService: uploadService}
}

type dashboardPage struct {
	Slug     string
	Title    string
	Path     string
	Sections []SectionView
	Error    string
}

func (h *SectionHandler) Dashboard(c *gin.Context) {
	pages := make([]dashboardPage, 0, len(service.EditablePages))
	for _, info := range service.EditablePages {
		entry := dashboardPage{Slug: info.Slug, Title: info.Title, Path: info.Path}

		page, err := h.pageService.LoadPage(c.Request.Context(), info.Slug)
		switch {
		case err == nil:
			entry.Sections = buildSectionViews(h.pageService.Classifier(), page.Sections)
		case errors.Is(err, service.ErrPageNotFound):
		default:
			logger.Error(err, "Failed to load page for dashboard", map[string]interface{}{"slug": info.Slug})
			entry.Error = backendMessage(err, "Content could not be loaded")
		}
		pages = append(pages, entry)
	}

	h.renderAdmin(c, http.StatusOK, "admin_dashboard.html", "Dashboard", gin.H{"Pages": pages})
}

func (h *SectionHandler) EditSection(c *gin.Context) {
	slug, sectionID, ok := h.sectionParams(c)
	if !ok {
		return
	}

	section, err := h.pageService.LoadSection(c.Request.Context(), slug, sectionID)
	if err != nil {
		h.renderLoadError(c, err)
		return
	}

	notice := ""
	switch c.Query("status") {
	case "saved":
		notice = "Section saved."
	case "unchanged":
		notice = "Nothing changed."
	}

	h.renderEditor(c, http.StatusOK, slug, section, nil, notice, "")
}

// SaveSection applies the submitted editor form. Inputs are named
// "field.<path>"; an optional imageFile travels to the backend as binary.
func (h *SectionHandler) SaveSection(c *gin.Context) {
	slug, sectionID, ok := h.sectionParams(c)
	if !ok {
		return
	}
	token, ok := adminToken(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadService.MaxSize()+1<<20)
	if err := c.Request.ParseMultipartForm(h.uploadService.MaxSize()); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderError(c, http.StatusBadRequest, "400 - Bad Request", "The form could not be read")
		return
	}

	values := editorValues(c.Request.PostForm)
	edit := service.SectionEdit{Values: values}

	if fh, err := c.FormFile(content.AttachmentField); err == nil {
		attachment, file, err := h.uploadService.Attachment(fh)
		if err != nil {
			h.renderSaveError(c, slug, sectionID, values, err)
			return
		}
		defer file.Close()
		edit.Attachment = attachment
	}

	result, err := h.pageService.SaveSection(c.Request.Context(), token, slug, sectionID, edit)
	if err != nil {
		h.renderSaveError(c, slug, sectionID, values, err)
		return
	}

	status := "unchanged"
	if result.Saved {
		status = "saved"
	}
	c.Redirect(http.StatusSeeOther, editorPath(slug, sectionID)+"?status="+status)
}

func (h *SectionHandler) renderSaveError(c *gin.Context, slug, sectionID string, values map[string]string, err error) {
	status := statusForError(err)
	if status == http.StatusNotFound {
		h.renderLoadError(c, err)
		return
	}
	if status == http.StatusUnauthorized {
		c.Redirect(http.StatusSeeOther, loginPath)
		return
	}

	logger.Warn("Section save failed", map[string]interface{}{
		"slug":    slug,
		"section": sectionID,
		"error":   err.Error(),
	})

	section, loadErr := h.pageService.LoadSection(c.Request.Context(), slug, sectionID)
	if loadErr != nil {
		h.renderLoadError(c, loadErr)
		return
	}

	message := backendMessage(err, "The section could not be saved. Please try again.")
	if status == http.StatusBadRequest {
		message = err.Error()
	}
	h.renderEditor(c, status, slug, section, values, "", message)
}

func (h *SectionHandler) renderEditor(c *gin.Context, status int, slug string, section content.Section, values map[string]string, notice, formError string) {
	info, ok := service.LookupPage(slug)
	if !ok {
		info.Slug, info.Title = slug, content.Humanize(slug)
	}

	view := buildSectionView(h.pageService.Classifier(), section)
	if len(values) > 0 {
		overlayValues(view.Fields, values)
	}

	h.renderAdmin(c, status, "admin_editor.html", view.Title+" - "+info.Title, gin.H{
		"PageInfo":    info,
		"Section":     view,
		"Action":      editorPath(slug, section.ID),
		"MediaAction": "/admin/api" + strings.TrimPrefix(editorPath(slug, section.ID), "/admin") + "/media",
		"InputPrefix": fieldInputPrefix,
		"Attachment":  content.AttachmentField,
		"MaxUpload":   h.uploadService.MaxSize(),
		"Notice":      notice,
		"FormError":   formError,
	})
}

func (h *SectionHandler) renderLoadError(c *gin.Context, err error) {
	if statusForError(err) == http.StatusNotFound {
		h.renderError(c, http.StatusNotFound, "404 - Not found", "The page or section does not exist")
		return
	}
	logger.Error(err, "Failed to load section", nil)
	h.renderError(c, http.StatusBadGateway, "502 - Content unavailable", backendMessage(err, "The section could not be loaded"))
}

// sectionParams binds the page slug and section id from the route.
func (h *SectionHandler) sectionParams(c *gin.Context) (string, string, bool) {
	var uri models.SectionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.renderError(c, http.StatusNotFound, "404 - Not found", "The page or section does not exist")
		return "", "", false
	}
	return uri.Slug, uri.Section, true
}

func editorPath(slug, sectionID string) string {
	return "/admin/pages/" + url.PathEscape(slug) + "/sections/" + url.PathEscape(sectionID)
}

func editorValues(form url.Values) map[string]string {
	values := make(map[string]string)
	for key, vals := range form {
		if !strings.HasPrefix(key, fieldInputPrefix) || len(vals) == 0 {
			continue
		}
		values[strings.TrimPrefix(key, fieldInputPrefix)] = vals[0]
	}
	return values
}

// adminToken returns the admin token of the signed in session. RequireAdmin
// runs first, so a miss means the session vanished mid-request.
func adminToken(c *gin.Context) (string, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok || !sess.Authenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin login required"})
		return "", false
	}
	return sess.AuthToken, true
}
