package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"firmsite/internal/models"
	"firmsite/internal/service"
	"firmsite/pkg/logger"
)

// UploadHandler serves the media endpoints used by the editor: plain uploads,
// upload-and-attach for one media field, picks from the library.
type UploadHandler struct {
	*Renderer
	uploadService *service.UploadService
	pageService   *service.PageService
}

func NewUploadHandler(renderer *Renderer, uploadService *service.UploadService, pageService *service.PageService) *UploadHandler {
	return &UploadHandler{Renderer: renderer, uploadService: uploadService, pageService: pageService}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	token, ok := adminToken(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	asset, err := h.uploadService.UploadImage(c.Request.Context(), token, file)
	if err != nil {
		h.respondError(c, err, "upload failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": asset.URL, "publicId": asset.PublicID})
}

// UploadToField uploads the file and points the media field named by the
// path form value at the new URL. A gallery gets the URL appended.
func (h *UploadHandler) UploadToField(c *gin.Context) {
	token, ok := adminToken(c)
	if !ok {
		return
	}

	path := strings.TrimSpace(c.PostForm("path"))
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	asset, err := h.uploadService.UploadImage(c.Request.Context(), token, file)
	if err != nil {
		h.respondError(c, err, "upload failed")
		return
	}

	h.attach(c, token, path, asset.URL)
}

// SelectForField points a media field at a URL picked from the library.
func (h *UploadHandler) SelectForField(c *gin.Context) {
	token, ok := adminToken(c)
	if !ok {
		return
	}

	var request struct {
		Path string `json:"path" form:"path" binding:"required"`
		URL  string `json:"url" form:"url" binding:"required,url"`
	}
	if err := c.ShouldBind(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path and a valid url are required"})
		return
	}

	h.attach(c, token, strings.TrimSpace(request.Path), strings.TrimSpace(request.URL))
}

func (h *UploadHandler) attach(c *gin.Context, token, path, url string) {
	var uri models.SectionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown page or section"})
		return
	}
	slug, sectionID := uri.Slug, uri.Section

	result, err := h.pageService.AttachMedia(c.Request.Context(), token, slug, sectionID, path, url)
	if err != nil {
		h.respondError(c, err, "the section could not be saved")
		return
	}

	logger.Info("Media attached", map[string]interface{}{"slug": slug, "section": sectionID, "path": path})
	c.JSON(http.StatusOK, gin.H{
		"url":     url,
		"path":    path,
		"section": result.Section,
	})
}

// Library lists every media URL used on the editable pages.
func (h *UploadHandler) Library(c *gin.Context) {
	urls := h.pageService.MediaLibrary(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"media": urls, "count": len(urls)})
}

func (h *UploadHandler) LibraryPage(c *gin.Context) {
	h.renderAdmin(c, http.StatusOK, "admin_media.html", "Media library", gin.H{
		"Media": h.pageService.MediaLibrary(c.Request.Context()),
	})
}

func (h *UploadHandler) respondError(c *gin.Context, err error, fallback string) {
	status := statusForError(err)
	if status == http.StatusBadRequest {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	logger.Error(err, "Media request failed", map[string]interface{}{"status": status})
	c.JSON(status, gin.H{"error": backendMessage(err, fallback)})
}
