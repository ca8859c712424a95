package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"firmsite/internal/content"
	"firmsite/internal/models"
	"firmsite/internal/service"
	"firmsite/pkg/logger"
)

// RenderPage serves one of the editable pages from its section content.
func (h *TemplateHandler) RenderPage(slug string) gin.HandlerFunc {
	info, ok := service.LookupPage(slug)
	if !ok {
		info = models.PageInfo{Slug: slug, Title: content.Humanize(slug), Path: "/" + slug}
	}

	return func(c *gin.Context) {
		data, status, ok := h.pageData(c, info)
		if !ok {
			return
		}
		if slug == "contact" {
			if c.Query("sent") == "1" {
				data["Notice"] = "Thank you. Your message has been sent."
			}
			data["Form"] = models.ContactForm{}
		}
		h.renderPublic(c, status, "page.html", info.Title, "", data)
	}
}

func (h *TemplateHandler) pageData(c *gin.Context, info models.PageInfo) (gin.H, int, bool) {
	page, err := h.pageService.GetPage(c.Request.Context(), info.Slug)
	if err != nil {
		if errors.Is(err, service.ErrPageNotFound) {
			h.renderError(c, http.StatusNotFound, "404 - Page not found", "The requested page could not be found")
			return nil, 0, false
		}
		logger.Error(err, "Failed to load page", map[string]interface{}{"slug": info.Slug})
		h.renderError(c, http.StatusBadGateway, "502 - Content unavailable", "The page content could not be loaded")
		return nil, 0, false
	}

	return gin.H{
		"Page":     info,
		"Sections": buildSectionViews(h.pageService.Classifier(), page.Sections),
	}, http.StatusOK, true
}

// SubmitContact handles the public contact form.
func (h *TemplateHandler) SubmitContact(c *gin.Context) {
	info, _ := service.LookupPage("contact")

	var form models.ContactForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderContactError(c, info, form, http.StatusBadRequest, "Please check the form: name, a valid email and a message are required.")
		return
	}

	if err := h.contactService.Submit(c.Request.Context(), form); err != nil {
		logger.Error(err, "Failed to submit contact form", nil)
		h.renderContactError(c, info, form, http.StatusBadGateway, backendMessage(err, "Your message could not be sent. Please try again later."))
		return
	}

	c.Redirect(http.StatusSeeOther, info.Path+"?sent=1")
}

func (h *TemplateHandler) renderContactError(c *gin.Context, info models.PageInfo, form models.ContactForm, status int, message string) {
	data, _, ok := h.pageData(c, info)
	if !ok {
		return
	}
	data["Form"] = form
	data["FormError"] = message
	h.renderPublic(c, status, "page.html", info.Title, "", data)
}

func (h *TemplateHandler) RenderBlog(c *gin.Context) {
	posts, err := h.postService.List(c.Request.Context())
	if err != nil {
		logger.Error(err, "Failed to load posts", nil)
		h.renderError(c, http.StatusBadGateway, "502 - Content unavailable", "The blog could not be loaded")
		return
	}

	h.renderPublic(c, http.StatusOK, "blog.html", "Blog", "", gin.H{"Posts": posts})
}

func (h *TemplateHandler) RenderPost(c *gin.Context) {
	post, err := h.postService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			h.renderError(c, http.StatusNotFound, "404 - Post not found", "The requested post could not be found")
			return
		}
		logger.Error(err, "Failed to load post", map[string]interface{}{"slug": c.Param("slug")})
		h.renderError(c, http.StatusBadGateway, "502 - Content unavailable", "The post could not be loaded")
		return
	}

	h.renderPublic(c, http.StatusOK, "post.html", post.Title, post.Excerpt, gin.H{
		"Post": post,
		"Body": longTextHTML(post.Body),
	})
}
