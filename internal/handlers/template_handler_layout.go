package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"firmsite/internal/middleware"
	"firmsite/internal/models"
	"firmsite/internal/service"
	"firmsite/pkg/logger"
)

const (
	publicLayout = "base.html"
	adminLayout  = "admin_base.html"
)

// Renderer executes a content template and wraps the result in a layout.
type Renderer struct {
	templates *template.Template
	siteName  string
}

func NewRenderer(templates *template.Template, siteName string) (*Renderer, error) {
	if templates == nil {
		return nil, fmt.Errorf("templates are required")
	}
	if siteName == "" {
		siteName = "Firmsite"
	}
	return &Renderer{templates: templates, siteName: siteName}, nil
}

func (r *Renderer) pageData(c *gin.Context, title, description string, extra gin.H) gin.H {
	fullTitle := r.siteName
	if title != "" {
		fullTitle = fmt.Sprintf("%s - %s", title, r.siteName)
	}

	data := gin.H{
		"Title":       fullTitle,
		"PageTitle":   title,
		"Description": description,
		"Site": gin.H{
			"Name": r.siteName,
			"Year": time.Now().Year(),
		},
		"Navigation":  publicNavigation(),
		"CurrentPath": c.Request.URL.Path,
		"CSRFToken":   middleware.CSRFToken(c),
	}

	if sess, ok := middleware.CurrentSession(c); ok && sess.Authenticated() {
		data["AdminEmail"] = sess.Email
	}

	for k, v := range extra {
		data[k] = v
	}
	return data
}

func publicNavigation() []models.PageInfo {
	items := make([]models.PageInfo, 0, len(service.EditablePages)+1)
	items = append(items, service.EditablePages...)
	items = append(items, models.PageInfo{Slug: "blog", Title: "Blog", Path: "/blog"})
	return items
}

// render executes content into data["Content"], then the layout around it.
func (r *Renderer) render(c *gin.Context, status int, layout, content string, data gin.H) {
	contentTmpl := r.templates.Lookup(content)
	if contentTmpl == nil {
		logger.Error(nil, "Content template not found", map[string]interface{}{"template": content})
		r.renderError(c, http.StatusInternalServerError, "500 - Server Error", "Template not found")
		return
	}

	buf, err := executeTemplate(contentTmpl, data)
	if err != nil {
		logger.Error(err, "Failed to render content", map[string]interface{}{"template": content})
		r.renderError(c, http.StatusInternalServerError, "500 - Server Error", "Failed to render content")
		return
	}
	data["Content"] = template.HTML(buf)

	layoutTmpl := r.templates.Lookup(layout)
	if layoutTmpl == nil {
		logger.Error(nil, "Layout template not found", map[string]interface{}{"template": layout})
		r.renderError(c, http.StatusInternalServerError, "500 - Server Error", "Template not found")
		return
	}

	output, err := executeTemplate(layoutTmpl, data)
	if err != nil {
		logger.Error(err, "Failed to render layout", map[string]interface{}{"template": layout})
		r.renderError(c, http.StatusInternalServerError, "500 - Server Error", "Failed to render layout")
		return
	}

	c.Data(status, "text/html; charset=utf-8", output)
}

func (r *Renderer) renderPublic(c *gin.Context, status int, content, title, description string, extra gin.H) {
	r.render(c, status, publicLayout, content, r.pageData(c, title, description, extra))
}

func (r *Renderer) renderAdmin(c *gin.Context, status int, content, title string, extra gin.H) {
	r.render(c, status, adminLayout, content, r.pageData(c, title, "", extra))
}

func (r *Renderer) renderError(c *gin.Context, status int, title, msg string) {
	data := gin.H{
		"Title":      title,
		"error":      msg,
		"StatusCode": status,
		"Site":       gin.H{"Name": r.siteName, "Year": time.Now().Year()},
	}

	errorTmpl := r.templates.Lookup("error.html")
	if errorTmpl == nil {
		logger.Error(nil, "Error template missing", nil)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	output, err := executeTemplate(errorTmpl, data)
	if err != nil {
		logger.Error(err, "Failed to render error template", nil)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Data(status, "text/html; charset=utf-8", output)
}

// NotFound renders the 404 page for unknown routes.
func (r *Renderer) NotFound(c *gin.Context) {
	r.renderError(c, http.StatusNotFound, "404 - Page not found", "The requested page could not be found")
}

func executeTemplate(tmpl *template.Template, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
