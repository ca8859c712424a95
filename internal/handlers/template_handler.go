package handlers

import (
	"firmsite/internal/service"
)

// TemplateHandler renders the public site.
type TemplateHandler struct {
	*Renderer
	pageService    *service.PageService
	postService    *service.PostService
	contactService *service.ContactService
}

func NewTemplateHandler(renderer *Renderer, pageService *service.PageService, postService *service.PostService, contactService *service.ContactService) *TemplateHandler {
	return &TemplateHandler{
		Renderer:       renderer,
		pageService:    pageService,
		postService:    postService,
		contactService: contactService,
	}
}
