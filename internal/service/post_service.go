package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"firmsite/internal/cmsapi"
	"firmsite/pkg/cache"
	"firmsite/pkg/logger"
)

var ErrPostNotFound = errors.New("post not found")

// PostService reads blog posts for the public site.
type PostService struct {
	backend  BlogBackend
	cache    *cache.Cache
	cacheTTL time.Duration
}

func NewPostService(backend BlogBackend, postCache *cache.Cache, cacheTTL time.Duration) *PostService {
	return &PostService{backend: backend, cache: postCache, cacheTTL: cacheTTL}
}

func (s *PostService) List(ctx context.Context) ([]cmsapi.Post, error) {
	var posts []cmsapi.Post
	if s.cache != nil && s.cache.GetCachedPosts("all", &posts) == nil {
		return posts, nil
	}

	posts, err := s.backend.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	s.store("all", posts)
	return posts, nil
}

func (s *PostService) GetBySlug(ctx context.Context, slug string) (*cmsapi.Post, error) {
	var post cmsapi.Post
	if s.cache != nil && s.cache.GetCachedPosts("slug:"+slug, &post) == nil {
		return &post, nil
	}

	post, err := s.backend.GetPost(ctx, slug)
	if err != nil {
		if cmsapi.IsStatus(err, http.StatusNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	s.store("slug:"+slug, post)
	return &post, nil
}

func (s *PostService) store(key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CachePosts(key, value, s.cacheTTL); err != nil {
		logger.Warn("Failed to cache posts", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
