package cmsapi

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

type Post struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	CoverImage  string    `json:"coverImage"`
	Body        string    `json:"body,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var resp envelope[[]Post]
	if err := c.sendJSON(ctx, "list_posts", http.MethodGet, "/blogs", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) GetPost(ctx context.Context, slug string) (Post, error) {
	var resp envelope[Post]
	if err := c.sendJSON(ctx, "get_post", http.MethodGet, "/blogs/"+url.PathEscape(slug), "", nil, &resp); err != nil {
		return Post{}, err
	}
	return resp.Data, nil
}
