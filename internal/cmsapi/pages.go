package cmsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"firmsite/internal/content"
)

// RawSection is a section exactly as the backend returns it; Content still
// needs unboxing.
type RawSection struct {
	Key     string          `json:"sectionKey"`
	Content json.RawMessage `json:"content"`
}

type pageData struct {
	Sections []RawSection `json:"sections"`
}

type sectionData struct {
	Content json.RawMessage `json:"content"`
}

// GetPage returns the sections of a page.
func (c *Client) GetPage(ctx context.Context, slug string) ([]RawSection, error) {
	var resp envelope[pageData]
	path := "/pages/" + url.PathEscape(slug)
	if err := c.sendJSON(ctx, "get_page", http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Sections, nil
}

// PatchSection saves one section as multipart form fields and returns the
// content the backend stored.
func (c *Client) PatchSection(ctx context.Context, token, slug, sectionID string, sub *content.Submission) (json.RawMessage, error) {
	endpoint, err := c.endpoint(fmt.Sprintf("/pages/sections/%s/%s", url.PathEscape(slug), url.PathEscape(sectionID)))
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	contentType, err := sub.WriteMultipart(&body)
	if err != nil {
		return nil, fmt.Errorf("patch_section: encode form: %w", err)
	}

	var resp envelope[sectionData]
	err = c.send(ctx, request{
		operation:   "patch_section",
		method:      http.MethodPatch,
		url:         endpoint,
		bearer:      token,
		body:        &body,
		contentType: contentType,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data.Content, nil
}
