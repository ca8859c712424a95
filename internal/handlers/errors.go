package handlers

import (
	"errors"
	"net/http"
	"strings"

	"firmsite/internal/cmsapi"
	"firmsite/internal/service"
)

// backendMessage prefers the message the backend sent for a rejected
// request and falls back to a generic one for everything else.
func backendMessage(err error, fallback string) string {
	var apiErr *cmsapi.APIError
	if errors.As(err, &apiErr) {
		if msg := strings.TrimSpace(apiErr.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}

// statusForError maps service and backend errors to a response status.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrPageNotFound),
		errors.Is(err, service.ErrSectionNotFound),
		errors.Is(err, service.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrFieldNotEditable),
		errors.Is(err, service.ErrUploadMissing),
		errors.Is(err, service.ErrUploadTooLarge),
		errors.Is(err, service.ErrUnsupportedUpload):
		return http.StatusBadRequest
	case errors.Is(err, cmsapi.ErrMediaNotConfigured),
		errors.Is(err, cmsapi.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}

	var apiErr *cmsapi.APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
