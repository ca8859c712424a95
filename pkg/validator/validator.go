package validator

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	initOnce  sync.Once
	sanitizer *bluemonday.Policy
	strict    *bluemonday.Policy

	otpPattern   = regexp.MustCompile(`^[0-9A-Za-z]{4,8}$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// ImageExtensions are the upload types the media host accepts.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".avif"}

func Init() {
	initOnce.Do(func() {
		sanitizer = bluemonday.UGCPolicy()
		sanitizer.AllowAttrs("class").Globally()
		strict = bluemonday.StrictPolicy()

		if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerCustomValidations(engine)
		}
	})
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("otp", validateOTP)
	v.RegisterValidation("slug", validateSlug)
	v.RegisterValidation("no_html", validateNoHTML)
}

// SanitizeHTML keeps user-generated markup safe to render.
func SanitizeHTML(html string) string {
	Init()
	return sanitizer.Sanitize(html)
}

// SanitizeString strips every tag.
func SanitizeString(s string) string {
	Init()
	return strict.Sanitize(s)
}

func ValidateOTP(otp string) bool {
	return otpPattern.MatchString(strings.TrimSpace(otp))
}

func validateOTP(fl validator.FieldLevel) bool {
	return ValidateOTP(fl.Field().String())
}

func validateSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}

func validateNoHTML(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return !strings.Contains(value, "<") && !strings.Contains(value, ">")
}

func NormalizeSpaces(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func ValidateImageExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range ImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func ValidateFileSize(size int64, maxSize int64) bool {
	return size > 0 && size <= maxSize
}

// ValidateContentType validates that the provided MIME type is in the allowed list
func ValidateContentType(contentType string, allowedMimeTypes []string) bool {
	if contentType == "" || len(allowedMimeTypes) == 0 {
		return false
	}

	mimeType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	for _, allowed := range allowedMimeTypes {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if mimeType == allowed {
			return true
		}
		if strings.HasSuffix(allowed, "/*") && strings.HasPrefix(mimeType, strings.TrimSuffix(allowed, "*")) {
			return true
		}
	}

	return false
}

// ValidateImageContentType validates image MIME types
func ValidateImageContentType(contentType string) bool {
	return ValidateContentType(contentType, []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/svg+xml",
		"image/avif",
	})
}
