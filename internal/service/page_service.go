package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"firmsite/internal/cmsapi"
	"firmsite/internal/config"
	"firmsite/internal/content"
	"firmsite/internal/models"
	"firmsite/pkg/cache"
	"firmsite/pkg/logger"
)

var (
	ErrPageNotFound     = errors.New("page not found")
	ErrSectionNotFound  = errors.New("section not found")
	ErrFieldNotEditable = errors.New("field cannot be edited")
)

// EditablePages are the pages exposed on the admin dashboard and the public site.
var EditablePages = []models.PageInfo{
	{Slug: "home", Title: "Home", Path: "/"},
	{Slug: "about", Title: "About", Path: "/about"},
	{Slug: "services", Title: "Services", Path: "/services"},
	{Slug: "contact", Title: "Contact", Path: "/contact"},
}

// LookupPage returns the editable page registered under slug.
func LookupPage(slug string) (models.PageInfo, bool) {
	for _, page := range EditablePages {
		if page.Slug == slug {
			return page, true
		}
	}
	return models.PageInfo{}, false
}

// Page is a page with its sections unboxed, in backend order followed by
// any sections supplied only by the defaults file.
type Page struct {
	Slug     string
	Sections []content.Section
}

func (p *Page) Section(id string) (content.Section, bool) {
	for _, section := range p.Sections {
		if section.ID == id {
			return section, true
		}
	}
	return content.Section{}, false
}

type PageService struct {
	backend    PageBackend
	classifier *content.Classifier
	defaults   config.PageDefaults
	cache      *cache.Cache
	cacheTTL   time.Duration

	// saves to one section run one at a time
	sectionLocks sync.Map
}

func NewPageService(backend PageBackend, classifier *content.Classifier, defaults config.PageDefaults, pageCache *cache.Cache, cacheTTL time.Duration) *PageService {
	if classifier == nil {
		classifier = content.Default
	}
	return &PageService{
		backend:    backend,
		classifier: classifier,
		defaults:   defaults,
		cache:      pageCache,
		cacheTTL:   cacheTTL,
	}
}

func (s *PageService) Classifier() *content.Classifier {
	return s.classifier
}

// GetPage loads a page for public rendering. Raw sections are cached so key
// order survives the round trip.
func (s *PageService) GetPage(ctx context.Context, slug string) (*Page, error) {
	if s.cache != nil {
		var raw []cmsapi.RawSection
		if err := s.cache.GetCachedPage(slug, &raw); err == nil {
			return s.buildPage(slug, raw)
		}
	}

	raw, err := s.fetch(ctx, slug)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(raw) > 0 {
		if err := s.cache.CachePage(slug, raw, s.cacheTTL); err != nil {
			logger.Warn("Failed to cache page", map[string]interface{}{"slug": slug, "error": err.Error()})
		}
	}

	return s.buildPage(slug, raw)
}

// LoadPage always reads from the backend; the editor must not work on stale content.
func (s *PageService) LoadPage(ctx context.Context, slug string) (*Page, error) {
	raw, err := s.fetch(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.buildPage(slug, raw)
}

func (s *PageService) LoadSection(ctx context.Context, slug, sectionID string) (content.Section, error) {
	page, err := s.LoadPage(ctx, slug)
	if err != nil {
		return content.Section{}, err
	}
	section, ok := page.Section(sectionID)
	if !ok {
		return content.Section{}, ErrSectionNotFound
	}
	return section, nil
}

func (s *PageService) fetch(ctx context.Context, slug string) ([]cmsapi.RawSection, error) {
	raw, err := s.backend.GetPage(ctx, slug)
	if err == nil {
		return raw, nil
	}

	if len(s.defaults.Sections(slug)) == 0 {
		if cmsapi.IsStatus(err, http.StatusNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("load page %s: %w", slug, err)
	}

	logger.Warn("Backend page unavailable, serving defaults", map[string]interface{}{
		"slug":  slug,
		"error": err.Error(),
	})
	return nil, nil
}

func (s *PageService) buildPage(slug string, raw []cmsapi.RawSection) (*Page, error) {
	page := &Page{Slug: slug, Sections: make([]content.Section, 0, len(raw))}
	seen := make(map[string]struct{}, len(raw))

	for _, item := range raw {
		section, err := s.classifier.NewSection(item.Key, item.Content)
		if err != nil {
			logger.Warn("Skipping undecodable section", map[string]interface{}{
				"slug":    slug,
				"section": item.Key,
				"error":   err.Error(),
			})
			continue
		}
		page.Sections = append(page.Sections, section)
		seen[item.Key] = struct{}{}
	}

	defaults := s.defaults.Sections(slug)
	ids := make([]string, 0, len(defaults))
	for id := range defaults {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		data, err := json.Marshal(defaults[id])
		if err != nil {
			return nil, fmt.Errorf("encode default section %s: %w", id, err)
		}
		section, err := s.classifier.NewSection(id, data)
		if err != nil {
			return nil, err
		}
		page.Sections = append(page.Sections, section)
	}

	if len(page.Sections) == 0 && len(raw) == 0 {
		return nil, ErrPageNotFound
	}
	return page, nil
}

// SectionEdit is one submitted editor form.
type SectionEdit struct {
	Values     map[string]string
	Attachment *content.Attachment
}

// SaveResult is the section as stored by the backend after a save.
type SaveResult struct {
	Section content.Section
	Saved   bool
}

// SaveSection applies edit to the freshly loaded section and PATCHes it.
// Only text and media leaves may be edited; any other path is rejected
// before the backend is called. Nothing is sent when the edit changes
// nothing and carries no attachment.
func (s *PageService) SaveSection(ctx context.Context, token, slug, sectionID string, edit SectionEdit) (SaveResult, error) {
	unlock := s.lockSection(slug, sectionID)
	defer unlock()

	section, err := s.LoadSection(ctx, slug, sectionID)
	if err != nil {
		return SaveResult{}, err
	}

	draft := s.classifier.NewDraft(section)
	if err := applyValues(draft, edit.Values); err != nil {
		return SaveResult{Section: section}, err
	}

	if !draft.Dirty() && edit.Attachment == nil {
		return SaveResult{Section: section}, nil
	}

	return s.submit(ctx, token, slug, draft, edit.Attachment)
}

// AttachMedia points the media field at path to url and saves the section.
// For a gallery the url is appended.
func (s *PageService) AttachMedia(ctx context.Context, token, slug, sectionID, path, url string) (SaveResult, error) {
	unlock := s.lockSection(slug, sectionID)
	defer unlock()

	section, err := s.LoadSection(ctx, slug, sectionID)
	if err != nil {
		return SaveResult{}, err
	}

	draft := s.classifier.NewDraft(section)
	apply, err := draft.MediaTarget(path)
	if err != nil {
		return SaveResult{Section: section}, fmt.Errorf("%w: %v", ErrFieldNotEditable, err)
	}
	if err := apply(url); err != nil {
		return SaveResult{Section: section}, err
	}

	return s.submit(ctx, token, slug, draft, nil)
}

func (s *PageService) lockSection(slug, sectionID string) func() {
	value, _ := s.sectionLocks.LoadOrStore(slug+"/"+sectionID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *PageService) submit(ctx context.Context, token, slug string, draft *content.Draft, attachment *content.Attachment) (SaveResult, error) {
	sub, err := content.SerializeForSubmission(draft.Tree(), attachment)
	if err != nil {
		return SaveResult{}, err
	}

	raw, err := s.backend.PatchSection(ctx, token, slug, draft.SectionID(), sub)
	if err != nil {
		return SaveResult{}, err
	}

	saved := content.Section{ID: draft.SectionID(), Content: draft.Tree()}
	if len(raw) > 0 {
		if saved, err = s.classifier.NewSection(draft.SectionID(), raw); err != nil {
			return SaveResult{}, err
		}
	}

	if s.cache != nil {
		if err := s.cache.InvalidatePage(slug); err != nil {
			logger.Warn("Failed to invalidate page cache", map[string]interface{}{"slug": slug, "error": err.Error()})
		}
	}

	logger.Info("Section saved", map[string]interface{}{"slug": slug, "section": draft.SectionID()})
	return SaveResult{Section: saved, Saved: true}, nil
}

func applyValues(draft *content.Draft, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	leaves := editableLeaves(draft.Fields())
	paths := make([]string, 0, len(values))
	for path := range values {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		field, ok := leaves[path]
		if !ok {
			return fmt.Errorf("%w: %s", ErrFieldNotEditable, path)
		}

		value := values[path]
		if field.Kind == content.KindMedia {
			if value == field.Text() || strings.TrimSpace(value) == field.Text() {
				continue
			}
			value = strings.TrimSpace(value)
			apply, err := draft.MediaTarget(path)
			if err != nil {
				return err
			}
			if err := apply(value); err != nil {
				return err
			}
			continue
		}

		if err := draft.Set(path, value); err != nil {
			return err
		}
	}
	return nil
}

// editableLeaves maps the path of every text and media field to the field.
func editableLeaves(fields []content.Field) map[string]content.Field {
	leaves := make(map[string]content.Field)
	var walk func([]content.Field)
	walk = func(fields []content.Field) {
		for _, field := range fields {
			switch field.Kind {
			case content.KindShortText, content.KindLongText, content.KindMedia:
				leaves[field.Path] = field
			}
			walk(field.Children)
		}
	}
	walk(fields)
	return leaves
}

// MediaLibrary lists every media URL used across the editable pages.
func (s *PageService) MediaLibrary(ctx context.Context) []string {
	var urls []string
	seen := map[string]struct{}{}
	for _, info := range EditablePages {
		page, err := s.LoadPage(ctx, info.Slug)
		if err != nil {
			logger.Warn("Skipping page in media library", map[string]interface{}{"slug": info.Slug, "error": err.Error()})
			continue
		}
		for _, section := range page.Sections {
			for _, url := range s.classifier.CollectMedia(section.Content) {
				if _, ok := seen[url]; ok {
					continue
				}
				seen[url] = struct{}{}
				urls = append(urls, url)
			}
		}
	}
	return urls
}

// WarmCache loads every editable page into the page cache.
func (s *PageService) WarmCache(ctx context.Context) error {
	if s.cache == nil || !s.cache.Enabled() {
		return nil
	}

	var errs []error
	for _, info := range EditablePages {
		if _, err := s.GetPage(ctx, info.Slug); err != nil && !errors.Is(err, ErrPageNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
