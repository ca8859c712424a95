package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"firmsite/internal/cmsapi"
	"firmsite/internal/content"
	"firmsite/internal/middleware"
	"firmsite/internal/service"
	"firmsite/internal/session"
	"firmsite/pkg/cache"
	"firmsite/pkg/utils"
	"firmsite/pkg/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Init()
}

const heroSection = `{"title":"Welcome to Acme","image":"https://res.cloudinary.com/demo/hero.jpg","gallery":["https://res.cloudinary.com/demo/a.jpg"]}`

type stubBackend struct {
	contacts []cmsapi.ContactRequest
	patches  []map[string]string
	posts    []cmsapi.Post
}

func (s *stubBackend) GetPage(ctx context.Context, slug string) ([]cmsapi.RawSection, error) {
	switch slug {
	case "home":
		return []cmsapi.RawSection{{Key: "hero", Content: json.RawMessage(heroSection)}}, nil
	case "contact":
		return []cmsapi.RawSection{}, nil
	}
	return nil, &cmsapi.APIError{Operation: "get_page", Status: http.StatusNotFound}
}

func (s *stubBackend) PatchSection(ctx context.Context, token, slug, sectionID string, sub *content.Submission) (json.RawMessage, error) {
	fields := map[string]string{"token": token}
	for _, field := range sub.Fields {
		fields[field.Name] = field.Value
	}
	s.patches = append(s.patches, fields)
	return nil, nil
}

func (s *stubBackend) UploadMedia(ctx context.Context, token string, file cmsapi.MediaFile, folder string) (cmsapi.MediaAsset, error) {
	return cmsapi.MediaAsset{URL: "https://res.cloudinary.com/demo/" + file.Filename, PublicID: file.Filename}, nil
}

func (s *stubBackend) SubmitContact(ctx context.Context, req cmsapi.ContactRequest) error {
	s.contacts = append(s.contacts, req)
	return nil
}

func (s *stubBackend) ListContacts(ctx context.Context, token string) ([]cmsapi.Contact, error) {
	return nil, nil
}

func (s *stubBackend) DeleteContact(ctx context.Context, token, id string) error { return nil }

func (s *stubBackend) ListUsers(ctx context.Context, token string) ([]cmsapi.User, error) {
	return []cmsapi.User{{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: "admin"}}, nil
}

func (s *stubBackend) CreateUser(ctx context.Context, token string, req cmsapi.CreateUserRequest) (cmsapi.User, error) {
	return cmsapi.User{ID: "u2", Name: req.Name, Email: req.Email, Role: req.Role}, nil
}

func (s *stubBackend) DeleteUser(ctx context.Context, token, id string) error { return nil }

func (s *stubBackend) ListPosts(ctx context.Context) ([]cmsapi.Post, error) {
	return s.posts, nil
}

func (s *stubBackend) GetPost(ctx context.Context, slug string) (cmsapi.Post, error) {
	for _, post := range s.posts {
		if post.Slug == slug {
			return post, nil
		}
	}
	return cmsapi.Post{}, &cmsapi.APIError{Operation: "get_post", Status: http.StatusNotFound}
}

func (s *stubBackend) RequestOTP(ctx context.Context, email string) error { return nil }

func (s *stubBackend) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	return "session-token", nil
}

func (s *stubBackend) Login(ctx context.Context, email, password, sessionToken string) (string, error) {
	return "auth-token", nil
}

type testServer struct {
	router  *gin.Engine
	backend *stubBackend
	store   *session.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	templates, err := utils.LoadTemplates("../../templates")
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	renderer, err := NewRenderer(templates, "Acme")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	backend := &stubBackend{posts: []cmsapi.Post{{
		Slug:        "launch",
		Title:       "We launched",
		Excerpt:     "Short news",
		Body:        "First line\nSecond line",
		PublishedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}}}

	ctx, cancel := context.WithCancel(context.Background())
	store := session.NewMemoryStore(ctx, time.Hour)
	auth := service.NewAuthService(ctx, backend, store, 30, time.Hour)
	t.Cleanup(func() {
		_ = auth.Shutdown()
		_ = store.Shutdown()
		cancel()
	})

	pages := service.NewPageService(backend, nil, nil, cache.NewMemoryCache(), time.Minute)
	posts := service.NewPostService(backend, nil, 0)
	uploads := service.NewUploadService(backend, "site", 1<<20)
	contacts := service.NewContactService(backend, nil, nil, "", "Acme")

	templateHandler := NewTemplateHandler(renderer, pages, posts, contacts)
	authHandler := NewAuthHandler(renderer, auth)
	sectionHandler := NewSectionHandler(renderer, pages, uploads)
	uploadHandler := NewUploadHandler(renderer, uploads, pages)
	userHandler := NewUserHandler(renderer, service.NewUserService(backend))

	router := gin.New()
	router.GET("/", templateHandler.RenderPage("home"))
	router.GET("/about", templateHandler.RenderPage("about"))
	router.POST("/contact", templateHandler.SubmitContact)
	router.GET("/blog", templateHandler.RenderBlog)
	router.GET("/blog/:slug", templateHandler.RenderPost)

	admin := router.Group("/admin", middleware.SessionMiddleware(store, time.Hour, false))
	admin.GET("/login", authHandler.LoginPage)
	admin.POST("/login/email", authHandler.SubmitEmail)
	admin.POST("/login/otp", authHandler.SubmitOTP)
	admin.POST("/login/password", authHandler.SubmitPassword)

	protected := admin.Group("", middleware.RequireAdmin())
	protected.GET("/pages/:slug/sections/:section", sectionHandler.EditSection)
	protected.POST("/pages/:slug/sections/:section", sectionHandler.SaveSection)
	protected.GET("/users", userHandler.List)
	protected.POST("/api/pages/:slug/sections/:section/media/select", uploadHandler.SelectForField)
	protected.GET("/api/media", uploadHandler.Library)

	router.NoRoute(renderer.NotFound)

	return &testServer{router: router, backend: backend, store: store}
}

// signIn stores an authenticated session and returns its cookie.
func (s *testServer) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	sess, err := s.store.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	sess.Email = "ada@example.com"
	sess.AuthToken = "auth-token"
	if err := s.store.Save(context.Background(), sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return &http.Cookie{Name: middleware.SessionCookieName, Value: sess.ID}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestRenderPageShowsSections(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Welcome to Acme", "https://res.cloudinary.com/demo/hero.jpg", "<title>Home - Acme</title>"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q", want)
		}
	}
}

func TestRenderPageNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/about", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubmitContactRedirects(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(postForm("/contact", url.Values{
		"name":    {"Grace"},
		"email":   {"grace@example.com"},
		"message": {"Hello <script>x</script>there"},
	}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/contact?sent=1" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if len(srv.backend.contacts) != 1 {
		t.Fatalf("expected one submission, got %d", len(srv.backend.contacts))
	}
	if strings.Contains(srv.backend.contacts[0].Message, "<script>") {
		t.Fatalf("message was not sanitized: %q", srv.backend.contacts[0].Message)
	}
}

func TestSubmitContactRejectsInvalidForm(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(postForm("/contact", url.Values{"name": {"Grace"}, "message": {"Hi"}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="Grace"`) {
		t.Fatalf("expected the submitted name to be kept")
	}
	if len(srv.backend.contacts) != 0 {
		t.Fatalf("invalid form must not reach the backend")
	}
}

func TestRenderBlogAndPost(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/blog", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `href="/blog/launch"`) {
		t.Fatalf("blog listing missing post: %d", rec.Code)
	}

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/blog/launch", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "First line<br") || !strings.Contains(body, "Second line") {
		t.Fatalf("expected line breaks in post body")
	}

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/blog/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown post, got %d", rec.Code)
	}
}

func TestRenderBlogFallsBackForUntitledPost(t *testing.T) {
	srv := newTestServer(t)
	srv.backend.posts = append(srv.backend.posts, cmsapi.Post{Slug: "draft", Body: "No title yet"})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/blog", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Untitled post") {
		t.Fatalf("expected fallback title in listing: %d", rec.Code)
	}

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/blog/draft", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h1>Untitled post</h1>") {
		t.Fatalf("expected fallback title on post page: %d", rec.Code)
	}
}

func TestEditorRequiresAdmin(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/admin/pages/home/sections/hero", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestEditSectionRendersInputs(t *testing.T) {
	srv := newTestServer(t)
	cookie := srv.signIn(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/admin/pages/home/sections/hero", nil), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`name="field.title"`, `name="field.image"`, `name="field.gallery.0"`, `name="imageFile"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected editor to contain %q", want)
		}
	}
}

func TestSaveSectionRedirectsWithStatus(t *testing.T) {
	srv := newTestServer(t)
	cookie := srv.signIn(t)

	rec := srv.do(postForm("/admin/pages/home/sections/hero", url.Values{"field.title": {"Hello"}}), cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/pages/home/sections/hero?status=saved" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if len(srv.backend.patches) != 1 {
		t.Fatalf("expected one patch, got %d", len(srv.backend.patches))
	}
	patch := srv.backend.patches[0]
	if patch["title"] != "Hello" || patch["token"] != "auth-token" {
		t.Fatalf("unexpected patch %v", patch)
	}

	rec = srv.do(postForm("/admin/pages/home/sections/hero", url.Values{"field.title": {"Welcome to Acme"}}), cookie)
	if loc := rec.Header().Get("Location"); !strings.HasSuffix(loc, "?status=unchanged") {
		t.Fatalf("expected unchanged status, got %q", loc)
	}
}

func TestSaveSectionRejectsUnknownField(t *testing.T) {
	srv := newTestServer(t)
	cookie := srv.signIn(t)

	rec := srv.do(postForm("/admin/pages/home/sections/hero", url.Values{
		"field.title":   {"Kept"},
		"field.missing": {"x"},
	}), cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="Kept"`) {
		t.Fatalf("expected submitted value to be kept in the editor")
	}
	if len(srv.backend.patches) != 0 {
		t.Fatalf("rejected edit must not reach the backend")
	}
}

func TestSectionRoutesRejectMalformedSlug(t *testing.T) {
	srv := newTestServer(t)
	cookie := srv.signIn(t)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"editor", httptest.NewRequest(http.MethodGet, "/admin/pages/Home_Page/sections/hero", nil)},
		{"save", postForm("/admin/pages/Home_Page/sections/hero", url.Values{"field.title": {"Hello"}})},
		{"select", postForm("/admin/api/pages/Home_Page/sections/hero/media/select", url.Values{
			"path": {"gallery"},
			"url":  {"https://res.cloudinary.com/demo/b.jpg"},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(tt.req, cookie)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
			}
			if len(srv.backend.patches) != 0 {
				t.Fatalf("malformed slug must not reach the backend")
			}
		})
	}
}

func TestSelectForFieldAttachesURL(t *testing.T) {
	srv := newTestServer(t)
	cookie := srv.signIn(t)

	req := postForm("/admin/api/pages/home/sections/hero/media/select", url.Values{
		"path": {"gallery"},
		"url":  {"https://res.cloudinary.com/demo/b.jpg"},
	})
	rec := srv.do(req, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		URL  string `json:"url"`
		Path string `json:"path"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Path != "gallery" || payload.URL != "https://res.cloudinary.com/demo/b.jpg" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	bad := srv.do(postForm("/admin/api/pages/home/sections/hero/media/select", url.Values{
		"path": {"title"},
		"url":  {"https://res.cloudinary.com/demo/b.jpg"},
	}), cookie)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a text field, got %d", bad.Code)
	}
}

func TestLibraryListsMedia(t *testing.T) {
	srv := newTestServer(t)
	cookie := srv.signIn(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/admin/api/media", nil), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Media []string `json:"media"`
		Count int      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 2 {
		t.Fatalf("expected two media urls, got %v", payload.Media)
	}
}

func TestLoginFlowSignsIn(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `action="/admin/login/email"`) {
		t.Fatalf("expected email step, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}
	cookie := cookies[0]

	steps := []struct {
		target string
		values url.Values
		want   string
	}{
		{target: "/admin/login/email", values: url.Values{"email": {"ada@example.com"}}, want: "/admin/login"},
		{target: "/admin/login/otp", values: url.Values{"otp": {"123456"}}, want: "/admin/login"},
		{target: "/admin/login/password", values: url.Values{"password": {"secret"}}, want: "/admin"},
	}
	for _, step := range steps {
		rec := srv.do(postForm(step.target, step.values), cookie)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected 303, got %d: %s", step.target, rec.Code, rec.Body.String())
		}
		if loc := rec.Header().Get("Location"); loc != step.want {
			t.Fatalf("%s: unexpected redirect %q", step.target, loc)
		}
	}

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/admin/users", nil), cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ada@example.com") {
		t.Fatalf("expected the users page after sign-in, got %d", rec.Code)
	}
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404 - Page not found") {
		t.Fatalf("expected the error page")
	}
}
