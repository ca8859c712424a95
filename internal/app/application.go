package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"firmsite/internal/background"
	"firmsite/internal/cmsapi"
	"firmsite/internal/config"
	"firmsite/internal/content"
	"firmsite/internal/handlers"
	"firmsite/internal/middleware"
	"firmsite/internal/service"
	"firmsite/internal/session"
	"firmsite/pkg/cache"
	"firmsite/pkg/logger"
	"firmsite/pkg/utils"
)

type Application struct {
	cfg *config.Config

	ctx    context.Context
	cancel context.CancelFunc

	redis       *redis.Client
	redisCache  *cache.Cache
	cache       *cache.Cache
	sessions    session.Store
	memStore    *session.MemoryStore
	backend     *cmsapi.Client
	scheduler   *background.Scheduler
	rateLimiter *middleware.RateLimitManager

	services serviceContainer
	handlers handlerContainer

	router *gin.Engine
	server *http.Server
}

type serviceContainer struct {
	Auth    *service.AuthService
	Page    *service.PageService
	Post    *service.PostService
	Upload  *service.UploadService
	Contact *service.ContactService
	User    *service.UserService
	Email   *service.EmailService
}

type handlerContainer struct {
	Template *handlers.TemplateHandler
	Auth     *handlers.AuthHandler
	Section  *handlers.SectionHandler
	Upload   *handlers.UploadHandler
	Contact  *handlers.ContactHandler
	User     *handlers.UserHandler
	renderer *handlers.Renderer
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{cfg: cfg, ctx: ctx, cancel: cancel}

	if err := app.initCache(); err != nil {
		cancel()
		return nil, err
	}
	app.initSessions()

	if err := app.initServices(); err != nil {
		app.release()
		return nil, err
	}

	if err := app.initHandlers(); err != nil {
		app.release()
		return nil, err
	}

	app.initRouter()

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	a.warmCache()

	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
		"backend":     a.cfg.BackendURL,
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			logger.Error(err, "Background jobs did not finish before shutdown", nil)
		}
	}

	a.release()
	return errors.Join(errs...)
}

// release stops the background loops and closes connections.
func (a *Application) release() {
	if a.services.Auth != nil {
		_ = a.services.Auth.Shutdown()
	}
	if a.rateLimiter != nil {
		_ = a.rateLimiter.Shutdown()
	}
	if a.memStore != nil {
		_ = a.memStore.Shutdown()
	}
	a.cancel()

	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			logger.Error(err, "Failed to close Redis connection", nil)
		}
	}
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initCache() error {
	if a.cfg.EnableRedis {
		redisCache, err := cache.NewCache(a.cfg.RedisURL, true)
		if err != nil {
			return err
		}
		a.redisCache = redisCache
		a.redis = redisCache.Client()
		logger.Info("Connected to Redis", map[string]interface{}{"addr": a.cfg.RedisURL})
	}

	switch {
	case !a.cfg.EnableCache:
		a.cache, _ = cache.NewCache("", false)
	case a.redisCache != nil:
		a.cache = a.redisCache
	default:
		a.cache = cache.NewMemoryCache()
	}
	return nil
}

func (a *Application) initSessions() {
	if a.redis != nil {
		a.sessions = session.NewRedisStore(a.redis, a.cfg.SessionTTL)
		return
	}
	a.memStore = session.NewMemoryStore(a.ctx, a.cfg.SessionTTL)
	a.sessions = a.memStore
}

func (a *Application) initServices() error {
	defaults, err := config.LoadPageDefaults(a.cfg.PageDefaultsFile)
	if err != nil {
		return err
	}

	a.backend = cmsapi.New(cmsapi.Options{
		BaseURL:        a.cfg.BackendURL,
		MediaUploadURL: a.cfg.MediaUploadURL,
		Timeout:        a.cfg.BackendTimeout,
	})

	a.scheduler = background.NewScheduler(background.SchedulerConfig{WorkerCount: 2, QueueSize: 64})
	a.scheduler.Start(a.ctx)

	classifier := content.NewClassifier(a.cfg.MediaHostPatterns)
	email := service.NewEmailService(a.cfg)

	a.services = serviceContainer{
		Auth:    service.NewAuthService(a.ctx, a.backend, a.sessions, a.cfg.OTPCooldownSecs, a.cfg.SessionTTL),
		Page:    service.NewPageService(a.backend, classifier, defaults, a.cache, a.cfg.PageCacheTTL),
		Post:    service.NewPostService(a.backend, a.cache, a.cfg.PageCacheTTL),
		Upload:  service.NewUploadService(a.backend, a.cfg.MediaFolder, a.cfg.MaxUploadSize),
		Contact: service.NewContactService(a.backend, email, a.scheduler, a.cfg.ContactNotifyEmail, a.cfg.SiteName),
		User:    service.NewUserService(a.backend),
		Email:   email,
	}
	return nil
}

func (a *Application) initHandlers() error {
	templates, err := utils.LoadTemplates(a.cfg.TemplatesDir)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	logger.Info("Templates loaded successfully", map[string]interface{}{"dir": a.cfg.TemplatesDir})

	renderer, err := handlers.NewRenderer(templates, a.cfg.SiteName)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	a.handlers = handlerContainer{
		Template: handlers.NewTemplateHandler(renderer, a.services.Page, a.services.Post, a.services.Contact),
		Auth:     handlers.NewAuthHandler(renderer, a.services.Auth),
		Section:  handlers.NewSectionHandler(renderer, a.services.Page, a.services.Upload),
		Upload:   handlers.NewUploadHandler(renderer, a.services.Upload, a.services.Page),
		Contact:  handlers.NewContactHandler(renderer, a.services.Contact),
		User:     handlers.NewUserHandler(renderer, a.services.User),
		renderer: renderer,
	}
	return nil
}

// warmCache loads the public pages into the cache off the request path.
func (a *Application) warmCache() {
	if !a.cache.Enabled() {
		return
	}

	err := a.scheduler.ScheduleUnique(background.Job{
		Name:        "warm_page_cache",
		Run:         a.services.Page.WarmCache,
		Timeout:     time.Minute,
		RetryPolicy: background.RetryPolicy{MaxRetries: 2, Backoff: 10 * time.Second},
	})
	if err != nil {
		logger.Warn("Failed to schedule cache warm-up", map[string]interface{}{"error": err.Error()})
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	secure := a.cfg.IsProduction()
	a.rateLimiter = middleware.NewRateLimitManager(a.ctx)

	router := gin.New()
	router.MaxMultipartMemory = a.cfg.MaxUploadSize
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.SecurityHeadersMiddleware(backendOrigin(a.cfg.BackendURL)...))
	router.Use(middleware.RateLimitMiddleware(a.cfg, a.rateLimiter))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.CSRFHeaderName, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.Static("/static", "./static")

	site := router.Group("", middleware.CSRFMiddleware(secure))
	{
		for _, page := range service.EditablePages {
			site.GET(page.Path, a.handlers.Template.RenderPage(page.Slug))
		}
		site.POST("/contact", a.handlers.Template.SubmitContact)
		site.GET("/blog", a.handlers.Template.RenderBlog)
		site.GET("/blog/:slug", a.handlers.Template.RenderPost)
	}

	admin := router.Group("/admin",
		middleware.AdminHeadersMiddleware(),
		middleware.CSRFMiddleware(secure),
		middleware.SessionMiddleware(a.sessions, a.cfg.SessionTTL, secure),
	)
	{
		login := admin.Group("/login", middleware.LoginRateLimitMiddleware(a.cfg, a.rateLimiter))
		{
			login.GET("", a.handlers.Auth.LoginPage)
			login.GET("/state", a.handlers.Auth.State)
			login.POST("/email", a.handlers.Auth.SubmitEmail)
			login.POST("/resend", a.handlers.Auth.Resend)
			login.POST("/otp", a.handlers.Auth.SubmitOTP)
			login.POST("/password", a.handlers.Auth.SubmitPassword)
			login.POST("/restart", a.handlers.Auth.StartOver)
		}
		admin.POST("/logout", a.handlers.Auth.Logout)

		protected := admin.Group("", middleware.RequireAdmin())
		{
			protected.GET("", a.handlers.Section.Dashboard)
			protected.GET("/pages/:slug/sections/:section", a.handlers.Section.EditSection)
			protected.POST("/pages/:slug/sections/:section", a.handlers.Section.SaveSection)
			protected.GET("/media", a.handlers.Upload.LibraryPage)
			protected.GET("/contacts", a.handlers.Contact.List)
			protected.POST("/contacts/:id/delete", a.handlers.Contact.Delete)
			protected.GET("/users", a.handlers.User.List)
			protected.POST("/users", a.handlers.User.Create)
			protected.POST("/users/:id/delete", a.handlers.User.Delete)
		}

		api := admin.Group("/api", middleware.RequireAdmin())
		{
			api.POST("/uploads", a.handlers.Upload.Upload)
			api.GET("/media", a.handlers.Upload.Library)
			api.POST("/pages/:slug/sections/:section/media", a.handlers.Upload.UploadToField)
			api.POST("/pages/:slug/sections/:section/media/select", a.handlers.Upload.SelectForField)
			api.GET("/stats", handlers.GetStatistics(a.services.Auth, a.scheduler, a.cache))
			api.DELETE("/cache", handlers.ClearCache(a.cache))
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/admin/api/") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Route not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		a.handlers.renderer.NotFound(c)
	})

	a.router = router
}

// backendOrigin returns the scheme and host of the backend for connect-src.
func backendOrigin(raw string) []string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil
	}
	return []string{parsed.Scheme + "://" + parsed.Host}
}
