package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"studyprep/internal/admin"
	"studyprep/internal/config"
	"studyprep/internal/store"
	"studyprep/internal/study"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 45 * time.Second
	idleTimeout         = 120 * time.Second
)

// Server exposes the study and admin services over HTTP.
type Server struct {
	cfg     config.Config
	study   *study.Service
	admin   *admin.Service
	repo    store.Repository
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, svc *study.Service, adm *admin.Service, repo store.Repository) (*Server, error) {
	if svc == nil {
		return nil, errors.New("study service must not be nil")
	}
	if adm == nil {
		return nil, errors.New("admin service must not be nil")
	}
	if repo == nil {
		return nil, errors.New("repository must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler
	e.Validator = newRequestValidator()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	if cfg.Server.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))
	}

	srv := &Server{
		cfg:     cfg,
		study:   svc,
		admin:   adm,
		repo:    repo,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// ServeHTTP lets the server be mounted or driven by httptest directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port, s.cfg.Admin.Token != "")
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)

	v1 := s.app.Group("/v1")

	users := v1.Group("/users")
	users.POST("", s.handleCreateUser)
	users.GET("/:id", s.handleGetUser)
	users.GET("/:id/recommendations", s.handleRecommendations)

	editais := v1.Group("/editais")
	editais.POST("", s.handleImportEdital)
	editais.GET("", s.handleListEditais)
	editais.GET("/:id", s.handleGetEdital)
	editais.POST("/:id/subjects/:sid/topics/:tid/toggle", s.handleToggleTopic)

	v1.POST("/tutor/chat", s.handleTutorChat, s.requireFeature("tutorIA", func(f store.Features) bool { return f.TutorIA }))
	v1.POST("/flashcards", s.handleFlashcards)

	english := v1.Group("/english", s.requireFeature("english", func(f store.Features) bool { return f.English }))
	english.POST("/lesson", s.handleEnglishLesson)
	english.POST("/chat", s.handleEnglishChat)

	v1.POST("/predictive", s.handlePredictive)
	v1.POST("/questions/lab", s.handleLabQuestions)

	simulados := v1.Group("/simulados")
	simulados.POST("", s.handleGenerateSimulado)
	simulados.POST("/results", s.handleRecordSimulado)
	simulados.GET("/results", s.handleListSimulados)

	v1.POST("/career", s.handleCareer)
	v1.POST("/topics/explain", s.handleExplainTopic)

	if s.cfg.Admin.Token != "" {
		s.registerAdminRoutes()
	}
}

func (s *Server) registerAdminRoutes() {
	token := []byte(s.cfg.Admin.Token)
	g := s.app.Group("/admin", middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), token) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return requestError{
				Status:  http.StatusUnauthorized,
				Message: "missing or invalid admin token",
				Type:    "authentication_error",
			}
		},
	}))

	g.GET("/stats", s.handleAdminStats)
	g.GET("/users", s.handleAdminUsers)
	g.POST("/users/:id/ban", s.handleAdminBan(true))
	g.POST("/users/:id/unban", s.handleAdminBan(false))
	g.POST("/users/:id/promote", s.handleAdminPromote)
	g.GET("/config", s.handleAdminConfig)
	g.PATCH("/config", s.handleAdminUpdateConfig)
	g.POST("/marketing", s.handleAdminMarketing)
}

// requireFeature rejects requests with 403 while the named feature is switched off.
func (s *Server) requireFeature(name string, enabled func(store.Features) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cfg, err := s.repo.GetConfig(c.Request().Context())
			if err != nil {
				return toHTTPError(err)
			}
			if !enabled(cfg.Features) {
				return requestError{
					Status:  http.StatusForbidden,
					Message: fmt.Sprintf("feature %q is disabled", name),
					Type:    "feature_disabled",
				}
			}
			return next(c)
		}
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func printStartupBanner(port int, adminEnabled bool) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("studyprep ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  /v1/users, /v1/editais, /v1/simulados")
	fmt.Println("  POST /v1/tutor/chat, /v1/flashcards, /v1/english/{lesson,chat}")
	fmt.Println("  POST /v1/predictive, /v1/questions/lab, /v1/career, /v1/topics/explain")
	if adminEnabled {
		fmt.Println("  /admin/* (Authorization: Bearer <admin token>)")
	}
	fmt.Printf("Example:\n  curl http://%s:%d/v1/flashcards -H 'Content-Type: application/json' -d '{\"topic\":\"Crase\"}'\n\n", host, port)
}
