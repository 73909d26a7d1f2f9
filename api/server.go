package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/OldStager01/genomerx/api/handlers"
	"github.com/OldStager01/genomerx/api/middleware"
	"github.com/OldStager01/genomerx/api/websocket"
	_ "github.com/OldStager01/genomerx/docs"
	"github.com/OldStager01/genomerx/internal/auth"
	"github.com/OldStager01/genomerx/internal/events"
	"github.com/OldStager01/genomerx/internal/metrics"
	"github.com/OldStager01/genomerx/pkg/config"
)

const uploadOverhead = 1 << 20

// Deps are the collaborators the HTTP layer needs. Reports and Users are
// usually repositories over the same database.
type Deps struct {
	Predictor handlers.Predictor
	Models    handlers.ModelIndex
	Reports   interface {
		handlers.ReportWriter
		handlers.ReportReader
	}
	Users        handlers.UserLookup
	Bus          *events.EventBus
	Metrics      *metrics.Metrics
	HealthChecks []handlers.Check
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	deps        Deps
	authService *auth.Service
	cors        middleware.CORSConfig
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	cancel      context.CancelFunc
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:      gin.New(),
		config:      cfg,
		deps:        deps,
		authService: auth.NewService(cfg.API.JWTSecret, cfg.API.JWTDuration),
		cors:        middleware.CORSFromConfig(cfg.API.CORS),
		wsHub:       websocket.NewHub(&cfg.WebSocket),
		cancel:      cancel,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go s.wsHub.Run(ctx)

	if deps.Bus != nil {
		s.wsBridge = websocket.NewEventBridge(s.wsHub, deps.Bus.SubscribeAll())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger("/health/live", "/metrics"))
	s.router.Use(middleware.CORS(s.cors))
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.RateLimit(middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)))
}

func (s *Server) setupRoutes() {
	api := s.config.API

	var guard *auth.Service
	if api.AuthEnabled {
		guard = s.authService
	}

	predictHandler := handlers.NewPredictHandler(s.deps.Predictor, s.deps.Reports, events.NewPublisher(s.deps.Bus), handlers.PredictOptions{
		MDRThreshold: s.config.Scoring.MDRThreshold,
		MaxBytes:     api.MaxUploadBytes,
		Timeout:      api.PredictTimeout,
	})
	historyHandler := handlers.NewHistoryHandler(s.deps.Reports, api.DefaultLimit, api.MaxLimit)
	catalogHandler := handlers.NewCatalogHandler(s.config.ToPredictorConfig(), s.deps.Models)
	healthHandler := handlers.NewHealthHandler(s.deps.HealthChecks...)
	authHandler := handlers.NewAuthHandler(s.deps.Users, s.authService, api.CookieSecure)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)
	s.router.POST("/auth/logout", authHandler.Logout)

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub, s.cors.CheckOrigin))
	s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	uploads := middleware.NewEndpointRateLimiter()
	uploads.AddEndpoint("/api/v1/predict", api.PredictRateLimit, time.Minute)
	uploads.AddEndpoint("/api/v1/upload-predict", api.PredictRateLimit, time.Minute)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/catalog", catalogHandler.Catalog)

		predict := v1.Group("")
		predict.Use(uploads.Middleware(), middleware.RequestSizeLimit(api.MaxUploadBytes+uploadOverhead))
		predict.POST("/predict", predictHandler.Predict)
		predict.POST("/upload-predict", predictHandler.Predict)

		history := v1.Group("/history")
		history.Use(middleware.JWTAuth(guard))
		history.GET("", historyHandler.List)
		history.GET("/:id", historyHandler.Get)
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.API.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  s.config.API.IdleTimeout,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.cancel()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
