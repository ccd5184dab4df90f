// ABOUTME: JSON HTTP API over the dashboard queries and the live feed, built on gin.
// ABOUTME: Also serves the websocket feed push and the Prometheus /metrics endpoint.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/harperreed/vamos/internal/app"
	"github.com/harperreed/vamos/internal/logger"
)

// DefaultPushInterval is how often /feed/ws pushes a fresh window.
const DefaultPushInterval = 2 * time.Second

// Options tunes the HTTP surface.
type Options struct {
	// AllowOrigins lists CORS and websocket origins. Empty allows any origin.
	AllowOrigins []string
	PushInterval time.Duration
}

// Server routes HTTP requests to the application.
type Server struct {
	app    *app.App
	log    *logger.Logger
	router   *gin.Engine
	upgrader *websocket.Upgrader
	push     time.Duration
}

// NewServer builds the router for a.
func NewServer(a *app.App, opts Options) *Server {
	s := &Server{
		app:      a,
		log:      a.Log.With("component", "api"),
		upgrader: newUpgrader(opts.AllowOrigins),
		push:     opts.PushInterval,
	}
	if s.push <= 0 {
		s.push = DefaultPushInterval
	}
	s.router = s.routes(opts)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.AllowOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.app.Metrics.Handler(s.log)))
	r.GET("/feed/ws", s.feedSocket)

	api := r.Group("/api")
	{
		api.GET("/overview", s.overview)
		api.GET("/status", s.dataStatus)
		api.GET("/users/:id", s.userDetail)
		api.GET("/weight", s.weightTrend)
		api.GET("/heart-rate", s.heartRate)
		api.GET("/bmi", s.bmiDistribution)
		api.GET("/bmi/categories", s.bmiCategories)
		api.GET("/activities", s.activityTypes)
		api.GET("/calories", s.calorieTrend)
		api.GET("/goals", s.goalStatus)
		api.GET("/export/:query", s.export)

		api.POST("/alerts/:id/resolve", s.resolveAlert)
		api.POST("/goals/:id/complete", s.completeGoal)

		api.GET("/feed", s.feedStatus)
		api.GET("/feed/recent", s.recentFeed)
		api.POST("/feed/start", s.feedStart)
		api.POST("/feed/stop", s.feedStop)
	}
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String())
	}
}
