// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"hostpulse/internal/config"
	"hostpulse/internal/metrics"
	"hostpulse/internal/monitoring"
	"hostpulse/internal/requester"
	"hostpulse/internal/store"
)

// Server exposes the registry and monitoring controls over HTTP. It is
// the daemon's stand-in for the mobile UI: monitor and collection CRUD,
// manual checks, saved-request execution and a WebSocket status feed.
type Server struct {
	config  *config.Config
	store   store.Store
	engine  *monitoring.Engine
	metrics *metrics.Collector
	sender  *requester.Sender
	router  *gin.Engine
	server  *http.Server

	wsMu      sync.Mutex
	wsClients map[*WSClient]bool
}

func NewServer(cfg *config.Config, st store.Store, engine *monitoring.Engine, collector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	server := &Server{
		config:    cfg,
		store:     st,
		engine:    engine,
		metrics:   collector,
		sender:    requester.NewSender(cfg.Monitoring.ProbeTimeout),
		router:    router,
		wsClients: make(map[*WSClient]bool),
	}

	// Push every alert-worthy transition to connected UI clients.
	engine.OnStatusChange(func(target store.MonitorTarget, previous store.Status) {
		server.broadcast(WSMessage{Type: "status_change", Data: target})
	})

	server.setupRoutes()
	return server
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

	go s.updateMetricsRoutine(ctx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/monitors", s.getMonitors)
		api.POST("/monitors", s.createMonitor)
		api.GET("/monitors/:id", s.getMonitor)
		api.PUT("/monitors/:id", s.updateMonitor)
		api.DELETE("/monitors/:id", s.deleteMonitor)
		api.POST("/monitors/:id/check", s.checkMonitor)

		api.GET("/collections", s.getCollections)
		api.POST("/collections", s.createCollection)
		api.GET("/collections/:id", s.getCollection)
		api.PUT("/collections/:id", s.renameCollection)
		api.DELETE("/collections/:id", s.deleteCollection)
		api.POST("/collections/:id/requests", s.createRequest)

		api.PUT("/requests/:id", s.updateRequest)
		api.DELETE("/requests/:id", s.deleteRequest)
		api.POST("/requests/:id/send", s.sendRequest)

		api.GET("/status", s.getStatus)
		api.GET("/notifications/status", s.getNotificationStatus)
		api.GET("/health", s.healthCheck)
	}

	s.router.GET("/ws", s.handleWebSocket)

	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

func (s *Server) getStatus(c *gin.Context) {
	targets, err := s.store.GetAllMonitors(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to get monitors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get monitors"})
		return
	}

	stats := map[store.Status]int{
		store.StatusOnline:  0,
		store.StatusOffline: 0,
		store.StatusUnknown: 0,
	}
	for _, target := range targets {
		stats[target.Status]++
	}

	c.JSON(http.StatusOK, gin.H{"data": stats, "count": len(targets)})
}

func (s *Server) getNotificationStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"authorization": s.engine.NotificationAuthorization(),
	})
}

func (s *Server) updateMetricsRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.metrics.UpdateSystemMetrics(ctx); err != nil {
				logrus.WithError(err).Error("Failed to update system metrics")
			}
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
