// Package server is the HTTP surface of the gateway: a read-only JSON API
// over the merged inventory of every configured vCenter.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"vcbridge/pkg/cache"
	"vcbridge/pkg/config"
	"vcbridge/pkg/connector"
	"vcbridge/pkg/inventory"
	"vcbridge/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	echo     *echo.Echo
	svc      *inventory.Service
	pool     *connector.Pool
	cache    *cache.Cache
	settings config.Settings
}

func New(svc *inventory.Service, pool *connector.Pool, responseCache *cache.Cache, settings config.Settings) *Server {
	s := &Server{
		echo:     echo.New(),
		svc:      svc,
		pool:     pool,
		cache:    responseCache,
		settings: settings,
	}
	s.setupRoutes()
	return s
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start(addr string) error {
	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Starting vcbridge API server")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return s.Shutdown()
}

func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	s.pool.Close(ctx)
	log.Info().Msg("Shutdown complete")
	return nil
}

func (s *Server) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	api := s.echo.Group("/api/v1")
	if s.cache != nil && s.cache.Enabled() {
		api.Use(s.cache.Middleware())
	}

	api.GET("/vms", s.listVMs)
	api.GET("/vms/:uuid", s.getVM)
	api.GET("/vm-folders", s.listVMFolders)
	api.GET("/hosts", s.listHosts)
	api.GET("/clusters", s.listClusters)
	api.GET("/datastores", s.listDatastores)
	api.GET("/portgroups", s.listPortGroups)
	api.GET("/vm-snapshots", s.listSnapshots)
	api.GET("/vm-snapshots/:uuid", s.getSnapshots)
	api.GET("/alarms", s.listAlarms)
	api.GET("/events", s.listEvents)
	api.GET("/vcenters", s.listVCenters)
	api.GET("/healthcheck", s.healthcheck)

	admin := s.echo.Group("/api/v1/admin")
	admin.POST("/cache/flush", s.flushCache)
	admin.POST("/sessions/reset", s.resetSessions)
}
