// Package web exposes an upload.Controller over HTTP so a browser page can
// drive the select / submit / reset cycle and poll its state.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/golfball-detect/internal/upload"
)

// shutdownGrace bounds how long Run waits for open connections on exit.
const shutdownGrace = 5 * time.Second

// Server serves one controller. Every browser talking to it shares that
// controller's state.
type Server struct {
	ctrl   *upload.Controller
	engine *gin.Engine
	logger *log.Logger

	// bg parents background submits and is cancelled on shutdown.
	bg      context.Context
	stop    context.CancelFunc
	pending sync.WaitGroup
}

// New builds the routes for ctrl. Request logs go to logger's writer.
func New(ctrl *upload.Controller, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	bg, stop := context.WithCancel(context.Background())
	s := &Server{
		ctrl:   ctrl,
		engine: gin.New(),
		logger: logger,
		bg:     bg,
		stop:   stop,
	}

	s.engine.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	api.GET("/state", s.handleState)
	api.POST("/file", s.handleSelectFile)
	api.POST("/submit", s.handleSubmit)
	api.POST("/reset", s.handleReset)
	api.GET("/result.jpg", s.handleResultImage)
	api.GET("/preview/thumbnail", s.handlePreviewThumbnail)
}

// Handler returns the HTTP handler, for tests or embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx is cancelled or the listener fails, then
// shuts down gracefully and waits for background submits to unwind.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Printf("Web surface listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Printf("Shutting down web surface")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		s.Close()
		return err
	})

	return g.Wait()
}

// Close cancels background submits and waits for them to return.
func (s *Server) Close() {
	s.stop()
	s.pending.Wait()
}
