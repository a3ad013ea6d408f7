// Package api exposes the triage core as a JSON surface for the ForYou
// web frontend.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/risk"
	"github.com/foryou-care/foryou/internal/session"
	"github.com/foryou-care/foryou/internal/volunteer"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB         *gorm.DB
	Classifier risk.Classifier
	Events     *events.Emitter
	Directory  volunteer.Directory
	Port       int
}

// Start launches the JSON API server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("api: db is required")
	}
	if opts.Classifier == nil {
		opts.Classifier = risk.NewKeywordClassifier()
	}
	if opts.Directory == nil {
		opts.Directory = volunteer.DBDirectory{}
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	pipeline := session.NewPipeline(opts.DB, opts.Classifier, opts.Events)
	registerRoutes(router, opts.DB, pipeline, opts.Events, opts.Directory)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
