// Package kdc wires and runs the Key Distribution Center.
package kdc

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/docseal/internal/engine/bls"
	"github.com/dmitrijs2005/docseal/internal/httpx"
	"github.com/dmitrijs2005/docseal/internal/kdc/config"
	"github.com/dmitrijs2005/docseal/internal/kdc/httpapi"
	"github.com/dmitrijs2005/docseal/internal/kdc/service"
	"github.com/dmitrijs2005/docseal/internal/logging"
)

type App struct {
	logger logging.Logger
	server *httpx.Server
}

// NewApp loads the master secret and builds the HTTP server.
func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel).With("service", "kdc")
	return newApp(c, logger)
}

func newApp(c *config.Config, logger logging.Logger) (*App, error) {
	master, err := os.ReadFile(c.MasterFile)
	if err != nil {
		return nil, fmt.Errorf("master secret: %w", err)
	}
	if _, err := bls.PublicParams(master); err != nil {
		return nil, fmt.Errorf("master secret %s: %w", c.MasterFile, err)
	}

	if !c.RequireServerCredential {
		logger.Warn(context.Background(), "server credential check disabled")
	}

	svc := service.New(bls.New(rand.Reader), master, c, logger)
	router, err := httpapi.NewRouter(svc, logger)
	if err != nil {
		return nil, err
	}

	return &App{logger: logger, server: httpx.NewServer(c.EndpointAddr, router, logger)}, nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.logger.Info(ctx, "Starting KDC...")
	return app.server.Run(ctx)
}
