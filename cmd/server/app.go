package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/container"
	"github.com/serroba/shortlinks/internal/messaging"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

type application struct {
	options  *container.Options
	injector *do.Injector
	logger   *zap.Logger
	server   *http.Server
}

func newApplication(options *container.Options) *application {
	injector := do.New()
	container.ServerPackages(injector, options)

	return &application{
		options:  options,
		injector: injector,
		logger:   do.MustInvoke[*zap.Logger](injector),
	}
}

func (a *application) start() {
	// Routes are registered when the API is built.
	if _, err := do.Invoke[huma.API](a.injector); err != nil {
		a.logger.Fatal("failed to build api", zap.Error(err))
	}

	// Without redis there is no broker for a separate consumer process.
	if a.options.RedisAddr == "" {
		consumers := do.MustInvoke[*messaging.ConsumerGroup](a.injector)
		if err := consumers.Start(context.Background()); err != nil {
			a.logger.Fatal("failed to start in-process consumers", zap.Error(err))
		}
	}

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.options.Port),
		Handler:           do.MustInvoke[*chi.Mux](a.injector),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("server starting",
		zap.Int("port", a.options.Port),
		zap.String("storage", a.options.Storage),
		zap.String("base_url", a.options.PublicBaseURL()),
		zap.Bool("redis", a.options.RedisAddr != ""),
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Fatal("server failed", zap.Error(err))
	}
}

func (a *application) stop() {
	a.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
	}

	if err := a.injector.Shutdown(); err != nil {
		a.logger.Error("service shutdown error", zap.Error(err))
	}

	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
}

func (a *application) printOpenAPI(w io.Writer) error {
	defer func() { _ = a.injector.Shutdown() }()

	api, err := do.Invoke[huma.API](a.injector)
	if err != nil {
		return fmt.Errorf("build api: %w", err)
	}

	doc, err := api.OpenAPI().YAML()
	if err != nil {
		return fmt.Errorf("render openapi: %w", err)
	}

	_, err = w.Write(doc)

	return err
}
