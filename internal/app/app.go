package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petcare_settlement/internal/dao/mongodb"
	http_middleware "petcare_settlement/internal/middleware/http"
	"petcare_settlement/internal/provider"
	"petcare_settlement/internal/service"
	"petcare_settlement/internal/worker"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// App runs one HTTP surface together with its background workers.
type App struct {
	httpServer *http.Server
	workers    []worker.Worker
	db         *mongo.Database
	port       int
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewHandler builds the gin engine with the shared middleware and a health probe.
func NewHandler(mode provider.AppMode, logger *zap.Logger, register RouteRegister) (http.Handler, error) {
	if mode != provider.ModeDev {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := service.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(http_middleware.RequestID(), http_middleware.Logging(logger), gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		service.ResponseSuccess(c, gin.H{"mode": string(mode)})
	})
	if register != nil {
		register(r)
	}
	return r, nil
}

// NewApp creates and configures a new application server.
func NewApp(port int, logger *zap.Logger, handler http.Handler, db *mongo.Database, workers []worker.Worker) (*App, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		workers: workers,
		db:      db,
		port:    port,
		logger:  logger.Named("App"),
		ctx:     ctx,
		cancel:  cancel,
	}

	cleanup := func() {
		app.logger.Info("Cleanup: stopping server and workers...")
		app.cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("HTTP server shutdown failed", zap.Error(err))
		}
		app.logger.Info("Cleanup finished.")
	}

	return app, cleanup, nil
}

// Run ensures the indexes, starts the workers and serves until SIGINT or SIGTERM.
func (a *App) Run() error {
	idxCtx, idxCancel := context.WithTimeout(a.ctx, 30*time.Second)
	err := mongodb.EnsureIndexes(idxCtx, a.db)
	idxCancel()
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", a.port, err)
	}

	go worker.RunAll(a.ctx, a.workers...)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server started", zap.Int("port", a.port))
		if err := a.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		a.logger.Info("Shutting down server...")
	case err := <-serveErr:
		a.logger.Error("HTTP server Serve error", zap.Error(err))
		a.cancel()
		return err
	}
	a.cancel()
	return nil
}
