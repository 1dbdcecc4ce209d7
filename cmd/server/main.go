package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/timely/timetabling/internal/config"
	"github.com/timely/timetabling/internal/handler"
	"github.com/timely/timetabling/internal/logger"
	"github.com/timely/timetabling/internal/metrics"
	"github.com/timely/timetabling/internal/middleware"
	"github.com/timely/timetabling/internal/service"
	"github.com/timely/timetabling/pkg/model"
	"github.com/timely/timetabling/pkg/sat"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	solver, err := sat.NewSolver(cfg.Solver.Engine, cfg.Solver.ExternalPath)
	if err != nil {
		logr.Sugar().Fatalw("invalid solver configuration", "error", err)
	}

	collector := metrics.New()
	timetabler := model.NewTimetabler(solver, cfg.Model.Options(), logr)
	timetableService := service.NewTimetableService(timetabler, validator.New(), collector, cfg.Solver, logr)
	timetableHandler := handler.NewTimetableHandler(timetableService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(collector))
	r.NoRoute(handler.NotFound)
	handler.Register(r, timetableHandler, collector.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env, "solver", cfg.Solver.Engine)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
