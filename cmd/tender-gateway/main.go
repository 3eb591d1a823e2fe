package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/procuretrust/tender-gateway/internal/audit"
	"github.com/procuretrust/tender-gateway/internal/auth"
	"github.com/procuretrust/tender-gateway/internal/config"
	"github.com/procuretrust/tender-gateway/internal/fabric"
	httphandler "github.com/procuretrust/tender-gateway/internal/http"
	"github.com/procuretrust/tender-gateway/internal/http/middleware"
	"github.com/procuretrust/tender-gateway/internal/listener"
	"github.com/procuretrust/tender-gateway/internal/logger"
	"github.com/procuretrust/tender-gateway/internal/model"
	"github.com/procuretrust/tender-gateway/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions := fabric.NewSessionFactory(cfg.Fabric, log)

	tenderService := service.NewTenderService(sessions, cfg, log)
	queryService := service.NewQueryService(sessions, cfg, log)
	seedService := service.NewSeedService(tenderService, log)

	bus := audit.NewBus()
	defer bus.Close()
	go audit.Drain(ctx, bus, audit.NewLogSink(log))

	auditListener := listener.New(sessions, cfg.Fabric.DefaultOrg, bus, log)
	go auditListener.Run(ctx)

	users, err := auth.LoadDirectory(cfg.Auth.UsersFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load user directory")
	}
	tokenIssuer := auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.TokenTTL)

	var authMiddleware = middleware.Auth(auth.NewParser(cfg.Auth.AccessSecret))
	if cfg.Auth.Disabled {
		log.Warn().Msg("authentication disabled, every request runs as local admin")
		authMiddleware = middleware.Bypass(model.Principal{Username: "local", Role: model.RoleAdmin})
	}

	handler := httphandler.NewHandler(tenderService, queryService, seedService, users, tokenIssuer, cfg.Fabric, log)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("channel", cfg.Fabric.ChannelName).Msg("starting tender gateway")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}
