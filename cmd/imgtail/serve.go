package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/imgtail/internal/config"
	"github.com/memohai/imgtail/internal/fetch"
	"github.com/memohai/imgtail/internal/imagecache"
	"github.com/memohai/imgtail/internal/lark"
	"github.com/memohai/imgtail/internal/ledger"
	"github.com/memohai/imgtail/internal/logger"
	"github.com/memohai/imgtail/internal/plugin"
	"github.com/memohai/imgtail/internal/server"
	"github.com/memohai/imgtail/internal/transform"
	"github.com/memohai/imgtail/internal/upload"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideGateway,
			provideFetcher,
			imagecache.New,
			ledger.New,
			lark.NewCardRegistry,
			provideUploadService,
			provideEngine,
			providePlugin,
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideGateway(log *slog.Logger, cfg config.Config) (*lark.Gateway, error) {
	return lark.NewGateway(log, lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
		Region:    cfg.Lark.Region,
		ReplyMode: cfg.Lark.ReplyMode,
	})
}

func provideFetcher(cfg config.Config) *fetch.Fetcher {
	return fetch.NewFetcher(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, cfg.Fetch.MaxBytes)
}

func provideUploadService(log *slog.Logger, cache *imagecache.Cache, fetcher *fetch.Fetcher, gateway *lark.Gateway) *upload.Service {
	return upload.NewService(log, cache, fetcher, gateway)
}

func provideEngine(log *slog.Logger, uploads *upload.Service, l *ledger.Ledger) *transform.Engine {
	return transform.NewEngine(log, uploads, l)
}

func providePlugin(log *slog.Logger, engine *transform.Engine, cards *lark.CardRegistry, gateway *lark.Gateway) *plugin.Plugin {
	return plugin.New(log, engine, cards, gateway)
}

func provideServer(log *slog.Logger, cfg config.Config, p *plugin.Plugin, gateway *lark.Gateway, cache *imagecache.Cache, l *ledger.Ledger, uploads *upload.Service) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, p, gateway, cache, l, uploads)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting imgtail", slog.String("addr", cfg.Server.Addr), slog.String("reply_mode", cfg.Lark.ReplyMode))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
