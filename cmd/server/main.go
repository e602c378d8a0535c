package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/comtrade-viewer/backend/internal/api"
	"github.com/comtrade-viewer/backend/internal/config"
	"github.com/comtrade-viewer/backend/internal/logging"
	"github.com/comtrade-viewer/backend/internal/session"
	"github.com/comtrade-viewer/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the XML configuration (default: next to the executable)")
	flag.Parse()

	if *configPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(exePath), "COMTRADEViewer.config")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, *configPath, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, configPath string, log *zap.Logger) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	fileStore, err := storage.NewLocalStore(cfg.Storage.UploadsDirectory, storage.WithLogger(log.Named("storage")))
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	sessionMgr := session.NewManager(fileStore, session.Options{
		TempDir:     cfg.Storage.TempDirectory,
		MaxSessions: cfg.Decoding.MaxSessions,
		MaxAge:      cfg.SessionTimeout(),
		BatchSize:   cfg.Decoding.SampleBatchSize,
		Logger:      log.Named("session"),
	})
	defer sessionMgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionMgr.RunCleanup(ctx, cfg.CleanupInterval())

	e := echo.New()
	e.HideBanner = true

	var origins []string
	if cfg.Server.EnableCORS {
		for _, o := range strings.Split(cfg.Server.AllowOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	api.SetupMiddleware(e, api.MiddlewareConfig{
		Logger:         log.Named("http"),
		Development:    cfg.Logging.Development,
		RequestTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		BodyLimit:      cfg.Server.BodyLimit,
		AllowOrigins:   origins,
	})

	deps := &api.Dependencies{
		Store:               fileStore,
		SessionMgr:          sessionMgr,
		Logger:              log.Named("api"),
		Version:             Version,
		CriticalTimestamp:   cfg.Decoding.CriticalTimestamp,
		AllowPathReferences: cfg.Decoding.AllowPathReferences,
		AllowFileDeletion:   true,
		EnableMetrics:       cfg.Server.EnableMetrics,
	}
	api.RegisterRoutes(e, api.NewHandlers(deps), deps)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	log.Info("COMTRADE viewer starting",
		zap.String("version", Version),
		zap.String("buildTime", BuildTime),
		zap.String("config", configPath),
		zap.String("listen", cfg.GetServerAddr()),
		zap.String("dataDir", cfg.Storage.DataDirectory),
		zap.Bool("criticalTimestamp", cfg.Decoding.CriticalTimestamp))

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
