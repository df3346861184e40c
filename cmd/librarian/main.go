package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/lepinkainen/humanlog"

	"github.com/justyntemme/librarian/internal/api"
	"github.com/justyntemme/librarian/internal/auth"
	"github.com/justyntemme/librarian/internal/catalog"
	"github.com/justyntemme/librarian/internal/config"
	"github.com/justyntemme/librarian/internal/ingest"
	"github.com/justyntemme/librarian/internal/media"
	"github.com/justyntemme/librarian/internal/metadata"
	"github.com/justyntemme/librarian/internal/storage"
)

// CLI is the librarian command tree.
type CLI struct {
	Config string `short:"c" help:"Path to a config file (defaults to ./librarian.yaml when present)" type:"path"`

	Serve  ServeCmd  `cmd:"" default:"1" help:"Run the HTTP server"`
	Lookup LookupCmd `cmd:"" help:"Resolve an ISBN and print the metadata preview"`
}

// ServeCmd runs the HTTP API.
type ServeCmd struct {
	Addr string `help:"Override the server bind address (e.g. :8080)"`
}

// LookupCmd resolves one identifier without touching the database.
type LookupCmd struct {
	ISBN string `arg:"" help:"ISBN-10, ISBN-13 or urn:isbn: identifier"`
}

// store is what both database backends provide.
type store interface {
	catalog.Repository
	api.UserStore
	api.Pinger
	Close() error
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("librarian"),
		kong.Description("Book catalog with ISBN ingestion and cover normalization."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := ctx.Run(cfg, logger); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(humanlog.NewHandler(os.Stdout, &humanlog.Options{Level: level})), nil
}

func newResolver(cfg config.MetadataConfig) *metadata.OpenLibrary {
	prefs := make([]metadata.CoverSize, 0, len(cfg.CoverPreference))
	for _, p := range cfg.CoverPreference {
		prefs = append(prefs, metadata.CoverSize(p))
	}
	return metadata.NewOpenLibrary(metadata.Options{
		BaseURL:         cfg.BaseURL,
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.Timeout,
		RPS:             cfg.RPS,
		CoverPreference: prefs,
	})
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store, error) {
	switch cfg.Driver {
	case "postgres":
		return storage.NewPostgres(ctx, cfg.DSN, cfg.Timeout)
	default:
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		return storage.NewDatabase(cfg.Path)
	}
}

// Run starts the server and blocks until SIGINT or SIGTERM.
func (s *ServeCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	svc := ingest.NewService(
		newResolver(cfg.Metadata),
		metadata.NewCoverSource(cfg.Metadata.CoverTimeout, cfg.Metadata.CoverMaxBytes, cfg.Metadata.UserAgent),
		media.NewNormalizer(media.Constraints{
			MaxWidth:   cfg.Media.MaxWidth,
			MaxHeight:  cfg.Media.MaxHeight,
			Quality:    cfg.Media.Quality,
			AutoOrient: cfg.Media.AutoOrient,
		}),
		catalog.NewWriter(db),
		logger,
	)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Deps{
		Books:  svc,
		Users:  db,
		Health: db,
		Tokens: auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, ""),
		Server: cfg.Server,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Librarian server starting", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Run prints the resolved metadata and inferred classification as JSON.
func (l *LookupCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	svc := ingest.NewService(newResolver(cfg.Metadata), nil, nil, nil, logger)

	preview, err := svc.Lookup(context.Background(), l.ISBN)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(preview)
}
