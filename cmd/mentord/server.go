package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/mentord/internal/api"
	"github.com/kalambet/mentord/internal/classify"
	"github.com/kalambet/mentord/internal/config"
	"github.com/kalambet/mentord/internal/filestore"
	"github.com/kalambet/mentord/internal/greeting"
	"github.com/kalambet/mentord/internal/ollama"
	"github.com/kalambet/mentord/internal/personalize"
	"github.com/kalambet/mentord/internal/profilestore"
	"github.com/kalambet/mentord/internal/storage"
	"github.com/kalambet/mentord/internal/textgen"
)

// fallbackDirName is the fallback store's directory under storage.data_dir.
const fallbackDirName = "profiles"

// classifierTemperature keeps structured classification output stable.
const classifierTemperature = 0.2

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mentord system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// app is the assembled engine and the resources it owns.
type app struct {
	engine   *personalize.Engine
	primary  *storage.Store
	fallback *filestore.Store
	repairer *profilestore.Repairer
}

func (a *app) Close() {
	if err := a.primary.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

func openPrimary(ctx context.Context, cfg config.Config) (*storage.Store, error) {
	if cfg.Storage.PrimaryDriver == config.DriverPostgres {
		return storage.OpenPostgres(ctx, cfg.Storage.PostgresDSN)
	}
	return storage.Open(cfg.Storage.DataDir)
}

func newGenerator(ctx context.Context, cfg config.Config) (textgen.Generator, error) {
	gen, err := textgen.New(ctx, textgen.Config{
		Backend:      cfg.TextGen.Backend,
		OllamaURL:    cfg.TextGen.OllamaURL,
		Model:        cfg.TextGen.Model,
		GeminiAPIKey: cfg.TextGen.GeminiAPIKey,
		Temperature:  classifierTemperature,
	})
	if errors.Is(err, textgen.ErrNotConfigured) {
		slog.Info("text generation disabled, unmatched queries use the educational fallback")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating text generator: %w", err)
	}
	return gen, nil
}

func newComposer(cfg config.Config) (*greeting.Composer, error) {
	opts := []greeting.Option{greeting.WithNameProbability(cfg.Engine.NameProbability)}
	if cfg.Greeting.PoolsFile != "" {
		pf, err := greeting.LoadPools(cfg.Greeting.PoolsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, greeting.WithPools(pf))
	}
	return greeting.New(opts...), nil
}

// openApp wires storage, the classifier and the engine from cfg. The caller
// must start a.repairer and Close the app.
func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	primary, err := openPrimary(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	fallback, err := filestore.Open(filepath.Join(cfg.Storage.DataDir, fallbackDirName))
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("opening fallback store: %w", err)
	}

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		primary.Close()
		return nil, err
	}
	composer, err := newComposer(cfg)
	if err != nil {
		primary.Close()
		return nil, err
	}
	classifier := classify.New(gen, composer, classify.WithTimeout(cfg.TextGen.Timeout))

	logger := slog.Default()
	repairer := profilestore.NewRepairer(profilestore.DefaultQueueSize, time.Second)
	store := profilestore.New(primary, fallback,
		profilestore.WithTimeout(cfg.Storage.Timeout),
		profilestore.WithRepairer(repairer),
		profilestore.WithLogger(logger),
	)

	engine, err := personalize.New(store, classifier,
		personalize.WithCacheSize(cfg.Engine.CacheSize),
		personalize.WithLogger(logger),
	)
	if err != nil {
		primary.Close()
		return nil, err
	}

	slog.Info("storage ready",
		"primary", primary.Name(),
		"fallback", fallback.Dir(),
		"textgen", cfg.TextGen.Backend,
	)
	return &app{engine: engine, primary: primary, fallback: fallback, repairer: repairer}, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "mentord version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	if cfg.API.Token == "" {
		token, err := config.GenerateAPIToken()
		if err != nil {
			return fmt.Errorf("initializing API token: %w", err)
		}
		cfg.API.Token = token
		slog.Info("generated API bearer token", "path", config.SecretsPath())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	go a.repairer.Run(ctx)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(api.Deps{Engine: a.engine, Token: cfg.API.Token}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "mentord listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs stay on stderr.
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	go a.repairer.Run(ctx)

	slog.Info("MCP server started (stdio transport)")
	stdio := server.NewStdioServer(api.NewMCPServer(a.engine, version))
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	switch cfg.TextGen.Backend {
	case "ollama":
		if ollama.New(cfg.TextGen.OllamaURL).IsRunning(ctx) {
			printStatus("Ollama", "running at %s", cfg.TextGen.OllamaURL)
		} else {
			printStatus("Ollama", "not running (rule and fallback classification only)")
		}
	case "gemini":
		printStatus("Gemini", "configured")
	default:
		printStatus("Text generation", "disabled")
	}
	printStatus("Model", "%s", cfg.TextGen.Model)
	printStatus("Primary store", "%s", cfg.Storage.PrimaryDriver)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	if cfg.API.Token == "" {
		printWarning("no API token yet; run: mentord token generate")
	}
	return nil
}
