package cmd

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/pthm/gcpimg"
	gcpimgecho "github.com/pthm/gcpimg/adapters/echo"
	"github.com/pthm/gcpimg/internal/config"
	"github.com/pthm/gcpimg/internal/demo"
	"github.com/pthm/gcpimg/internal/metrics"
)

const defaultBase = "https://lh3.googleusercontent.com/pw/demo"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lazy-loading demo page",
	Long: `Run an HTTP server with a demo page of lazily-loaded images.

Images load through the component route when they scroll into view.
Prometheus metrics are exposed at the configured metrics path.

Examples:
  gcpimg serve
  gcpimg serve --addr :9000 --base https://lh3.googleusercontent.com/abc
  gcpimg serve --eager`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().String("base", defaultBase, "CDN resource URL used by the demo images")
	serveCmd.Flags().Bool("eager", false, "render final markup without waiting for intersection")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	base, _ := cmd.Flags().GetString("base")
	timeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if eager, _ := cmd.Flags().GetBool("eager"); eager {
		cfg.Image.Eager = true
	}

	key, err := serverKey(cfg.Server)
	if err != nil {
		return err
	}

	e := newServer(cfg, key, base, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "convention", cfg.Image.Convention)
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// serverKey returns the configured key or a random development key.
func serverKey(sc config.ServerConfig) ([]byte, error) {
	if sc.Key != "" {
		return []byte(sc.Key), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	logger.Warn("no server.key configured, using a random key; URLs will not survive a restart")
	return key, nil
}

// newServer wires the demo page, component routes and metrics onto echo.
func newServer(cfg *config.Config, key []byte, base string, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	m := metrics.New()
	reg := gcpimgecho.Mount(e, gcpimgecho.WithKey(key), gcpimgecho.WithLogger(log))

	gallery := demo.NewGallery(demo.Options{
		Base:       base,
		Convention: cfg.Convention(),
		Eager:      cfg.Image.Eager,
		Sensitive:  cfg.Image.Sensitive,
		CacheSize:  cfg.Image.CacheSize,
		Extra:      []gcpimg.Option{gcpimg.WithLogger(log), gcpimg.WithMetrics(m)},
	})
	gallery.Init(reg)

	e.GET("/", func(c echo.Context) error {
		return gcpimgecho.Render(c, gallery.Page(gcpimgecho.Capabilities(c)))
	})
	e.GET(cfg.Server.MetricsPath, echo.WrapHandler(m.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	return e
}
