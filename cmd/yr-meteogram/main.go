package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/yr-meteogram/internal/api/http"
	"github.com/i474232898/yr-meteogram/internal/config"
	"github.com/i474232898/yr-meteogram/internal/logger"
	"github.com/i474232898/yr-meteogram/internal/meteogram"
	"github.com/i474232898/yr-meteogram/internal/meteogram/yr"
	"github.com/i474232898/yr-meteogram/internal/scheduler"
	"github.com/i474232898/yr-meteogram/internal/store"
)

// dotenvErr is reported once a logger exists.
var dotenvErr error

func main() {
	dotenvErr = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// renderFlags are the rendering switches shared by validate and fetch.
type renderFlags struct {
	dark, crop, transparent, unhide bool
}

func (f *renderFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dark, "dark", meteogram.DefaultDarkMode, "dark mode")
	cmd.Flags().BoolVar(&f.crop, "crop", meteogram.DefaultCrop, "crop header and footer")
	cmd.Flags().BoolVar(&f.transparent, "transparent", meteogram.DefaultMakeTransparent, "transparent background")
	cmd.Flags().BoolVar(&f.unhide, "unhide-dark-objects", meteogram.DefaultUnhideDarkObjects, "lighten dark objects in dark mode")
}

func (f renderFlags) settings() meteogram.Settings {
	return meteogram.Settings{
		DarkMode:          f.dark,
		Crop:              f.crop,
		MakeTransparent:   f.transparent,
		UnhideDarkObjects: f.unhide,
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "yr-meteogram",
		Short:        "Serve Yr meteograms for configured locations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newValidateCmd(), newFetchCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh loop and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newValidateCmd() *cobra.Command {
	var flags renderFlags
	cmd := &cobra.Command{
		Use:   "validate <location-id>",
		Short: "Check a location id against Yr and print its name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			v := meteogram.NewValidator(newYrClient(cfg, log), yr.LocationName, log.Named("validator"))
			title, err := v.Validate(cmd.Context(), args[0], flags.settings())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), title)
			return err
		},
	}
	flags.bind(cmd)
	return cmd
}

func newFetchCmd() *cobra.Command {
	var (
		flags renderFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "fetch <location-id>",
		Short: "Download a meteogram once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			svg, err := newYrClient(cfg, log).FetchSVG(cmd.Context(), args[0], flags.settings())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), svg)
				return err
			}
			return os.WriteFile(out, []byte(svg), 0o644)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the SVG to this file instead of stdout")
	return cmd
}

func setup() (*config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(&cfg.Log)
	logDotenv(log, dotenvErr)
	return cfg, log, nil
}

// logDotenv reports a .env file that exists but could not be loaded. A missing
// file is normal when the environment is set directly.
func logDotenv(log *zap.Logger, err error) {
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		log.Debug("no .env file found")
	default:
		log.Warn("failed to load .env file", zap.Error(err))
	}
}

func newYrClient(cfg *config.AppConfig, log *zap.Logger) *yr.Client {
	// Shared HTTP client for outbound calls; it owns the fetch timeout.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	return yr.NewClient(httpClient,
		yr.WithBaseURL(cfg.YrBaseURL),
		yr.WithUserAgent(cfg.YrUserAgent),
		yr.WithBackoff(yr.BackoffConfig{
			MaxRetries:      cfg.YrMaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}),
		yr.WithLogger(log.Named("yr")),
	)
}

func runServe(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var entries meteogram.Store
	if cfg.EntriesFile != "" {
		fs, err := store.NewFileStore(cfg.EntriesFile)
		if err != nil {
			return fmt.Errorf("failed to open entries file: %w", err)
		}
		log.Info("using entries file", zap.String("path", fs.Path()))
		entries = fs
	} else {
		entries = store.NewMemoryStore()
	}

	sched := scheduler.New(log.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	service := meteogram.NewService(entries, newYrClient(cfg, log), yr.LocationName, sched, log)
	defer service.Shutdown()

	if err := service.SetupAll(ctx); err != nil {
		return fmt.Errorf("failed to set up entries: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "yr-meteogram",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, service)

	go func() {
		log.Info("http api listening", zap.String("addr", cfg.Addr()))
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Error("fiber server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	return nil
}
