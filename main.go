package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/camnode/camnode/cmd"
	"github.com/camnode/camnode/internal/api"
	"github.com/camnode/camnode/internal/capture"
	"github.com/camnode/camnode/internal/catalog"
	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/driver"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/graph"
	"github.com/camnode/camnode/internal/logging"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Driver settings
	SettingsFile string `help:"Driver settings file" default:"settings.toml" toml:"driver.settings_file" env:"DRIVER_SETTINGS_FILE"`
	AutoConnect  bool   `help:"Build the capture graph at startup" default:"false" toml:"driver.auto_connect" env:"DRIVER_AUTO_CONNECT"`

	// Metrics settings
	MetricsEnabled bool `help:"Enable Prometheus metrics endpoint" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCatalog string `help:"Catalog logging level" default:"info" toml:"logging.catalog" env:"LOGGING_CATALOG"`
	LoggingGraph   string `help:"Graph logging level" default:"info" toml:"logging.graph" env:"LOGGING_GRAPH"`
	LoggingSession string `help:"Session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"catalog": opts.LoggingCatalog,
				"graph":   opts.LoggingGraph,
				"session": opts.LoggingSession,
				"api":     opts.LoggingAPI,
			},
		})

		logger := logging.GetLogger("main")

		// Persisted driver settings
		settings := config.NewSettingsStore(opts.SettingsFile)
		if loadErr := settings.Load(); loadErr != nil {
			logger.Warn("Failed to load driver settings, using defaults", "error", loadErr)
		}

		// Event bus for in-process event handling
		eventBus := events.New()

		// Forward log entries to bus subscribers (avoids an import
		// cycle between logging and events).
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Device and compressor catalog backed by the host probe
		cat := catalog.New(catalog.NewSysProber(), logging.GetLogger("catalog"))
		cat.AttachBus(eventBus)

		// GStreamer capture backend and graph builder
		backend := graph.NewGstBackend(logging.GetLogger("graph"))
		builder := graph.NewBuilder(backend, logging.GetLogger("graph"))

		// Capture session and driver facade
		session := capture.NewSession(cat, builder, settings, eventBus, logging.GetLogger("session"))
		drv := driver.New(session, cat, settings, logging.GetLogger("driver"))

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Driver:       drv,
			Catalog:      cat,
			Session:      session,
			Settings:     settings,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = promhttp.Handler()
		}

		server := api.NewServer(apiOpts)

		// Rebind the live session when the settings file changes on disk.
		settingsLoader := func(path string) (config.Settings, error) {
			if err := settings.Reload(); err != nil {
				return config.Settings{}, err
			}
			return settings.Get(), nil
		}
		watcher := config.NewConfigWatcher(
			opts.SettingsFile,
			settingsLoader,
			logger,
			config.WithDebounce[config.Settings](1500*time.Millisecond),
		)
		watcher.OnReload(func(config.Settings) {
			if reloadErr := session.ReloadConfiguration(); reloadErr != nil {
				logger.Warn("Failed to apply changed settings", "error", reloadErr)
			}
		})

		hooks.OnStart(func() {
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Failed to watch settings file", "error", watchErr)
			}

			if opts.AutoConnect {
				if connectErr := session.Connect(); connectErr != nil {
					logger.Error("Failed to build capture graph at startup", "error", connectErr)
				}
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Error("Error stopping settings watcher", "error", stopErr)
			}

			// Tear down the capture graph so a recording in flight gets
			// its file closed.
			session.Disconnect()
		})
	})

	// Add devices command
	cli.Root().AddCommand(cmd.CreateDevicesCmd())

	// Run the CLI
	cli.Run()
}
