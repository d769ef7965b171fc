package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oelohome/oelod/internal/config"
	"github.com/oelohome/oelod/internal/controller"
	"github.com/oelohome/oelod/internal/http/handlers"
	"github.com/oelohome/oelod/internal/pattern"
	"github.com/oelohome/oelod/internal/server"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("OELOD")
	v.AutomaticEnv()

	pflag.String("log-level", "info", "Log level (debug, info, warn, error)")
	pflag.String("log-format", "text", "Log format (text, json)")
	pflag.String("config", "", "Path to config file")
	pflag.Parse()

	v.BindPFlag("logging.level", pflag.Lookup("log-level"))
	v.BindPFlag("logging.format", pflag.Lookup("log-format"))

	cfg, err := config.Load(config.DaemonConfigFilename, v.GetString("config"))
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Flags override the config file when set.
	level := cfg.Config.Logging.Level
	if pflag.Lookup("log-level").Changed {
		level = v.GetString("logging.level")
	}
	format := cfg.Config.Logging.Format
	if pflag.Lookup("log-format").Changed {
		format = v.GetString("logging.format")
	}

	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: getLogLevel(level)})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: getLogLevel(level)})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("starting oelod",
		"version", version,
		"commit", commit,
		"buildDate", buildDate,
	)

	controllers := controller.NewManager(logger, cfg)

	store, err := pattern.NewStore(logger, cfg.Config.Storage.PatternsPath)
	if err != nil {
		logger.Error("failed to open pattern store", "error", err)
		os.Exit(1)
	}

	srv := server.New(logger, cfg, controllers, store, handlers.VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})

	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down...")

	srv.Stop()
}

func getLogLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
