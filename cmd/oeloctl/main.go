package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/oelohome/oelod/cmd/oeloctl/commands"
	"github.com/oelohome/oelod/internal/config"
	"github.com/oelohome/oelod/pkg/client"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load(config.ClientConfigFilename, "")
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
		// Missing client config is fine, run with defaults.
		cfg = &config.Config{
			Config: config.FileConfig{
				Logging: config.LoggingConfig{
					Level:  config.LogLevelInfo,
					Format: config.LogFormatText,
				},
			},
		}
	}

	logger := setupLogger(cfg.Config.Logging.Level, cfg.Config.Logging.Format)
	slog.SetDefault(logger)

	rootCmd := commands.NewRootCommand(logger, version, commit, buildDate)

	// Flag overrides are parsed ahead of cobra so the client is built with
	// the right socket before command dispatch.
	rootCmd.PersistentFlags().ParseErrorsWhitelist.UnknownFlags = true
	_ = rootCmd.PersistentFlags().Parse(os.Args[1:])

	level := cfg.Config.Logging.Level
	if rootCmd.PersistentFlags().Changed("log-level") {
		level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	format := cfg.Config.Logging.Format
	if rootCmd.PersistentFlags().Changed("log-format") {
		format, _ = rootCmd.PersistentFlags().GetString("log-format")
	}
	if level != cfg.Config.Logging.Level || format != cfg.Config.Logging.Format {
		logger = setupLogger(level, format)
		slog.SetDefault(logger)
	}

	socket := config.GetRuntimeSocketPath()
	if cfg.Config.Server.UnixSocket != "" {
		socket = cfg.Config.Server.UnixSocket
	}
	if socketFlag, _ := rootCmd.PersistentFlags().GetString("socket"); socketFlag != "" {
		socket = socketFlag
	}

	apiClient := client.New(logger, socket)

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, commands.ClientContextKey, apiClient)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogger(level, format string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case config.LogLevelDebug:
		slogLevel = slog.LevelDebug
	case config.LogLevelWarn:
		slogLevel = slog.LevelWarn
	case config.LogLevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
