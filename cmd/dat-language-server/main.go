package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/DanielWillett/unturned-dat-language-server/internal/config"
	"github.com/DanielWillett/unturned-dat-language-server/internal/ls"
	"github.com/DanielWillett/unturned-dat-language-server/internal/observability"
)

const defaultConfigPath = "datls.toml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to config file")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", ls.ServerName, ls.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Stdout carries the protocol, so logs go to stderr.
	slog.SetDefault(newLogger(os.Stderr, cfg, *verbose))

	if cfg.Metrics.Address != "" {
		metrics := observability.NewServer(cfg.Metrics.Address)
		if err := metrics.Start(); err != nil {
			slog.Error("failed to start metrics server", "address", cfg.Metrics.Address, "error", err)
		} else {
			slog.Info("metrics server listening", "address", metrics.Addr())
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = metrics.Stop(ctx)
			}()
		}
	}

	server := ls.New(cfg)
	if err := server.RunStdio(); err != nil {
		slog.Error("server failed", "error", err)
	}
}

// loadConfig reads path, falling back to the defaults when the default
// config file doesn't exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}

func newLogger(w io.Writer, cfg *config.Config, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
