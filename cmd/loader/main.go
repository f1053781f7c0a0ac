// Command loader bulk-loads rotated binary event logs into the ClickHouse
// analytical store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"marketdata-pipeline/internal/config"
	"marketdata-pipeline/internal/logging"
	"marketdata-pipeline/internal/store"
)

func main() {
	fs := pflag.NewFlagSet("loader", pflag.ExitOnError)
	configFile := fs.String("config", "", "optional YAML config file")
	dir := fs.String("dir", "", "directory of rotated binary logs to load")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load(fs, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loader: %v\n", err)
		os.Exit(1)
	}
	if *dir == "" {
		*dir = cfg.Recorder.OutputPath
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		JSONFormat: cfg.Logging.JSONFormat,
		Component:  "loader",
	})
	logging.SetDefault(logger)

	conn, err := store.Open(store.ConnConfig{
		Addr:        cfg.Store.Addr,
		Database:    cfg.Store.Database,
		Username:    cfg.Store.Username,
		Password:    cfg.Store.Password,
		Compression: cfg.Store.Compression,
	})
	if err != nil {
		logger.WithError(err).Fatal("connecting to analytical store")
	}
	defer conn.Close()

	ctx := context.Background()
	if err := store.EnsureSchema(ctx, conn); err != nil {
		logger.WithError(err).Fatal("ensuring analytical store schema")
	}

	loader := store.NewLoader(conn)
	onProgress := func(bytesRead, totalBytes int64) {
		if totalBytes == 0 {
			return
		}
		pct := float64(bytesRead) / float64(totalBytes) * 100
		fmt.Printf("\rloading: %6.2f%%", pct)
	}

	logger.WithField("dir", *dir).Info("loading binary logs")
	if err := loader.LoadDir(ctx, *dir, onProgress); err != nil {
		fmt.Println()
		logger.WithError(err).Fatal("loading binary logs")
	}
	fmt.Println()
	logger.Info("load complete")
}
