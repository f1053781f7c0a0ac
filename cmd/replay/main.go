// Command replay drives the execution-price estimator against a product's
// history in the analytical store, writing one observation record per
// completed depth->trade cycle to "<product>.txt".
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"marketdata-pipeline/internal/config"
	"marketdata-pipeline/internal/logging"
	"marketdata-pipeline/internal/player"
	"marketdata-pipeline/internal/store"
)

func main() {
	fs := pflag.NewFlagSet("replay", pflag.ExitOnError)
	configFile := fs.String("config", "", "optional YAML config file")
	product := fs.String("product", "", "product/symbol to replay (required)")
	quantity := fs.String("quantity", "1", "execution notional quantity")
	confidence := fs.Float64("confidence", 0.95, "confidence level for the execution-price interval")
	startRFC3339 := fs.String("start", "", "replay start time, RFC3339 (default: epoch)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *product == "" {
		fmt.Fprintln(os.Stderr, "replay: --product is required")
		os.Exit(1)
	}

	cfg, err := config.Load(fs, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		JSONFormat: cfg.Logging.JSONFormat,
		Component:  "replay",
	})
	logging.SetDefault(logger)

	qty, err := decimal.NewFromString(*quantity)
	if err != nil {
		logger.WithError(err).Fatal("parsing --quantity")
	}

	start := time.Unix(0, 0).UTC()
	if *startRFC3339 != "" {
		start, err = time.Parse(time.RFC3339, *startRFC3339)
		if err != nil {
			logger.WithError(err).Fatal("parsing --start")
		}
	}

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

	provider := store.NewProvider(conn, *product, start)

	out, err := player.OpenOutputFile(*product)
	if err != nil {
		logger.WithError(err).Fatal("opening output file")
	}
	defer out.Close()

	p := player.New(*product, qty, *confidence, provider, out)
	logger.WithField("product", *product).Info("starting replay")
	if err := p.Play(context.Background()); err != nil {
		logger.WithError(err).Fatal("replay failed")
	}
	logger.Info("replay complete")
}
