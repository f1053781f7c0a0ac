// Command ingest connects to the venue's combined-stream WebSocket and REST
// snapshot endpoints, decodes every trade/depth-diff/snapshot message into
// canonical events, and appends them to the hourly-rotated binary log.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"marketdata-pipeline/internal/config"
	"marketdata-pipeline/internal/decode"
	"marketdata-pipeline/internal/event"
	"marketdata-pipeline/internal/exchange"
	"marketdata-pipeline/internal/logging"
	"marketdata-pipeline/internal/recorder"
)

func main() {
	fs := pflag.NewFlagSet("ingest", pflag.ExitOnError)
	configFile := fs.String("config", "", "optional YAML config file")
	config.RegisterIngestFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load(fs, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		JSONFormat: cfg.Logging.JSONFormat,
		Component:  "ingest",
	})
	logging.SetDefault(logger)

	symbols, err := readSymbols(cfg.SymbolsPath)
	if err != nil {
		logger.WithError(err).Fatal("reading symbols file")
	}
	logger.WithField("count", len(symbols)).Info("loaded symbol list")

	client := exchange.NewClient(cfg.Exchange.RESTBaseURL)
	info, err := client.GetExchangeInfo()
	if err != nil {
		logger.WithError(err).Fatal("fetching exchange info")
	}
	limiter := exchange.NewRateLimiter(info.WeightLimit, cfg.RateLimit.WindowDuration, exchange.ExchangeInfoWeight)

	rec := recorder.New(cfg.Recorder.OutputPath, cfg.Recorder.RotationFreq)
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Runtime > 0 {
		var runtimeCancel context.CancelFunc
		ctx, runtimeCancel = context.WithTimeout(ctx, cfg.Runtime)
		defer runtimeCancel()
	}
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	rawEvents := make(chan exchange.RawEvent, 1024)
	snapshots := make(chan exchange.SnapshotPayload, 64)

	var wg sync.WaitGroup
	for _, group := range exchange.GroupSymbols(symbols, cfg.Exchange.MaxSymbolsPerConn) {
		url := exchange.BuildStreamURL(cfg.Exchange.WSBaseURL, group)
		conn := exchange.NewStreamConn(url, cfg.Exchange.ConnLifetime, cfg.Exchange.ConnGrace)
		wg.Add(1)
		go func(conn *exchange.StreamConn) {
			defer wg.Done()
			conn.Run(ctx, rawEvents)
		}(conn)
	}

	snapshotLoop := exchange.NewSnapshotLoop(client, limiter, symbols, time.Hour)
	wg.Add(1)
	go func() {
		defer wg.Done()
		snapshotLoop.Run(ctx, snapshots)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		consume(ctx, logger, rec, rawEvents, snapshots)
	}()

	wg.Wait()
	logger.Info("ingest stopped")
}

// consume decodes raw stream frames and snapshot bodies into canonical
// events and hands each one to the recorder, running until both input
// channels are closed or ctx is cancelled.
func consume(
	ctx context.Context,
	logger *logging.Logger,
	rec *recorder.Recorder,
	rawEvents <-chan exchange.RawEvent,
	snapshots <-chan exchange.SnapshotPayload,
) {
	gateNow := func() int64 { return time.Now().UnixNano() / int64(time.Millisecond) }

	for {
		if rawEvents == nil && snapshots == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-rawEvents:
			if !ok {
				rawEvents = nil
				continue
			}
			events, err := decodeRaw(raw, gateNow())
			if err != nil {
				logger.WithError(err).Warn("dropping undecodable stream frame")
				continue
			}
			writeAll(logger, rec, events)
		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			events, err := decodeSnapshot(snap, gateNow())
			if err != nil {
				logger.WithError(err).WithField("symbol", snap.Symbol).Warn("dropping undecodable snapshot")
				continue
			}
			writeAll(logger, rec, events)
		}
	}
}

func decodeRaw(raw exchange.RawEvent, gateTimestamp int64) ([]event.Event, error) {
	body, err := decode.ExtractStreamData(raw.Text)
	if err != nil {
		return nil, err
	}

	switch raw.Kind {
	case exchange.RawTrade:
		trade, err := decode.ParseTrade(body)
		if err != nil {
			return nil, err
		}
		return []event.Event{trade.ToEvent(gateTimestamp)}, nil
	case exchange.RawDepth:
		depth, err := decode.ParseDepth(body)
		if err != nil {
			return nil, err
		}
		return depth.ToEvents(gateTimestamp), nil
	default:
		return nil, fmt.Errorf("ingest: unrecognised raw event kind %v", raw.Kind)
	}
}

func decodeSnapshot(snap exchange.SnapshotPayload, timestamp int64) ([]event.Event, error) {
	s, err := decode.ParseSnapshot(snap.Body)
	if err != nil {
		return nil, err
	}
	return s.ToEvents(snap.Symbol, timestamp), nil
}

func writeAll(logger *logging.Logger, rec *recorder.Recorder, events []event.Event) {
	for _, e := range events {
		if err := rec.Write(e); err != nil {
			logger.WithError(err).Fatal("recorder write failed")
		}
	}
}

func readSymbols(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open symbols file %s: %w", path, err)
	}
	defer f.Close()

	var symbols []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols = append(symbols, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: read symbols file %s: %w", path, err)
	}
	return symbols, nil
}
