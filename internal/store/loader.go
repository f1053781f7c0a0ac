package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ClickHouse/clickhouse-go/v2"

	"marketdata-pipeline/internal/event"
	"marketdata-pipeline/internal/logging"
)

// ProgressFunc is called after each event is read from a file, with the
// number of bytes consumed so far and the file's total size, so a caller
// can render a progress bar the way the original bulk loader does.
type ProgressFunc func(bytesRead, totalBytes int64)

// Loader bulk-loads rotated binary event logs into the analytical store.
type Loader struct {
	conn clickhouse.Conn
	log  *logging.Logger
}

// NewLoader builds a Loader writing through conn.
func NewLoader(conn clickhouse.Conn) *Loader {
	return &Loader{conn: conn, log: logging.Default().WithComponent("loader")}
}

// LoadDir loads every *.bin file directly under dir into the analytical
// store, one INSERT batch per file, reporting progress via onProgress
// (which may be nil).
func (l *Loader) LoadDir(ctx context.Context, dir string, onProgress ProgressFunc) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("store: read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".bin" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		l.log.WithField("path", path).Info("loading file")
		if err := l.LoadFile(ctx, path, onProgress); err != nil {
			return fmt.Errorf("store: load %s: %w", path, err)
		}
	}
	return nil
}

// LoadFile streams-decodes one binary log file, batching every decoded
// event into a single INSERT against TableName.
func (l *Loader) LoadFile(ctx context.Context, path string, onProgress ProgressFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("store: stat %s: %w", path, err)
	}
	totalSize := info.Size()

	countingReader := &countingReader{r: f}
	br := bufio.NewReader(countingReader)

	batch, err := l.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", TableName))
	if err != nil {
		return fmt.Errorf("store: prepare batch: %w", err)
	}

	for {
		e, err := event.Decode(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("store: decode event: %w", err)
		}

		if err := batch.Append(
			e.LocalUniqueID,
			e.VenueTimestamp,
			e.GateTimestamp,
			string(e.EventType),
			e.Product,
			e.ID1,
			e.ID2,
			e.AskNotBid,
			e.BuyNotSell,
			e.Price,
			e.Quantity,
		); err != nil {
			return fmt.Errorf("store: append row: %w", err)
		}

		if onProgress != nil {
			onProgress(countingReader.n, totalSize)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("store: send batch: %w", err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
