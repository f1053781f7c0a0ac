// Package store holds the analytical-store (ClickHouse) schema plus the
// bulk loader and paged replay reader built on top of it.
package store

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"marketdata-pipeline/internal/xerrors"
)

// TableName is the MergeTree table every loaded event lands in.
const TableName = "marketDataUnprocessed"

const createTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	local_unique_id Int64,
	venue_timestamp DateTime64(3, 'UTC'),
	gate_timestamp  DateTime64(9, 'UTC'),
	event_type      String,
	product         String,
	id1             Nullable(UInt64),
	id2             Nullable(UInt64),
	ask_not_bid     Nullable(Bool),
	buy_not_sell    Nullable(Bool),
	price           String,
	quantity        String
)
ENGINE = MergeTree
ORDER BY (local_unique_id, venue_timestamp)
PARTITION BY toYYYYMMDD(gate_timestamp)
`

// ConnConfig describes how to reach the ClickHouse instance backing the
// analytical store.
type ConnConfig struct {
	Addr        string
	Database    string
	Username    string
	Password    string
	Compression string // "lz4", "zstd", or "none"
}

// Open connects to ClickHouse over its native protocol.
func Open(cfg ConnConfig) (clickhouse.Conn, error) {
	opts := &clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	}
	switch cfg.Compression {
	case "zstd":
		opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionZSTD}
	case "none", "":
		// no compression negotiated
	default:
		opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open connection: %w", err)
	}
	return conn, nil
}

// EnsureSchema creates the analytical-store table if it does not already
// exist.
func EnsureSchema(ctx context.Context, conn clickhouse.Conn) error {
	stmt := fmt.Sprintf(createTableDDL, TableName)
	if err := conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("store: create table %s: %w", TableName, err)
	}
	return nil
}

// VerifyEngine checks that TableName is backed by a MergeTree engine,
// returning xerrors.ErrSchemaMismatch if an operator has pointed EnsureSchema
// at a pre-existing table created with a different engine.
func VerifyEngine(ctx context.Context, conn clickhouse.Conn) error {
	row := conn.QueryRow(ctx, "SELECT engine FROM system.tables WHERE name = ?", TableName)
	var engine string
	if err := row.Scan(&engine); err != nil {
		return fmt.Errorf("store: inspect table %s: %w", TableName, err)
	}
	if engine != "MergeTree" {
		return fmt.Errorf("%w: %s has engine %q, want MergeTree", xerrors.ErrSchemaMismatch, TableName, engine)
	}
	return nil
}
