package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Row is one loosely-typed warehouse result row, keyed by column name.
// Values carry whatever types the driver hands back; callers are expected
// to run them through a validated parse step before use.
type Row map[string]any

// Client executes analytical queries against the columnar warehouse.
type Client interface {
	// Query runs a single analytical statement and returns all result rows.
	Query(ctx context.Context, query string) ([]Row, error)
}

// ClickHouse wraps a ClickHouse DB connection.
type ClickHouse struct {
	DB *sql.DB
}

// PoolConfig holds connection pool settings for the warehouse client.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// InitClickHouse connects to ClickHouse. The events table is owned by the
// ingestion pipeline upstream of this service, so no schema bootstrap runs
// here.
func InitClickHouse(dsn string, pool PoolConfig) (*ClickHouse, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &ClickHouse{DB: db}, nil
}

// Query runs the statement and materializes every result row into a Row map.
func (c *ClickHouse) Query(ctx context.Context, query string) ([]Row, error) {
	if c == nil || c.DB == nil {
		return nil, fmt.Errorf("warehouse unavailable")
	}

	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("warehouse query: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("result columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// Close terminates the ClickHouse connection.
func (c *ClickHouse) Close() {
	if c != nil && c.DB != nil {
		if err := c.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
