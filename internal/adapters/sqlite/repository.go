// Package sqlite stores completed trades for reporting and analytics.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// Repository implements ports.TradeRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (or creates) the trade database.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trades.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode: the scheduler's single writer plus ad-hoc reporting reads.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	cfg.Logger.Info(context.Background(), "Trade database ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		position_type TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		size REAL NOT NULL,
		pnl REAL NOT NULL,
		entry_rsi REAL DEFAULT NULL,
		exit_rsi REAL DEFAULT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		exit_reason TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_exit_time ON trades (symbol, exit_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: creating trades table: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// RecordTrade saves a closed round trip and returns its assigned ID.
func (r *Repository) RecordTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	if trade == nil {
		return 0, fmt.Errorf("%w: trade is required", ports.ErrInvalidRequest)
	}
	if !trade.Kind.Valid() {
		return 0, fmt.Errorf("%w: unknown position type %q", ports.ErrInvalidRequest, trade.Kind)
	}

	const query = `
	INSERT INTO trades (symbol, position_type, entry_price, exit_price, size, pnl,
		entry_rsi, exit_rsi, entry_time, exit_time, exit_reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol,
		string(trade.Kind),
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Size,
		trade.PNL,
		nullFloat(trade.EntryRSI),
		nullFloat(trade.ExitRSI),
		trade.EntryTime.UTC(),
		trade.ExitTime.UTC(),
		string(trade.ExitReason),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: %w", ports.ErrDuplicateEntry, err)
		}
		return 0, fmt.Errorf("%w: inserting trade: %w", ports.ErrQueryFailed, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading inserted trade id: %w", ports.ErrQueryFailed, err)
	}

	r.logger.Info(ctx, "Trade recorded", map[string]interface{}{
		"id":     id,
		"symbol": trade.Symbol,
		"type":   trade.Kind,
		"pnl":    trade.PNL,
		"reason": trade.ExitReason,
	})
	return id, nil
}

// FindBySymbol retrieves the most recent trades for a symbol, newest first.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	query := `
	SELECT id, symbol, position_type, entry_price, exit_price, size, pnl,
		entry_rsi, exit_rsi, entry_time, exit_time, exit_reason
	FROM trades WHERE symbol = ? ORDER BY exit_time DESC`
	args := []interface{}{symbol}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying trades: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating trades: %w", ports.ErrQueryFailed, err)
	}
	return trades, nil
}

// Stats aggregates the recorded history for a symbol.
func (r *Repository) Stats(ctx context.Context, symbol string) (ports.TradeStats, error) {
	const query = `
	SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN pnl <= 0 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(pnl), 0)
	FROM trades WHERE symbol = ?`

	var stats ports.TradeStats
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(&stats.Total, &stats.Wins, &stats.Losses, &stats.TotalPNL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.TradeStats{}, nil
		}
		return ports.TradeStats{}, fmt.Errorf("%w: aggregating trades: %w", ports.ErrQueryFailed, err)
	}
	return stats, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanTrade.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*domain.Trade, error) {
	var trade domain.Trade
	var kind, reason string
	var entryRSI, exitRSI sql.NullFloat64
	err := s.Scan(
		&trade.ID,
		&trade.Symbol,
		&kind,
		&trade.EntryPrice,
		&trade.ExitPrice,
		&trade.Size,
		&trade.PNL,
		&entryRSI,
		&exitRSI,
		&trade.EntryTime,
		&trade.ExitTime,
		&reason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning trade: %w", ports.ErrQueryFailed, err)
	}
	trade.Kind = domain.PositionKind(kind)
	trade.ExitReason = domain.ExitReason(reason)
	if entryRSI.Valid {
		v := entryRSI.Float64
		trade.EntryRSI = &v
	}
	if exitRSI.Valid {
		v := exitRSI.Float64
		trade.ExitRSI = &v
	}
	return &trade, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
