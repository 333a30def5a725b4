package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spotSignalBot/internal/domain"
	"spotSignalBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.LedgerRepository using SQLite. Bot state is
// written through after every ledger mutation so a restart can pick up open
// trades and an activated DCA cycle instead of orphaning exchange-side orders.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/bots.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the monitor and the webhook path.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
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
	cfg.Logger.Info(context.Background(), "Ledger database ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		bot TEXT NOT NULL,
		symbol TEXT NOT NULL,
		quantity REAL NOT NULL,
		entry_price REAL NOT NULL,
		status TEXT NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		PRIMARY KEY (bot, symbol)
	);

	CREATE TABLE IF NOT EXISTS dca_cycles (
		bot TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		symbol TEXT NOT NULL DEFAULT '',
		entry_price REAL NOT NULL DEFAULT 0,
		total_qty REAL NOT NULL DEFAULT 0,
		dca_orders_placed INTEGER NOT NULL DEFAULT 0,
		activated_at TIMESTAMP NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing ledger database")
		return r.db.Close()
	}
	return nil
}

// UpsertTrade saves or replaces the trade record for (bot, symbol).
func (r *Repository) UpsertTrade(ctx context.Context, bot string, trade *domain.Trade) error {
	const query = `
	INSERT INTO trades (bot, symbol, quantity, entry_price, status, entry_time)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (bot, symbol) DO UPDATE SET
		quantity = excluded.quantity,
		entry_price = excluded.entry_price,
		status = excluded.status,
		entry_time = excluded.entry_time`

	_, err := r.db.ExecContext(ctx, query, bot, trade.Symbol, trade.Quantity, trade.EntryPrice, trade.Status, trade.EntryTime)
	if err != nil {
		return fmt.Errorf("failed to upsert trade %s/%s: %w: %w", bot, trade.Symbol, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Trade persisted", map[string]interface{}{"bot": bot, "symbol": trade.Symbol})
	return nil
}

// DeleteTrade removes the trade record for (bot, symbol).
func (r *Repository) DeleteTrade(ctx context.Context, bot, symbol string) error {
	const query = `DELETE FROM trades WHERE bot = ? AND symbol = ?`
	if _, err := r.db.ExecContext(ctx, query, bot, symbol); err != nil {
		return fmt.Errorf("failed to delete trade %s/%s: %w: %w", bot, symbol, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Trade record deleted", map[string]interface{}{"bot": bot, "symbol": symbol})
	return nil
}

// FindTrades retrieves all persisted trades for a bot.
func (r *Repository) FindTrades(ctx context.Context, bot string) ([]*domain.Trade, error) {
	const query = `
	SELECT symbol, quantity, entry_price, status, entry_time
	FROM trades WHERE bot = ? ORDER BY symbol`

	rows, err := r.db.QueryContext(ctx, query, bot)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for bot %s: %w: %w", bot, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		t := &domain.Trade{}
		var status string
		if err := rows.Scan(&t.Symbol, &t.Quantity, &t.EntryPrice, &status, &t.EntryTime); err != nil {
			return nil, fmt.Errorf("failed to scan trade row for bot %s: %w", bot, err)
		}
		t.Status = domain.TradeStatus(status)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// UpsertCycle saves the current DCA cycle state for a bot.
func (r *Repository) UpsertCycle(ctx context.Context, bot string, cycle *domain.DcaCycle) error {
	const query = `
	INSERT INTO dca_cycles (bot, status, symbol, entry_price, total_qty, dca_orders_placed, activated_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (bot) DO UPDATE SET
		status = excluded.status,
		symbol = excluded.symbol,
		entry_price = excluded.entry_price,
		total_qty = excluded.total_qty,
		dca_orders_placed = excluded.dca_orders_placed,
		activated_at = excluded.activated_at,
		updated_at = excluded.updated_at`

	var activatedAt sql.NullTime
	if !cycle.ActivatedAt.IsZero() {
		activatedAt = sql.NullTime{Time: cycle.ActivatedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		bot, cycle.Status, cycle.Symbol, cycle.EntryPrice, cycle.TotalQty, cycle.DcaOrdersPlaced, activatedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert cycle for bot %s: %w: %w", bot, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Cycle persisted", map[string]interface{}{"bot": bot, "status": cycle.Status, "symbol": cycle.Symbol})
	return nil
}

// FindCycle retrieves the persisted cycle for a bot. Returns nil, nil when the
// bot has never saved one.
func (r *Repository) FindCycle(ctx context.Context, bot string) (*domain.DcaCycle, error) {
	const query = `
	SELECT status, symbol, entry_price, total_qty, dca_orders_placed, activated_at
	FROM dca_cycles WHERE bot = ?`

	c := &domain.DcaCycle{}
	var status string
	var activatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, bot).Scan(&status, &c.Symbol, &c.EntryPrice, &c.TotalQty, &c.DcaOrdersPlaced, &activatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query cycle for bot %s: %w: %w", bot, ports.ErrQueryFailed, err)
	}
	c.Status = domain.CycleStatus(status)
	if activatedAt.Valid {
		c.ActivatedAt = activatedAt.Time
	}
	return c, nil
}
