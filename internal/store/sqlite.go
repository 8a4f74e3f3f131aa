// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"stockwatch/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	// mu serializes alert id assignment so ids stay strictly increasing
	// under concurrent appends.
	mu sync.Mutex
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Tracked symbols registry
	CREATE TABLE IF NOT EXISTS tracked_symbols (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL UNIQUE COLLATE NOCASE,
		name TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		alert_threshold REAL NOT NULL DEFAULT 0,
		notes TEXT,
		added_date DATETIME NOT NULL
	);

	-- Singleton preferences record
	CREATE TABLE IF NOT EXISTS preferences (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		global_alert_threshold REAL NOT NULL,
		cooldown_minutes INTEGER NOT NULL,
		max_alerts_per_day INTEGER NOT NULL,
		is_active INTEGER NOT NULL,
		email_alerts_enabled INTEGER NOT NULL,
		include_analysis INTEGER NOT NULL,
		include_key_factors INTEGER NOT NULL,
		enforce_rate_limits INTEGER NOT NULL,
		updated_date DATETIME NOT NULL
	);

	-- Append-only alert history
	CREATE TABLE IF NOT EXISTS alert_history (
		id INTEGER PRIMARY KEY,
		symbol TEXT NOT NULL,
		current_price REAL NOT NULL,
		previous_price REAL NOT NULL,
		change_percent REAL NOT NULL,
		threshold_used REAL NOT NULL,
		alert_type TEXT NOT NULL,
		analysis TEXT,
		key_factors TEXT,
		timestamp DATETIME NOT NULL,
		delivery_succeeded INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alert_history_symbol ON alert_history(symbol COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_alert_history_timestamp ON alert_history(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertSymbol inserts a new tracked symbol and assigns its id.
func (s *SQLiteStore) InsertSymbol(ctx context.Context, sym *models.TrackedSymbol) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tracked_symbols (symbol, name, is_active, alert_threshold, notes, added_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sym.Symbol, sym.Name, boolToInt(sym.IsActive), sym.AlertThreshold, sym.Notes, sym.AddedDate.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert symbol: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read symbol id: %w", err)
	}
	sym.ID = id
	return nil
}

// UpdateSymbol persists changed fields of an existing tracked symbol.
func (s *SQLiteStore) UpdateSymbol(ctx context.Context, sym *models.TrackedSymbol) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tracked_symbols
		SET name = ?, is_active = ?, alert_threshold = ?, notes = ?
		WHERE id = ?
	`, sym.Name, boolToInt(sym.IsActive), sym.AlertThreshold, sym.Notes, sym.ID)
	if err != nil {
		return fmt.Errorf("failed to update symbol: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteSymbol removes a tracked symbol. Returns false when the id is unknown.
func (s *SQLiteStore) DeleteSymbol(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracked_symbols WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete symbol: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// GetSymbol returns a tracked symbol by id, or nil when not found.
func (s *SQLiteStore) GetSymbol(ctx context.Context, id int64) (*models.TrackedSymbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, name, is_active, alert_threshold, notes, added_date
		FROM tracked_symbols WHERE id = ?
	`, id)
	return scanSymbol(row)
}

// GetSymbolByTicker returns a tracked symbol by ticker, matched
// case-insensitively, or nil when not found.
func (s *SQLiteStore) GetSymbolByTicker(ctx context.Context, symbol string) (*models.TrackedSymbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, name, is_active, alert_threshold, notes, added_date
		FROM tracked_symbols WHERE symbol = ? COLLATE NOCASE
	`, strings.TrimSpace(symbol))
	return scanSymbol(row)
}

// ListSymbols returns every tracked symbol ordered by id.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]models.TrackedSymbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, name, is_active, alert_threshold, notes, added_date
		FROM tracked_symbols ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []models.TrackedSymbol
	for rows.Next() {
		var sym models.TrackedSymbol
		var name, notes sql.NullString
		var active int
		if err := rows.Scan(&sym.ID, &sym.Symbol, &name, &active, &sym.AlertThreshold, &notes, &sym.AddedDate); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		sym.Name = name.String
		sym.Notes = notes.String
		sym.IsActive = active == 1
		symbols = append(symbols, sym)
	}

	return symbols, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSymbol(row rowScanner) (*models.TrackedSymbol, error) {
	var sym models.TrackedSymbol
	var name, notes sql.NullString
	var active int
	err := row.Scan(&sym.ID, &sym.Symbol, &name, &active, &sym.AlertThreshold, &notes, &sym.AddedDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan symbol: %w", err)
	}
	sym.Name = name.String
	sym.Notes = notes.String
	sym.IsActive = active == 1
	return &sym, nil
}

// GetPreferences returns the singleton preferences record, or nil when the
// record has never been written.
func (s *SQLiteStore) GetPreferences(ctx context.Context) (*models.Preferences, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT global_alert_threshold, cooldown_minutes, max_alerts_per_day, is_active,
		       email_alerts_enabled, include_analysis, include_key_factors,
		       enforce_rate_limits, updated_date
		FROM preferences WHERE id = 1
	`)

	var p models.Preferences
	var active, email, analysis, factors, enforce int
	err := row.Scan(&p.GlobalAlertThreshold, &p.CooldownMinutes, &p.MaxAlertsPerDay,
		&active, &email, &analysis, &factors, &enforce, &p.UpdatedDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan preferences: %w", err)
	}
	p.IsActive = active == 1
	p.EmailAlertsEnabled = email == 1
	p.IncludeAnalysis = analysis == 1
	p.IncludeKeyFactors = factors == 1
	p.EnforceRateLimits = enforce == 1
	return &p, nil
}

// SavePreferences writes the singleton preferences record.
func (s *SQLiteStore) SavePreferences(ctx context.Context, p models.Preferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO preferences (id, global_alert_threshold, cooldown_minutes,
			max_alerts_per_day, is_active, email_alerts_enabled, include_analysis,
			include_key_factors, enforce_rate_limits, updated_date)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.GlobalAlertThreshold, p.CooldownMinutes, p.MaxAlertsPerDay,
		boolToInt(p.IsActive), boolToInt(p.EmailAlertsEnabled), boolToInt(p.IncludeAnalysis),
		boolToInt(p.IncludeKeyFactors), boolToInt(p.EnforceRateLimits), p.UpdatedDate.UTC())
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// AppendAlert appends a record to the alert history and returns its id.
// The next id is max existing id + 1, or 1 for an empty (or cleared) history;
// assignment is serialized so ids stay strictly increasing.
func (s *SQLiteStore) AppendAlert(ctx context.Context, rec *models.AlertRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var nextID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM alert_history`).Scan(&nextID); err != nil {
		return 0, fmt.Errorf("failed to compute next alert id: %w", err)
	}

	factors, err := json.Marshal(rec.KeyFactors)
	if err != nil {
		return 0, fmt.Errorf("failed to encode key factors: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO alert_history (id, symbol, current_price, previous_price, change_percent,
			threshold_used, alert_type, analysis, key_factors, timestamp, delivery_succeeded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, nextID, rec.Symbol, rec.CurrentPrice, rec.PreviousPrice, rec.ChangePercent,
		rec.ThresholdUsed, string(rec.AlertType), rec.Analysis, string(factors),
		rec.Timestamp.UTC(), boolToInt(rec.DeliverySucceeded))
	if err != nil {
		return 0, fmt.Errorf("failed to append alert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit alert: %w", err)
	}

	rec.ID = nextID
	return nextID, nil
}

// RecentAlerts returns up to limit records, newest first.
func (s *SQLiteStore) RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, current_price, previous_price, change_percent, threshold_used,
		       alert_type, analysis, key_factors, timestamp, delivery_succeeded
		FROM alert_history ORDER BY timestamp DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// AlertsBySymbol returns up to limit records for one symbol, matched
// case-insensitively, newest first.
func (s *SQLiteStore) AlertsBySymbol(ctx context.Context, symbol string, limit int) ([]models.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, current_price, previous_price, change_percent, threshold_used,
		       alert_type, analysis, key_factors, timestamp, delivery_succeeded
		FROM alert_history WHERE symbol = ? COLLATE NOCASE
		ORDER BY timestamp DESC, id DESC LIMIT ?
	`, strings.TrimSpace(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// CountAlertsSince counts records (for any symbol) at or after the given time.
func (s *SQLiteStore) CountAlertsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alert_history WHERE timestamp >= ?`, since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

// LastAlertTime returns the timestamp of the most recent alert for a symbol,
// or nil when the symbol has no history.
func (s *SQLiteStore) LastAlertTime(ctx context.Context, symbol string) (*time.Time, error) {
	var ts sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM alert_history WHERE symbol = ? COLLATE NOCASE
	`, strings.TrimSpace(symbol)).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("failed to query last alert time: %w", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time
	return &t, nil
}

// AlertStats returns aggregate figures over the whole history.
func (s *SQLiteStore) AlertStats(ctx context.Context) (*AlertStats, error) {
	stats := &AlertStats{}

	var last sql.NullTime
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(timestamp), AVG(ABS(change_percent)) FROM alert_history
	`).Scan(&stats.TotalAlerts, &last, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert stats: %w", err)
	}
	if last.Valid {
		t := last.Time
		stats.LastAlertTime = &t
	}
	stats.AverageAbsChangePerc = avg.Float64

	if stats.TotalAlerts > 0 {
		err = s.db.QueryRowContext(ctx, `
			SELECT symbol FROM alert_history
			GROUP BY symbol ORDER BY COUNT(*) DESC, symbol ASC LIMIT 1
		`).Scan(&stats.MostActiveSymbol)
		if err != nil {
			return nil, fmt.Errorf("failed to query most active symbol: %w", err)
		}
	}

	return stats, nil
}

// ClearAlerts wipes the entire alert history. Numbering restarts from 1.
func (s *SQLiteStore) ClearAlerts(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM alert_history`); err != nil {
		return fmt.Errorf("failed to clear alerts: %w", err)
	}
	return nil
}

func scanAlerts(rows *sql.Rows) ([]models.AlertRecord, error) {
	var records []models.AlertRecord
	for rows.Next() {
		var rec models.AlertRecord
		var analysis, factors sql.NullString
		var alertType string
		var delivered int
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.CurrentPrice, &rec.PreviousPrice,
			&rec.ChangePercent, &rec.ThresholdUsed, &alertType, &analysis, &factors,
			&rec.Timestamp, &delivered); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		rec.AlertType = models.AlertType(alertType)
		rec.Analysis = analysis.String
		rec.DeliverySucceeded = delivered == 1
		if factors.Valid && factors.String != "" {
			if err := json.Unmarshal([]byte(factors.String), &rec.KeyFactors); err != nil {
				return nil, fmt.Errorf("failed to decode key factors: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
