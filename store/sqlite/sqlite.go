/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements depreciation.TxStore, depreciation.ShiftFactorStore and a
  self-contained depreciation.LedgerPoster using SQLite. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  assets:           Asset master records
  finance_books:    Per-book depreciation configuration rows
  schedules:        Schedule versions (draft/active/cancelled)
  schedule_entries: Periods, keyed by (schedule, ordinal)
  shift_factors:    Usage-intensity weighting table
  ledger_entries:   Depreciation postings (the "external ledger")

DATA ENCODING:
  Currency amounts are stored as decimal strings, never floats. Schedule
  dates are civil "YYYY-MM-DD" strings; timestamps are RFC3339.

TRANSACTIONS:
  WithTx wraps the callback in one SQL transaction. All store methods run
  against a shared queryer interface satisfied by both *sql.DB and
  *sql.Tx, so the transactional and direct paths share one code path.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - depreciation/store.go: Interface definitions
  - depreciation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/depreciation-engine/depreciation"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so every store method
// works inside and outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows a single writer anyway, and ":memory:"
	// databases exist per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Assets
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		net_purchase_amount TEXT NOT NULL,
		opening_accumulated TEXT NOT NULL DEFAULT '0',
		opening_booked_periods INTEGER NOT NULL DEFAULT 0,
		is_existing_asset BOOLEAN NOT NULL DEFAULT FALSE,
		available_for_use TEXT NOT NULL,
		disposal_date TEXT,
		status TEXT NOT NULL,
		posting_status TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assets_status
		ON assets(status);
	CREATE INDEX IF NOT EXISTS idx_assets_created_at
		ON assets(created_at);

	-- Finance book rows (one per accounting book per asset)
	CREATE TABLE IF NOT EXISTS finance_books (
		asset_id TEXT NOT NULL,
		finance_book TEXT NOT NULL,
		method TEXT NOT NULL,
		total_periods INTEGER NOT NULL,
		frequency_months INTEGER NOT NULL,
		depreciation_start TEXT NOT NULL,
		rate_of_depreciation TEXT NOT NULL DEFAULT '0',
		salvage_value TEXT NOT NULL DEFAULT '0',
		daily_prorata BOOLEAN NOT NULL DEFAULT FALSE,
		shift_based BOOLEAN NOT NULL DEFAULT FALSE,
		increase_in_asset_life INTEGER NOT NULL DEFAULT 0,
		value_after_depreciation TEXT NOT NULL,
		precision INTEGER NOT NULL DEFAULT 2,
		position INTEGER NOT NULL,
		PRIMARY KEY (asset_id, finance_book),
		FOREIGN KEY (asset_id) REFERENCES assets(id)
	);

	-- Schedule versions
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		finance_book TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		FOREIGN KEY (asset_id) REFERENCES assets(id)
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_asset_book
		ON schedules(asset_id, finance_book, status);

	-- CRITICAL: at most one non-cancelled schedule per (asset, book)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_schedules_one_current
		ON schedules(asset_id, finance_book, status)
		WHERE status != 'cancelled';

	-- Schedule entries (periods)
	CREATE TABLE IF NOT EXISTS schedule_entries (
		schedule_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		schedule_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		accumulated TEXT NOT NULL,
		posting_ref TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (schedule_id, idx),
		FOREIGN KEY (schedule_id) REFERENCES schedules(id)
	);

	-- Due-period scan (hot path for the posting driver)
	CREATE INDEX IF NOT EXISTS idx_entries_due
		ON schedule_entries(schedule_date)
		WHERE posting_ref = '';

	-- Shift weighting table
	CREATE TABLE IF NOT EXISTS shift_factors (
		label TEXT PRIMARY KEY,
		factor TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT FALSE
	);

	-- Depreciation postings (the external ledger, kept local here)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		ref TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		finance_book TEXT NOT NULL,
		amount TEXT NOT NULL,
		posting_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_asset
		ON ledger_entries(asset_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ASSET STORE (depreciation.AssetStore interface)
// =============================================================================

func (s *Store) SaveAsset(ctx context.Context, a *depreciation.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAsset(ctx, s.db, a)
}

func (s *Store) GetAsset(ctx context.Context, id depreciation.AssetID) (*depreciation.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAsset(ctx, s.db, id)
}

func (s *Store) ListAssets(ctx context.Context) ([]*depreciation.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAssets(ctx, s.db)
}

func saveAsset(ctx context.Context, q queryer, a *depreciation.Asset) error {
	var disposal any
	if a.DisposalDate != nil {
		disposal = a.DisposalDate.String()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO assets
		(id, net_purchase_amount, opening_accumulated, opening_booked_periods,
		 is_existing_asset, available_for_use, disposal_date, status, posting_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			net_purchase_amount = excluded.net_purchase_amount,
			opening_accumulated = excluded.opening_accumulated,
			opening_booked_periods = excluded.opening_booked_periods,
			is_existing_asset = excluded.is_existing_asset,
			available_for_use = excluded.available_for_use,
			disposal_date = excluded.disposal_date,
			status = excluded.status,
			posting_status = excluded.posting_status
	`,
		a.ID,
		a.NetPurchaseAmount.String(),
		a.OpeningAccumulatedDepreciation.String(),
		a.OpeningBookedPeriods,
		a.IsExistingAsset,
		a.AvailableForUseDate.String(),
		disposal,
		a.Status,
		a.PostingStatus,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving asset %s: %w", a.ID, err)
	}

	// Rows are replaced wholesale; the row set is small and versioning
	// lives at the schedule level.
	if _, err := q.ExecContext(ctx, `DELETE FROM finance_books WHERE asset_id = ?`, a.ID); err != nil {
		return fmt.Errorf("clearing finance books for %s: %w", a.ID, err)
	}
	for i := range a.FinanceBooks {
		row := &a.FinanceBooks[i]
		_, err := q.ExecContext(ctx, `
			INSERT INTO finance_books
			(asset_id, finance_book, method, total_periods, frequency_months,
			 depreciation_start, rate_of_depreciation, salvage_value, daily_prorata,
			 shift_based, increase_in_asset_life, value_after_depreciation, precision, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			a.ID,
			row.FinanceBook,
			row.Method,
			row.TotalPeriods,
			row.FrequencyMonths,
			row.DepreciationStartDate.String(),
			row.RateOfDepreciation.String(),
			row.SalvageValue.String(),
			row.DailyProrata,
			row.ShiftBased,
			row.IncreaseInAssetLife,
			row.ValueAfterDepreciation.String(),
			row.Precision,
			i,
		)
		if err != nil {
			return fmt.Errorf("saving finance book %s/%s: %w", a.ID, row.FinanceBook, err)
		}
	}
	return nil
}

func getAsset(ctx context.Context, q queryer, id depreciation.AssetID) (*depreciation.Asset, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, net_purchase_amount, opening_accumulated, opening_booked_periods,
		       is_existing_asset, available_for_use, disposal_date, status, posting_status, created_at
		FROM assets WHERE id = ?
	`, id)

	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", depreciation.ErrAssetNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading asset %s: %w", id, err)
	}

	if err := loadFinanceBooks(ctx, q, a); err != nil {
		return nil, err
	}
	return a, nil
}

func listAssets(ctx context.Context, q queryer) ([]*depreciation.Asset, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, net_purchase_amount, opening_accumulated, opening_booked_periods,
		       is_existing_asset, available_for_use, disposal_date, status, posting_status, created_at
		FROM assets ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var out []*depreciation.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, a := range out {
		if err := loadFinanceBooks(ctx, q, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(r rowScanner) (*depreciation.Asset, error) {
	var a depreciation.Asset
	var netPurchase, openingAcc, availableForUse, createdAt string
	var disposal sql.NullString

	err := r.Scan(&a.ID, &netPurchase, &openingAcc, &a.OpeningBookedPeriods,
		&a.IsExistingAsset, &availableForUse, &disposal, &a.Status, &a.PostingStatus, &createdAt)
	if err != nil {
		return nil, err
	}

	if a.NetPurchaseAmount, err = decimal.NewFromString(netPurchase); err != nil {
		return nil, fmt.Errorf("net purchase amount %q: %w", netPurchase, err)
	}
	if a.OpeningAccumulatedDepreciation, err = decimal.NewFromString(openingAcc); err != nil {
		return nil, fmt.Errorf("opening accumulated %q: %w", openingAcc, err)
	}
	if a.AvailableForUseDate, err = depreciation.ParseDate(availableForUse); err != nil {
		return nil, err
	}
	if disposal.Valid {
		d, err := depreciation.ParseDate(disposal.String)
		if err != nil {
			return nil, err
		}
		a.DisposalDate = &d
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("created_at %q: %w", createdAt, err)
	}
	return &a, nil
}

func loadFinanceBooks(ctx context.Context, q queryer, a *depreciation.Asset) error {
	rows, err := q.QueryContext(ctx, `
		SELECT finance_book, method, total_periods, frequency_months, depreciation_start,
		       rate_of_depreciation, salvage_value, daily_prorata, shift_based,
		       increase_in_asset_life, value_after_depreciation, precision
		FROM finance_books WHERE asset_id = ? ORDER BY position ASC
	`, a.ID)
	if err != nil {
		return fmt.Errorf("loading finance books for %s: %w", a.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var fb depreciation.FinanceBookRow
		var start, rate, salvage, value string

		err := rows.Scan(&fb.FinanceBook, &fb.Method, &fb.TotalPeriods, &fb.FrequencyMonths,
			&start, &rate, &salvage, &fb.DailyProrata, &fb.ShiftBased,
			&fb.IncreaseInAssetLife, &value, &fb.Precision)
		if err != nil {
			return fmt.Errorf("scanning finance book: %w", err)
		}

		if fb.DepreciationStartDate, err = depreciation.ParseDate(start); err != nil {
			return err
		}
		if fb.RateOfDepreciation, err = decimal.NewFromString(rate); err != nil {
			return fmt.Errorf("rate %q: %w", rate, err)
		}
		if fb.SalvageValue, err = decimal.NewFromString(salvage); err != nil {
			return fmt.Errorf("salvage %q: %w", salvage, err)
		}
		if fb.ValueAfterDepreciation, err = decimal.NewFromString(value); err != nil {
			return fmt.Errorf("value after depreciation %q: %w", value, err)
		}
		a.FinanceBooks = append(a.FinanceBooks, fb)
	}
	return rows.Err()
}

// =============================================================================
// SCHEDULE STORE (depreciation.ScheduleStore interface)
// =============================================================================

func (s *Store) SaveSchedule(ctx context.Context, sched *depreciation.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSchedule(ctx, s.db, sched)
}

func (s *Store) GetSchedule(ctx context.Context, id depreciation.ScheduleID) (*depreciation.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSchedule(ctx, s.db, id)
}

func (s *Store) FindSchedule(ctx context.Context, asset depreciation.AssetID, book depreciation.FinanceBookID, statuses ...depreciation.ScheduleStatus) (*depreciation.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findSchedule(ctx, s.db, asset, book, statuses)
}

func (s *Store) ListDueSchedules(ctx context.Context, asOf depreciation.Date) ([]*depreciation.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listDueSchedules(ctx, s.db, asOf)
}

func saveSchedule(ctx context.Context, q queryer, sched *depreciation.Schedule) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO schedules (id, asset_id, finance_book, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			notes = excluded.notes
	`,
		sched.ID, sched.AssetID, sched.FinanceBook, sched.Status, sched.Notes,
		sched.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving schedule %s: %w", sched.ID, err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM schedule_entries WHERE schedule_id = ?`, sched.ID); err != nil {
		return fmt.Errorf("clearing entries for %s: %w", sched.ID, err)
	}
	for i := range sched.Entries {
		e := &sched.Entries[i]
		_, err := q.ExecContext(ctx, `
			INSERT INTO schedule_entries
			(schedule_id, idx, schedule_date, amount, accumulated, posting_ref, shift)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			sched.ID, e.Idx, e.ScheduleDate.String(),
			e.Amount.String(), e.Accumulated.String(), e.PostingRef, e.Shift,
		)
		if err != nil {
			return fmt.Errorf("saving entry %s/%d: %w", sched.ID, e.Idx, err)
		}
	}
	return nil
}

func getSchedule(ctx context.Context, q queryer, id depreciation.ScheduleID) (*depreciation.Schedule, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, asset_id, finance_book, status, notes, created_at
		FROM schedules WHERE id = ?
	`, id)

	sched, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", depreciation.ErrScheduleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading schedule %s: %w", id, err)
	}
	if err := loadEntries(ctx, q, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func findSchedule(ctx context.Context, q queryer, asset depreciation.AssetID, book depreciation.FinanceBookID, statuses []depreciation.ScheduleStatus) (*depreciation.Schedule, error) {
	query := `
		SELECT id, asset_id, finance_book, status, notes, created_at
		FROM schedules WHERE asset_id = ? AND finance_book = ?
	`
	args := []any{asset, book}
	if len(statuses) == 0 {
		query += ` AND status != 'cancelled'`
	} else {
		query += ` AND status IN (?` // at least one
		args = append(args, statuses[0])
		for _, st := range statuses[1:] {
			query += `, ?`
			args = append(args, st)
		}
		query += `)`
	}
	query += ` LIMIT 1`

	sched, err := scanSchedule(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: asset %s book %s", depreciation.ErrScheduleNotFound, asset, book)
	}
	if err != nil {
		return nil, fmt.Errorf("finding schedule for %s/%s: %w", asset, book, err)
	}
	if err := loadEntries(ctx, q, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func listDueSchedules(ctx context.Context, q queryer, asOf depreciation.Date) ([]*depreciation.Schedule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.id, s.asset_id, s.finance_book, s.status, s.notes, s.created_at
		FROM schedules s
		JOIN assets a ON a.id = s.asset_id
		WHERE s.status = 'active'
		  AND EXISTS (
			SELECT 1 FROM schedule_entries e
			WHERE e.schedule_id = s.id
			  AND e.posting_ref = ''
			  AND e.schedule_date <= ?
		  )
		ORDER BY a.created_at ASC, s.id ASC
	`, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("listing due schedules: %w", err)
	}
	defer rows.Close()

	var out []*depreciation.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		out = append(out, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sched := range out {
		if err := loadEntries(ctx, q, sched); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanSchedule(r rowScanner) (*depreciation.Schedule, error) {
	var sched depreciation.Schedule
	var createdAt string
	if err := r.Scan(&sched.ID, &sched.AssetID, &sched.FinanceBook, &sched.Status, &sched.Notes, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if sched.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("created_at %q: %w", createdAt, err)
	}
	return &sched, nil
}

func loadEntries(ctx context.Context, q queryer, sched *depreciation.Schedule) error {
	rows, err := q.QueryContext(ctx, `
		SELECT idx, schedule_date, amount, accumulated, posting_ref, shift
		FROM schedule_entries WHERE schedule_id = ? ORDER BY idx ASC
	`, sched.ID)
	if err != nil {
		return fmt.Errorf("loading entries for %s: %w", sched.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e depreciation.ScheduleEntry
		var date, amount, accumulated string
		if err := rows.Scan(&e.Idx, &date, &amount, &accumulated, &e.PostingRef, &e.Shift); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		if e.ScheduleDate, err = depreciation.ParseDate(date); err != nil {
			return err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return fmt.Errorf("amount %q: %w", amount, err)
		}
		if e.Accumulated, err = decimal.NewFromString(accumulated); err != nil {
			return fmt.Errorf("accumulated %q: %w", accumulated, err)
		}
		sched.Entries = append(sched.Entries, e)
	}
	return rows.Err()
}

// =============================================================================
// TRANSACTIONS (depreciation.TxStore interface)
// =============================================================================

// WithTx runs fn inside one SQL transaction. The Store handed to fn
// routes every query through the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(depreciation.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&txStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// txStore is the transactional view handed to WithTx callbacks.
type txStore struct {
	q queryer
}

func (t *txStore) SaveAsset(ctx context.Context, a *depreciation.Asset) error {
	return saveAsset(ctx, t.q, a)
}

func (t *txStore) GetAsset(ctx context.Context, id depreciation.AssetID) (*depreciation.Asset, error) {
	return getAsset(ctx, t.q, id)
}

func (t *txStore) ListAssets(ctx context.Context) ([]*depreciation.Asset, error) {
	return listAssets(ctx, t.q)
}

func (t *txStore) SaveSchedule(ctx context.Context, sched *depreciation.Schedule) error {
	return saveSchedule(ctx, t.q, sched)
}

func (t *txStore) GetSchedule(ctx context.Context, id depreciation.ScheduleID) (*depreciation.Schedule, error) {
	return getSchedule(ctx, t.q, id)
}

func (t *txStore) FindSchedule(ctx context.Context, asset depreciation.AssetID, book depreciation.FinanceBookID, statuses ...depreciation.ScheduleStatus) (*depreciation.Schedule, error) {
	return findSchedule(ctx, t.q, asset, book, statuses)
}

func (t *txStore) ListDueSchedules(ctx context.Context, asOf depreciation.Date) ([]*depreciation.Schedule, error) {
	return listDueSchedules(ctx, t.q, asOf)
}

// =============================================================================
// SHIFT FACTORS (depreciation.ShiftFactorStore interface)
// =============================================================================

// SeedShiftFactors installs the weighting table, replacing existing rows.
func (s *Store) SeedShiftFactors(ctx context.Context, factors map[string]decimal.Decimal, defaultLabel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM shift_factors`); err != nil {
		return fmt.Errorf("clearing shift factors: %w", err)
	}
	for label, factor := range factors {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO shift_factors (label, factor, is_default) VALUES (?, ?, ?)`,
			label, factor.String(), label == defaultLabel)
		if err != nil {
			return fmt.Errorf("seeding shift factor %q: %w", label, err)
		}
	}
	return nil
}

func (s *Store) ShiftFactor(ctx context.Context, label string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var factor string
	err := s.db.QueryRowContext(ctx,
		`SELECT factor FROM shift_factors WHERE label = ?`, label).Scan(&factor)
	if err == sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("%w: %q", depreciation.ErrShiftFactorNotFound, label)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading shift factor %q: %w", label, err)
	}
	return decimal.NewFromString(factor)
}

func (s *Store) DefaultShiftLabel(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var label string
	err := s.db.QueryRowContext(ctx,
		`SELECT label FROM shift_factors WHERE is_default = TRUE LIMIT 1`).Scan(&label)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: no default label", depreciation.ErrShiftFactorNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("loading default shift label: %w", err)
	}
	return label, nil
}

// =============================================================================
// LEDGER (depreciation.LedgerPoster interface)
// =============================================================================

// PostLedgerEntry records one depreciation posting and returns its
// reference. Kept in its own table so a real accounting integration can
// replace this implementation without touching the driver.
func (s *Store) PostLedgerEntry(ctx context.Context, asset *depreciation.Asset, book depreciation.FinanceBookID, amount decimal.Decimal, postingDate depreciation.Date) (string, error) {
	ref := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (ref, asset_id, finance_book, amount, posting_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ref, asset.ID, book, amount.String(), postingDate.String(),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("posting ledger entry for %s: %w", asset.ID, err)
	}
	return ref, nil
}
