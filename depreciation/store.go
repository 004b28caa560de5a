/*
store.go - Persistence and external-system interfaces

PURPOSE:
  Defines the boundary between the engine and its collaborators: the
  schedule/asset store, the shift-factor table, the external ledger writer,
  and the operator notifier. Different implementations can use SQLite,
  PostgreSQL, or in-memory storage.

ATOMICITY:
  The reschedule coordinator's cancel-old/activate-new step and each
  asset's posting unit run inside WithTx. Implementations guarantee
  all-or-nothing semantics for everything written through the Store the
  callback receives.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - depreciation/store: in-memory for testing/dev

SEE ALSO:
  - reschedule.go: atomic schedule swap
  - posting.go: per-asset posting units
*/
package depreciation

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Asset and schedule persistence
// =============================================================================

type ScheduleStore interface {
	// SaveSchedule inserts or updates a schedule with its entries.
	SaveSchedule(ctx context.Context, s *Schedule) error

	// GetSchedule returns a schedule by id, ErrScheduleNotFound if absent.
	GetSchedule(ctx context.Context, id ScheduleID) (*Schedule, error)

	// FindSchedule returns the schedule for (asset, book) in one of the
	// given statuses (any non-cancelled status if none given), or
	// ErrScheduleNotFound. At most one such schedule exists per status.
	FindSchedule(ctx context.Context, asset AssetID, book FinanceBookID, statuses ...ScheduleStatus) (*Schedule, error)

	// ListDueSchedules returns every Active schedule owning at least one
	// unposted entry dated on or before asOf, ordered oldest asset
	// creation first.
	ListDueSchedules(ctx context.Context, asOf Date) ([]*Schedule, error)
}

type AssetStore interface {
	SaveAsset(ctx context.Context, a *Asset) error
	GetAsset(ctx context.Context, id AssetID) (*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
}

// Store combines the persistence interfaces the engine writes through.
type Store interface {
	ScheduleStore
	AssetStore
}

// TxStore wraps Store with transaction support. WithTx executes fn within
// one transaction: if fn returns an error the transaction is rolled back,
// otherwise committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// SHIFT FACTORS - Usage-intensity weighting table
// =============================================================================

// ShiftFactorStore looks up the weighting coefficient for a shift label
// (e.g. single/double/triple-shift operation) and the label to assign to
// periods that have none yet.
type ShiftFactorStore interface {
	ShiftFactor(ctx context.Context, label string) (decimal.Decimal, error)
	DefaultShiftLabel(ctx context.Context) (string, error)
}

// =============================================================================
// EXTERNAL LEDGER AND NOTIFICATION PORTS
// =============================================================================

// LedgerPoster posts one period's depreciation to the external ledger and
// returns an opaque reference for the resulting entry.
type LedgerPoster interface {
	PostLedgerEntry(ctx context.Context, asset *Asset, book FinanceBookID, amount decimal.Decimal, postingDate Date) (string, error)
}

// Notifier delivers the end-of-run failure summary to the configured
// operator group. The driver orchestrates the notification but does not
// implement delivery.
type Notifier interface {
	NotifyOperators(ctx context.Context, recipients []string, assets []AssetID, errorRefs []string) error
}
