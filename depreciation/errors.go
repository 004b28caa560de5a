/*
errors.go - Centralized error types for the depreciation engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Configuration errors - bad row data, detected at generation time,
     never retried automatically (require a data fix)
  2. Arithmetic/invariant errors - fatal for that asset's generation;
     the asset stays on its previous schedule
  3. Concurrency/state errors - caller-ordering bugs or races; surfaced
     synchronously
  4. Posting errors - recovered per asset by the batch posting driver

USAGE:
  Callers match categories with errors.Is():

    if errors.Is(err, depreciation.ErrInsufficientScheduleWindow) {
        // data fix required
    }

  Structured errors carry the asset id, book id, and the numeric
  quantities involved so the root cause is diagnosable from the message.
*/
package depreciation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientScheduleWindow is returned when the gap between the
	// available-for-use date and the first scheduled date leaves no room
	// for the configured opening booked periods.
	ErrInsufficientScheduleWindow = errors.New("insufficient schedule window")

	// ErrZeroOrNegativeDepreciation is returned when a period's computed
	// amount is non-positive while depreciable value remains.
	ErrZeroOrNegativeDepreciation = errors.New("zero or negative depreciation amount")

	// ErrPostedPeriodRetention is returned when an operation would discard
	// a posted entry without explicit override.
	ErrPostedPeriodRetention = errors.New("posted periods must be retained")

	// ErrDisposalBeforeLastPosting is returned when a disposal date falls
	// before the last posted period, which would truncate the schedule
	// behind ledger entries that already exist.
	ErrDisposalBeforeLastPosting = errors.New("disposal date precedes posted depreciation")

	// ErrActiveScheduleExists is returned when activating a schedule while
	// another Active schedule exists for the same (asset, book) pair.
	ErrActiveScheduleExists = errors.New("active schedule already exists")

	// ErrMissingDepreciationRate is returned for declining-balance rows
	// without a rate of depreciation.
	ErrMissingDepreciationRate = errors.New("rate of depreciation required")

	// ErrDuplicateFinanceBook is returned when finance-book rows do not
	// reference distinct book identifiers.
	ErrDuplicateFinanceBook = errors.New("duplicate finance book row")

	// ErrPosting wraps failures from the external ledger writer.
	ErrPosting = errors.New("ledger posting failed")

	// Not-found errors.
	ErrAssetNotFound       = errors.New("asset not found")
	ErrScheduleNotFound    = errors.New("schedule not found")
	ErrFinanceBookNotFound = errors.New("finance book row not found")
	ErrShiftFactorNotFound = errors.New("shift factor not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientScheduleWindowError names the asset and the opening booked
// count that leave no generation window.
type InsufficientScheduleWindowError struct {
	Asset                AssetID
	FinanceBook          FinanceBookID
	OpeningBookedPeriods int
	WindowDays           int
}

func (e *InsufficientScheduleWindowError) Error() string {
	return fmt.Sprintf(
		"asset %s book %s: %d depreciation periods already booked; depreciation start must be at least %d periods after the available-for-use date (window: %d days)",
		e.Asset, e.FinanceBook, e.OpeningBookedPeriods, e.OpeningBookedPeriods, e.WindowDays)
}

func (e *InsufficientScheduleWindowError) Unwrap() error { return ErrInsufficientScheduleWindow }

// ZeroOrNegativeDepreciationError reports an exhausted depreciable value
// with periods remaining.
type ZeroOrNegativeDepreciationError struct {
	Asset       AssetID
	FinanceBook FinanceBookID
	PeriodIdx   int
	Amount      decimal.Decimal
	Pending     decimal.Decimal
	Periods     int
}

func (e *ZeroOrNegativeDepreciationError) Error() string {
	return fmt.Sprintf(
		"asset %s book %s: period %d amount %s is not positive (pending value %s cannot be depreciated over %d periods)",
		e.Asset, e.FinanceBook, e.PeriodIdx+1, e.Amount, e.Pending, e.Periods)
}

func (e *ZeroOrNegativeDepreciationError) Unwrap() error { return ErrZeroOrNegativeDepreciation }

// PostedPeriodRetentionError reports an attempt to discard posted entries.
type PostedPeriodRetentionError struct {
	Asset       AssetID
	FinanceBook FinanceBookID
	PostedCount int
}

func (e *PostedPeriodRetentionError) Error() string {
	return fmt.Sprintf(
		"asset %s book %s: %d posted periods exist; reverse their ledger postings before discarding the schedule",
		e.Asset, e.FinanceBook, e.PostedCount)
}

func (e *PostedPeriodRetentionError) Unwrap() error { return ErrPostedPeriodRetention }

// PostingError wraps a ledger writer failure for one asset.
type PostingError struct {
	Asset AssetID
	Err   error
}

func (e *PostingError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.Asset, e.Err)
}

func (e *PostingError) Unwrap() error { return ErrPosting }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigurationError reports whether the error requires a data fix rather
// than a retry.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInsufficientScheduleWindow) ||
		errors.Is(err, ErrMissingDepreciationRate) ||
		errors.Is(err, ErrDuplicateFinanceBook) ||
		errors.Is(err, ErrDisposalBeforeLastPosting)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssetNotFound) ||
		errors.Is(err, ErrScheduleNotFound) ||
		errors.Is(err, ErrFinanceBookNotFound) ||
		errors.Is(err, ErrShiftFactorNotFound)
}
