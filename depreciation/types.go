/*
Package depreciation computes and maintains depreciation schedules for
fixed assets.

PURPOSE:
  This package contains the core engine: given an asset and one of its
  finance-book configurations, it builds the ordered sequence of future
  value-reduction periods, keeps that sequence consistent across asset
  changes (value adjustments, repairs, shift edits, disposals), and drives
  the batch posting of due periods into an external ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Asset: the depreciable resource and its opening position
  - FinanceBookRow: per-accounting-book depreciation configuration
  - Schedule: a versioned, ordered artifact for one (asset, book) pair
  - ScheduleEntry: one period (date, amount, running accumulated total)

DESIGN PRINCIPLES:
  1. Precision: all currency math uses decimal.Decimal, rounded to the
     finance-book row's configured precision
  2. Posted entries are immutable: a period that produced a ledger posting
     is copied forward verbatim by every reschedule
  3. Schedules are replaced, never edited: a reschedule builds a fresh
     candidate (posted prefix + regenerated suffix) and swaps it in
     atomically

SEE ALSO:
  - calendar.go: civil dates and fiscal years
  - method.go: per-period amount strategies
  - generator.go: schedule construction
  - reschedule.go: schedule replacement protocol
  - posting.go: batch posting driver
*/
package depreciation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AssetID string
type FinanceBookID string
type ScheduleID string

// =============================================================================
// DEPRECIATION METHOD
// =============================================================================

type Method string

const (
	StraightLine           Method = "straight_line"
	WrittenDownValue       Method = "written_down_value"
	DoubleDecliningBalance Method = "double_declining_balance"
	// Manual schedules are amount-edited by operators but follow
	// straight-line mechanics when regenerated.
	Manual Method = "manual"
)

// IsDecliningBalance reports whether the method depreciates a percentage of
// the remaining book value rather than a fixed amount.
func (m Method) IsDecliningBalance() bool {
	return m == WrittenDownValue || m == DoubleDecliningBalance
}

// =============================================================================
// LIFECYCLE STATUS
// =============================================================================

type AssetStatus string

const (
	AssetDraft                AssetStatus = "draft"
	AssetSubmitted            AssetStatus = "submitted"
	AssetPartiallyDepreciated AssetStatus = "partially_depreciated"
	AssetFullyDepreciated     AssetStatus = "fully_depreciated"
	AssetSold                 AssetStatus = "sold"
	AssetScrapped             AssetStatus = "scrapped"
	AssetCancelled            AssetStatus = "cancelled"
)

// PostingStatus is an operator-visibility marker, distinct from the
// depreciation-progress status above. A failed batch posting flags the
// asset without touching its lifecycle status.
type PostingStatus string

const (
	PostingNone       PostingStatus = ""
	PostingSuccessful PostingStatus = "successful"
	PostingFailed     PostingStatus = "failed"
)

type ScheduleStatus string

const (
	ScheduleDraft     ScheduleStatus = "draft"
	ScheduleActive    ScheduleStatus = "active"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// =============================================================================
// ASSET - The depreciable resource
// =============================================================================

type Asset struct {
	ID                AssetID
	NetPurchaseAmount decimal.Decimal

	// Opening position, for assets entered into the system already
	// partially depreciated elsewhere.
	OpeningAccumulatedDepreciation decimal.Decimal
	OpeningBookedPeriods           int
	IsExistingAsset                bool

	AvailableForUseDate Date
	DisposalDate        *Date

	Status        AssetStatus
	PostingStatus PostingStatus

	CreatedAt time.Time

	// One row per accounting book the asset is depreciated under.
	FinanceBooks []FinanceBookRow
}

// FinanceBook returns the row for the given book id.
func (a *Asset) FinanceBook(id FinanceBookID) (*FinanceBookRow, error) {
	for i := range a.FinanceBooks {
		if a.FinanceBooks[i].FinanceBook == id {
			return &a.FinanceBooks[i], nil
		}
	}
	return nil, fmt.Errorf("asset %s: %w: %s", a.ID, ErrFinanceBookNotFound, id)
}

// ValidateFinanceBooks enforces the row invariants: distinct book ids (none
// unset when more than one row exists), a rate for declining-balance
// methods, and a salvage value below the net purchase amount.
func (a *Asset) ValidateFinanceBooks() error {
	seen := make(map[FinanceBookID]bool, len(a.FinanceBooks))
	for i := range a.FinanceBooks {
		row := &a.FinanceBooks[i]
		if len(a.FinanceBooks) > 1 {
			if row.FinanceBook == "" {
				return fmt.Errorf("asset %s row %d: %w: book id unset", a.ID, i+1, ErrDuplicateFinanceBook)
			}
			if seen[row.FinanceBook] {
				return fmt.Errorf("asset %s: %w: %s", a.ID, ErrDuplicateFinanceBook, row.FinanceBook)
			}
			seen[row.FinanceBook] = true
		}
		if row.Method.IsDecliningBalance() && row.RateOfDepreciation.IsZero() {
			return fmt.Errorf("asset %s book %s: %w", a.ID, row.FinanceBook, ErrMissingDepreciationRate)
		}
		if row.SalvageValue.GreaterThanOrEqual(a.NetPurchaseAmount) {
			return fmt.Errorf(
				"asset %s book %s: salvage value %s must be less than net purchase amount %s",
				a.ID, row.FinanceBook, row.SalvageValue, a.NetPurchaseAmount)
		}
		if row.TotalPeriods <= 0 || row.FrequencyMonths <= 0 {
			return fmt.Errorf(
				"asset %s book %s: total periods %d and frequency %d months must be positive",
				a.ID, row.FinanceBook, row.TotalPeriods, row.FrequencyMonths)
		}
	}
	return nil
}

// Disposed reports whether the asset has a disposal date set.
func (a *Asset) Disposed() bool { return a.DisposalDate != nil }

// DepreciationProgress recomputes the progress status from the finance-book
// rows: fully depreciated once every row's remaining value has reached its
// salvage value, partially depreciated otherwise.
func (a *Asset) DepreciationProgress() AssetStatus {
	full := len(a.FinanceBooks) > 0
	for i := range a.FinanceBooks {
		row := &a.FinanceBooks[i]
		if row.ValueAfterDepreciation.GreaterThan(row.SalvageValue) {
			full = false
			break
		}
	}
	if full {
		return AssetFullyDepreciated
	}
	return AssetPartiallyDepreciated
}

// =============================================================================
// FINANCE BOOK ROW - Per-book depreciation configuration
// =============================================================================

type FinanceBookRow struct {
	FinanceBook FinanceBookID

	Method          Method
	TotalPeriods    int
	FrequencyMonths int

	DepreciationStartDate Date

	// Annual rate percent; required for declining-balance methods.
	RateOfDepreciation decimal.Decimal

	// Expected residual value after the useful life.
	SalvageValue decimal.Decimal

	DailyProrata bool
	ShiftBased   bool

	// Additive life extension in months, set by capitalized repairs.
	IncreaseInAssetLife int

	// Remaining depreciable base. Mutated only by the reschedule
	// coordinator (value adjustments, repairs) and the posting driver
	// (decremented per posted entry).
	ValueAfterDepreciation decimal.Decimal

	// Currency decimal places.
	Precision int32
}

// Round rounds a currency amount to the row's precision.
func (r *FinanceBookRow) Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(r.Precision)
}

// =============================================================================
// SCHEDULE - Versioned period sequence for one (asset, book) pair
// =============================================================================

type Schedule struct {
	ID          ScheduleID
	AssetID     AssetID
	FinanceBook FinanceBookID
	Status      ScheduleStatus

	// Free text explaining why this version was created.
	Notes string

	CreatedAt time.Time

	Entries []ScheduleEntry
}

// FirstUnpostedIdx returns the index of the first entry without a posting
// reference, or len(Entries) if every entry is posted.
func (s *Schedule) FirstUnpostedIdx() int {
	for i := range s.Entries {
		if !s.Entries[i].Posted() {
			return i
		}
	}
	return len(s.Entries)
}

// PostedPrefix returns the leading run of posted entries.
func (s *Schedule) PostedPrefix() []ScheduleEntry {
	return s.Entries[:s.FirstUnpostedIdx()]
}

// FinalAccumulated returns the accumulated depreciation of the last entry,
// or zero for an empty schedule.
func (s *Schedule) FinalAccumulated() decimal.Decimal {
	if len(s.Entries) == 0 {
		return decimal.Zero
	}
	return s.Entries[len(s.Entries)-1].Accumulated
}

// Clone deep-copies the schedule. Stores hand out clones so callers can
// build candidates without mutating persisted state.
func (s *Schedule) Clone() *Schedule {
	out := *s
	out.Entries = make([]ScheduleEntry, len(s.Entries))
	copy(out.Entries, s.Entries)
	return &out
}

// =============================================================================
// SCHEDULE ENTRY - One period
// =============================================================================

type ScheduleEntry struct {
	// Ordinal position within the schedule, 0-based.
	Idx int

	ScheduleDate Date
	Amount       decimal.Decimal

	// Running accumulated depreciation as of this entry, seeded from the
	// asset's opening accumulated depreciation.
	Accumulated decimal.Decimal

	// Opaque external ledger-entry reference; non-empty means posted and
	// therefore immutable.
	PostingRef string

	// Shift label, only for shift-based rows.
	Shift string
}

func (e ScheduleEntry) Posted() bool { return e.PostingRef != "" }
