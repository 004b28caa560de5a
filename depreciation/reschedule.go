/*
reschedule.go - Schedule replacement protocol

PURPOSE:
  Coordinates the lifecycle of schedule versions for an asset. A schedule
  is never edited in place: every change to the asset's depreciation
  inputs (value adjustment, capitalized repair, shift reallocation,
  disposal, restoration) produces a fresh candidate built from the posted
  prefix of the current version plus a regenerated suffix, then swaps it
  in atomically.

PROTOCOL (one book):
  1. Load the current Draft/Active schedule, if any.
  2. Regenerate entries with the current version's entries as priors so
     the posted prefix is carried forward verbatim and shift labels
     survive.
  3. Inside one transaction: cancel the current version, insert the new
     one with a fresh id and the change reason in its notes, persist the
     asset.

  Step 3 is all-or-nothing: a failure leaves the previous version active
  and the asset untouched.

INVARIANTS:
  - At most one non-cancelled schedule per (asset, book) pair
  - Posted entries are byte-identical across versions
  - Cancelling a schedule with posted entries requires an explicit
    override acknowledging that the ledger postings are reversed elsewhere

SEE ALSO:
  - generator.go: entry construction
  - posting.go: consumes Active schedules
*/
package depreciation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// COORDINATOR
// =============================================================================

type Coordinator struct {
	store TxStore
	gen   *Generator

	// clock stamps new schedule versions; overridable in tests.
	clock func() time.Time
}

func NewCoordinator(store TxStore, gen *Generator) *Coordinator {
	return &Coordinator{store: store, gen: gen, clock: time.Now}
}

// RescheduleOptions parameterize one replacement.
type RescheduleOptions struct {
	// Reason is recorded in the new version's notes.
	Reason string

	// DisposalDate truncates the regenerated suffix at the disposal date.
	DisposalDate *Date

	// RecomputeRate re-derives the declining-balance rate from the current
	// value and remaining life before regenerating. Set by capitalized
	// repairs that extend the asset's life.
	RecomputeRate bool

	// ShiftOverrides relabels prior entries by ordinal position before
	// regeneration, so the label change and the re-weighted amounts commit
	// in the same swap. A failed generation leaves the current version's
	// labels untouched.
	ShiftOverrides map[int]string

	// DiscardPosted acknowledges that posted periods are being thrown away
	// (their ledger postings must be reversed out of band). Without it any
	// operation that would drop a posted entry fails.
	DiscardPosted bool
}

// =============================================================================
// DRAFT GENERATION AND ACTIVATION
// =============================================================================

// GenerateDraftSchedules builds a Draft schedule per finance-book row,
// replacing any existing drafts. Drafts are previews; they become Active
// on submission.
func (c *Coordinator) GenerateDraftSchedules(ctx context.Context, asset *Asset) ([]*Schedule, error) {
	if err := asset.ValidateFinanceBooks(); err != nil {
		return nil, err
	}

	drafts := make([]*Schedule, 0, len(asset.FinanceBooks))
	for i := range asset.FinanceBooks {
		row := &asset.FinanceBooks[i]

		var opts GenerateOptions
		if asset.Disposed() {
			opts.DisposalDate = asset.DisposalDate
		}
		entries, err := c.gen.Generate(ctx, asset, row, opts)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, &Schedule{
			ID:          ScheduleID(uuid.NewString()),
			AssetID:     asset.ID,
			FinanceBook: row.FinanceBook,
			Status:      ScheduleDraft,
			CreatedAt:   c.clock(),
			Entries:     entries,
		})
	}

	err := c.store.WithTx(ctx, func(tx Store) error {
		for _, draft := range drafts {
			if old, err := tx.FindSchedule(ctx, asset.ID, draft.FinanceBook, ScheduleDraft); err == nil {
				old.Status = ScheduleCancelled
				if err := tx.SaveSchedule(ctx, old); err != nil {
					return err
				}
			} else if !IsNotFound(err) {
				return err
			}
			if err := tx.SaveSchedule(ctx, draft); err != nil {
				return err
			}
		}
		return tx.SaveAsset(ctx, asset)
	})
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// ActivateSchedules promotes the asset's Draft schedules to Active on
// submission. Fails if an Active schedule already exists for a book.
func (c *Coordinator) ActivateSchedules(ctx context.Context, asset *Asset) error {
	return c.store.WithTx(ctx, func(tx Store) error {
		for i := range asset.FinanceBooks {
			book := asset.FinanceBooks[i].FinanceBook

			if _, err := tx.FindSchedule(ctx, asset.ID, book, ScheduleActive); err == nil {
				return fmt.Errorf("asset %s book %s: %w", asset.ID, book, ErrActiveScheduleExists)
			} else if !IsNotFound(err) {
				return err
			}

			draft, err := tx.FindSchedule(ctx, asset.ID, book, ScheduleDraft)
			if err != nil {
				return err
			}
			draft.Status = ScheduleActive
			if err := tx.SaveSchedule(ctx, draft); err != nil {
				return err
			}
		}
		return tx.SaveAsset(ctx, asset)
	})
}

// =============================================================================
// RESCHEDULE - Replace the current version
// =============================================================================

// Reschedule replaces the current schedule for one (asset, book) pair.
// The asset's finance-book row is expected to already carry the changed
// inputs (value, life, dates); it is persisted atomically with the swap.
func (c *Coordinator) Reschedule(ctx context.Context, asset *Asset, book FinanceBookID, opts RescheduleOptions) (*Schedule, error) {
	row, err := asset.FinanceBook(book)
	if err != nil {
		return nil, err
	}

	current, err := c.store.FindSchedule(ctx, asset.ID, book, ScheduleDraft, ScheduleActive)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}

	genOpts := GenerateOptions{DisposalDate: opts.DisposalDate}
	status := ScheduleActive
	if current != nil {
		genOpts.PriorEntries = current.Entries
		if len(opts.ShiftOverrides) > 0 {
			priors := make([]ScheduleEntry, len(current.Entries))
			copy(priors, current.Entries)
			for idx, shift := range opts.ShiftOverrides {
				if idx >= 0 && idx < len(priors) {
					priors[idx].Shift = shift
				}
			}
			genOpts.PriorEntries = priors
		}
		status = current.Status

		if opts.RecomputeRate && row.Method.IsDecliningBalance() {
			row.RateOfDepreciation = recomputeRate(asset, row, current.FirstUnpostedIdx())
		}
	}

	entries, err := c.gen.Generate(ctx, asset, row, genOpts)
	if err != nil {
		return nil, err
	}

	next := &Schedule{
		ID:          ScheduleID(uuid.NewString()),
		AssetID:     asset.ID,
		FinanceBook: book,
		Status:      status,
		Notes:       opts.Reason,
		CreatedAt:   c.clock(),
		Entries:     entries,
	}

	err = c.store.WithTx(ctx, func(tx Store) error {
		if current != nil {
			current.Status = ScheduleCancelled
			if err := tx.SaveSchedule(ctx, current); err != nil {
				return err
			}
		}
		if err := tx.SaveSchedule(ctx, next); err != nil {
			return err
		}
		return tx.SaveAsset(ctx, asset)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// RescheduleAll replaces the current schedule of every finance-book row.
func (c *Coordinator) RescheduleAll(ctx context.Context, asset *Asset, opts RescheduleOptions) ([]*Schedule, error) {
	out := make([]*Schedule, 0, len(asset.FinanceBooks))
	for i := range asset.FinanceBooks {
		s, err := c.Reschedule(ctx, asset, asset.FinanceBooks[i].FinanceBook, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// =============================================================================
// CANCELLATION
// =============================================================================

// CancelSchedules cancels every non-cancelled schedule of the asset.
// Schedules with posted entries are protected unless DiscardPosted is set.
func (c *Coordinator) CancelSchedules(ctx context.Context, asset *Asset, opts RescheduleOptions) error {
	return c.store.WithTx(ctx, func(tx Store) error {
		for i := range asset.FinanceBooks {
			book := asset.FinanceBooks[i].FinanceBook
			s, err := tx.FindSchedule(ctx, asset.ID, book, ScheduleDraft, ScheduleActive)
			if IsNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			if posted := s.FirstUnpostedIdx(); posted > 0 && !opts.DiscardPosted {
				return &PostedPeriodRetentionError{
					Asset:       asset.ID,
					FinanceBook: book,
					PostedCount: posted,
				}
			}
			s.Status = ScheduleCancelled
			if s.Notes == "" {
				s.Notes = opts.Reason
			}
			if err := tx.SaveSchedule(ctx, s); err != nil {
				return err
			}
		}
		return tx.SaveAsset(ctx, asset)
	})
}

// =============================================================================
// RATE RECOMPUTATION - Life extensions on declining-balance rows
// =============================================================================

// recomputeRate re-derives the annual percentage so the extended life
// still lands on the salvage value. Double declining balance uses the
// textbook 200% / life-years figure; written-down value solves
// salvage = value * (1 - rate)^years for the rate. The root is taken in
// float64: a basis-point-precision rate does not need exact decimals.
func recomputeRate(asset *Asset, row *FinanceBookRow, bookedEntries int) decimal.Decimal {
	if row.Method == DoubleDecliningBalance {
		lifeYears := decimal.NewFromInt(int64(row.TotalPeriods * row.FrequencyMonths)).Div(decimalTwelve)
		return decimal.NewFromInt(200).Div(lifeYears).Round(4)
	}

	pendingMonths := (row.TotalPeriods-asset.OpeningBookedPeriods-bookedEntries)*row.FrequencyMonths +
		row.IncreaseInAssetLife
	if pendingMonths <= 0 || !row.ValueAfterDepreciation.IsPositive() {
		return row.RateOfDepreciation
	}
	pendingYears := float64(pendingMonths) / 12

	ratio, _ := row.SalvageValue.Div(row.ValueAfterDepreciation).Float64()
	rate := 100 * (1 - math.Pow(ratio, 1/pendingYears))
	return decimal.NewFromFloat(rate).Round(4)
}
