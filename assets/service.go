/*
Package assets implements the asset lifecycle operations that drive the
depreciation engine.

PURPOSE:
  The depreciation package computes schedules; this package decides WHEN
  they change. Every lifecycle operation (submission, value adjustment,
  capitalized repair, shift reallocation, disposal, restoration,
  cancellation) updates the asset's inputs and hands the schedule
  replacement to the reschedule coordinator.

OPERATION SEMANTICS:
  - Create:       validate, default the depreciable base, preview drafts
  - Submit:       promote drafts to Active; depreciation becomes postable
  - AdjustValue:  revalue the remaining base; remaining periods re-spread
  - CapitalizeRepair: add the repair cost to the base and months to the
                  life; declining-balance rates are re-derived so the
                  extended schedule still lands on the salvage value
  - ReallocateShifts: relabel unposted periods; amounts re-weight by the
                  shift factor table
  - Scrap/Sell:   truncate the schedule at the disposal date
  - Restore:      drop the disposal and regenerate the full horizon
  - Cancel:       retire the asset; posted periods are protected

  Posted periods are never recomputed by any of these operations.

SEE ALSO:
  - depreciation/reschedule.go: the replacement protocol itself
*/
package assets

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/depreciation-engine/depreciation"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store depreciation.TxStore
	coord *depreciation.Coordinator

	clock  func() time.Time
	logger *log.Logger
}

func NewService(store depreciation.TxStore, coord *depreciation.Coordinator) *Service {
	return &Service{
		store:  store,
		coord:  coord,
		clock:  time.Now,
		logger: log.Default(),
	}
}

// =============================================================================
// CREATION AND SUBMISSION
// =============================================================================

// Create registers a draft asset and generates preview schedules. The
// depreciable base of each finance-book row defaults to the net purchase
// amount minus the opening accumulated depreciation.
func (s *Service) Create(ctx context.Context, asset *depreciation.Asset) error {
	if asset.ID == "" {
		asset.ID = depreciation.AssetID(uuid.NewString())
	}
	asset.Status = depreciation.AssetDraft
	asset.CreatedAt = s.clock()

	for i := range asset.FinanceBooks {
		row := &asset.FinanceBooks[i]
		if row.ValueAfterDepreciation.IsZero() {
			row.ValueAfterDepreciation = asset.NetPurchaseAmount.Sub(asset.OpeningAccumulatedDepreciation)
		}
	}
	if err := asset.ValidateFinanceBooks(); err != nil {
		return err
	}

	if _, err := s.coord.GenerateDraftSchedules(ctx, asset); err != nil {
		return err
	}
	s.logger.Printf("[Assets] created asset %s with %d finance books", asset.ID, len(asset.FinanceBooks))
	return nil
}

// Submit activates the asset's draft schedules. From here on its due
// periods are picked up by the posting driver.
func (s *Service) Submit(ctx context.Context, id depreciation.AssetID) (*depreciation.Asset, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.Status != depreciation.AssetDraft {
		return nil, fmt.Errorf("asset %s: cannot submit from status %s", id, asset.Status)
	}

	asset.Status = depreciation.AssetSubmitted
	if asset.OpeningAccumulatedDepreciation.IsPositive() {
		asset.Status = depreciation.AssetPartiallyDepreciated
	}
	if err := s.coord.ActivateSchedules(ctx, asset); err != nil {
		return nil, err
	}
	s.logger.Printf("[Assets] submitted asset %s", id)
	return asset, nil
}

// =============================================================================
// VALUE AND LIFE CHANGES
// =============================================================================

// AdjustValue sets a new remaining depreciable base for one book and
// re-spreads it over the remaining periods.
func (s *Service) AdjustValue(ctx context.Context, id depreciation.AssetID, book depreciation.FinanceBookID, newValue decimal.Decimal, reason string) (*depreciation.Schedule, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	row, err := asset.FinanceBook(book)
	if err != nil {
		return nil, err
	}
	if !newValue.IsPositive() {
		return nil, fmt.Errorf("asset %s book %s: adjusted value %s must be positive", id, book, newValue)
	}

	old := row.ValueAfterDepreciation
	row.ValueAfterDepreciation = newValue

	next, err := s.coord.Reschedule(ctx, asset, book, depreciation.RescheduleOptions{
		Reason:       reason,
		DisposalDate: asset.DisposalDate,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[Assets] asset %s book %s value adjusted %s -> %s", id, book, old, newValue)
	return next, nil
}

// CapitalizeRepair adds a repair's capitalized cost to the remaining base
// and extends the asset's life. Declining-balance rates are re-derived
// from the new value and remaining life.
func (s *Service) CapitalizeRepair(ctx context.Context, id depreciation.AssetID, book depreciation.FinanceBookID, cost decimal.Decimal, lifeExtensionMonths int, reason string) (*depreciation.Schedule, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	row, err := asset.FinanceBook(book)
	if err != nil {
		return nil, err
	}
	if cost.IsNegative() || lifeExtensionMonths < 0 {
		return nil, fmt.Errorf("asset %s book %s: repair cost and life extension must not be negative", id, book)
	}

	row.ValueAfterDepreciation = row.ValueAfterDepreciation.Add(cost)
	row.IncreaseInAssetLife += lifeExtensionMonths

	next, err := s.coord.Reschedule(ctx, asset, book, depreciation.RescheduleOptions{
		Reason:        reason,
		DisposalDate:  asset.DisposalDate,
		RecomputeRate: lifeExtensionMonths > 0,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[Assets] asset %s book %s repair capitalized: +%s, +%d months", id, book, cost, lifeExtensionMonths)
	return next, nil
}

// =============================================================================
// SHIFT REALLOCATION
// =============================================================================

// ShiftAssignment relabels one period by ordinal position.
type ShiftAssignment struct {
	Idx   int
	Shift string
}

// ReallocateShifts relabels unposted periods of a shift-based book and
// regenerates so amounts re-weight under the factor table. Posted periods
// cannot be relabeled.
func (s *Service) ReallocateShifts(ctx context.Context, id depreciation.AssetID, book depreciation.FinanceBookID, assignments []ShiftAssignment, reason string) (*depreciation.Schedule, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	row, err := asset.FinanceBook(book)
	if err != nil {
		return nil, err
	}
	if !row.ShiftBased {
		return nil, fmt.Errorf("asset %s book %s: not a shift-based book", id, book)
	}

	current, err := s.store.FindSchedule(ctx, id, book, depreciation.ScheduleDraft, depreciation.ScheduleActive)
	if err != nil {
		return nil, err
	}
	overrides := make(map[int]string, len(assignments))
	for _, a := range assignments {
		if a.Idx < 0 || a.Idx >= len(current.Entries) {
			return nil, fmt.Errorf("asset %s book %s: no period at position %d", id, book, a.Idx+1)
		}
		if current.Entries[a.Idx].Posted() {
			return nil, &depreciation.PostedPeriodRetentionError{
				Asset:       id,
				FinanceBook: book,
				PostedCount: current.FirstUnpostedIdx(),
			}
		}
		overrides[a.Idx] = a.Shift
	}

	return s.coord.Reschedule(ctx, asset, book, depreciation.RescheduleOptions{
		Reason:         reason,
		DisposalDate:   asset.DisposalDate,
		ShiftOverrides: overrides,
	})
}

// =============================================================================
// DISPOSAL AND RESTORATION
// =============================================================================

// Scrap truncates the asset's schedules at the scrap date.
func (s *Service) Scrap(ctx context.Context, id depreciation.AssetID, date depreciation.Date, reason string) (*depreciation.Asset, error) {
	return s.dispose(ctx, id, date, depreciation.AssetScrapped, reason)
}

// Sell truncates the asset's schedules at the sale date.
func (s *Service) Sell(ctx context.Context, id depreciation.AssetID, date depreciation.Date, reason string) (*depreciation.Asset, error) {
	return s.dispose(ctx, id, date, depreciation.AssetSold, reason)
}

func (s *Service) dispose(ctx context.Context, id depreciation.AssetID, date depreciation.Date, status depreciation.AssetStatus, reason string) (*depreciation.Asset, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.Disposed() {
		return nil, fmt.Errorf("asset %s: already disposed on %s", id, asset.DisposalDate)
	}
	if date.Before(asset.AvailableForUseDate) {
		return nil, fmt.Errorf("asset %s: disposal date %s precedes available-for-use date %s",
			id, date, asset.AvailableForUseDate)
	}
	// A disposal behind the posted prefix would regenerate a schedule that
	// drops periods already in the ledger.
	for i := range asset.FinanceBooks {
		book := asset.FinanceBooks[i].FinanceBook
		current, err := s.store.FindSchedule(ctx, id, book, depreciation.ScheduleDraft, depreciation.ScheduleActive)
		if depreciation.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if posted := current.FirstUnpostedIdx(); posted > 0 {
			if last := current.Entries[posted-1].ScheduleDate; date.Before(last) {
				return nil, fmt.Errorf("asset %s book %s: %w: disposal date %s precedes the last posted period %s",
					id, book, depreciation.ErrDisposalBeforeLastPosting, date, last)
			}
		}
	}

	asset.DisposalDate = &date
	asset.Status = status

	if _, err := s.coord.RescheduleAll(ctx, asset, depreciation.RescheduleOptions{
		Reason:       reason,
		DisposalDate: &date,
	}); err != nil {
		return nil, err
	}
	s.logger.Printf("[Assets] asset %s disposed (%s) on %s", id, status, date)
	return asset, nil
}

// Restore reverses a disposal: the disposal date is cleared and the full
// remaining horizon is regenerated. Periods posted before the disposal
// stay posted.
func (s *Service) Restore(ctx context.Context, id depreciation.AssetID, reason string) (*depreciation.Asset, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if !asset.Disposed() {
		return nil, fmt.Errorf("asset %s: not disposed", id)
	}

	asset.DisposalDate = nil
	asset.Status = asset.DepreciationProgress()

	if _, err := s.coord.RescheduleAll(ctx, asset, depreciation.RescheduleOptions{
		Reason: reason,
	}); err != nil {
		return nil, err
	}
	s.logger.Printf("[Assets] asset %s restored", id)
	return asset, nil
}

// =============================================================================
// CANCELLATION
// =============================================================================

// Cancel retires the asset and its schedules. Posted periods protect the
// schedule unless discardPosted acknowledges out-of-band reversal.
func (s *Service) Cancel(ctx context.Context, id depreciation.AssetID, discardPosted bool, reason string) (*depreciation.Asset, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	asset.Status = depreciation.AssetCancelled
	if err := s.coord.CancelSchedules(ctx, asset, depreciation.RescheduleOptions{
		Reason:        reason,
		DiscardPosted: discardPosted,
	}); err != nil {
		return nil, err
	}
	s.logger.Printf("[Assets] asset %s cancelled", id)
	return asset, nil
}

// Get returns one asset.
func (s *Service) Get(ctx context.Context, id depreciation.AssetID) (*depreciation.Asset, error) {
	return s.store.GetAsset(ctx, id)
}

// List returns all assets ordered by creation time.
func (s *Service) List(ctx context.Context) ([]*depreciation.Asset, error) {
	return s.store.ListAssets(ctx)
}

// Schedule returns the current (non-cancelled) schedule for one book.
func (s *Service) Schedule(ctx context.Context, id depreciation.AssetID, book depreciation.FinanceBookID) (*depreciation.Schedule, error) {
	return s.store.FindSchedule(ctx, id, book)
}
