/*
reschedule_test.go - Schedule replacement protocol tests

PURPOSE:
  Validates the version lifecycle: draft generation, activation, the
  atomic cancel-and-replace swap, posted-prefix retention across
  replacements, and the posted-period cancellation guard.
*/
package depreciation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/warp/depreciation-engine/depreciation"
	memstore "github.com/warp/depreciation-engine/depreciation/store"
)

func newCoordinator(t *testing.T) (*depreciation.Coordinator, *memstore.MemoryStore) {
	t.Helper()
	store := memstore.NewMemoryStore()
	return depreciation.NewCoordinator(store, newGenerator()), store
}

// activatedAsset creates, drafts and activates a 1200-over-12-months
// asset and returns it with its active schedule.
func activatedAsset(t *testing.T, coord *depreciation.Coordinator, store *memstore.MemoryStore, id string) (*depreciation.Asset, *depreciation.Schedule) {
	t.Helper()
	ctx := context.Background()

	asset := slAsset(id, "1200", "2023-01-01")
	asset.Status = depreciation.AssetDraft
	asset.FinanceBooks = []depreciation.FinanceBookRow{*slRow("1200", 12, 1, "2023-01-31")}

	if _, err := coord.GenerateDraftSchedules(ctx, asset); err != nil {
		t.Fatalf("draft generation failed: %v", err)
	}
	asset.Status = depreciation.AssetSubmitted
	if err := coord.ActivateSchedules(ctx, asset); err != nil {
		t.Fatalf("activation failed: %v", err)
	}

	s, err := store.FindSchedule(ctx, asset.ID, "", depreciation.ScheduleActive)
	if err != nil {
		t.Fatalf("active schedule not found: %v", err)
	}
	return asset, s
}

// postEntries marks the first n entries as posted and decrements the
// book value the way the posting driver would.
func postEntries(t *testing.T, store *memstore.MemoryStore, asset *depreciation.Asset, s *depreciation.Schedule, n int) {
	t.Helper()
	ctx := context.Background()
	row := &asset.FinanceBooks[0]
	for i := 0; i < n; i++ {
		s.Entries[i].PostingRef = fmt.Sprintf("%s-je-%d", s.ID, i+1)
		row.ValueAfterDepreciation = row.Round(row.ValueAfterDepreciation.Sub(s.Entries[i].Amount))
	}
	if err := store.SaveSchedule(ctx, s); err != nil {
		t.Fatalf("saving posted schedule failed: %v", err)
	}
	if err := store.SaveAsset(ctx, asset); err != nil {
		t.Fatalf("saving asset failed: %v", err)
	}
}

// =============================================================================
// DRAFTS AND ACTIVATION
// =============================================================================

func TestCoordinator_DraftThenActivate(t *testing.T) {
	// GIVEN: a registered asset with a generated draft
	// WHEN: activating
	// THEN: the schedule becomes Active; activating again fails because
	//       at most one Active schedule may exist per (asset, book)

	coord, store := newCoordinator(t)
	asset, s := activatedAsset(t, coord, store, "R-1")

	if s.Status != depreciation.ScheduleActive {
		t.Fatalf("schedule status = %s, want active", s.Status)
	}
	if len(s.Entries) != 12 {
		t.Fatalf("expected 12 periods, got %d", len(s.Entries))
	}

	err := coord.ActivateSchedules(context.Background(), asset)
	if !errors.Is(err, depreciation.ErrActiveScheduleExists) {
		t.Fatalf("expected ErrActiveScheduleExists, got: %v", err)
	}
}

func TestCoordinator_RedraftReplacesPreviousDraft(t *testing.T) {
	// Regenerating drafts cancels the previous draft version rather than
	// accumulating multiple drafts per book.

	coord, store := newCoordinator(t)
	ctx := context.Background()

	asset := slAsset("R-2", "1200", "2023-01-01")
	asset.FinanceBooks = []depreciation.FinanceBookRow{*slRow("1200", 12, 1, "2023-01-31")}

	first, err := coord.GenerateDraftSchedules(ctx, asset)
	if err != nil {
		t.Fatalf("first draft failed: %v", err)
	}
	if _, err := coord.GenerateDraftSchedules(ctx, asset); err != nil {
		t.Fatalf("second draft failed: %v", err)
	}

	old, err := store.GetSchedule(ctx, first[0].ID)
	if err != nil {
		t.Fatalf("first draft missing: %v", err)
	}
	if old.Status != depreciation.ScheduleCancelled {
		t.Errorf("first draft status = %s, want cancelled", old.Status)
	}
}

// =============================================================================
// RESCHEDULE - The replacement swap
// =============================================================================

func TestReschedule_PostedPrefixKeptAndRemainingValueRespread(t *testing.T) {
	// GIVEN: two posted periods of 100, then a value adjustment of the
	//        remaining base from 1000 to 800
	// WHEN: rescheduling
	// THEN: a new Active version carries the two posted entries verbatim
	//       and re-spreads 800 over the remaining periods; the old
	//       version is cancelled

	coord, store := newCoordinator(t)
	ctx := context.Background()
	asset, current := activatedAsset(t, coord, store, "R-3")
	postEntries(t, store, asset, current, 2)

	asset.FinanceBooks[0].ValueAfterDepreciation = money("800")
	next, err := coord.Reschedule(ctx, asset, "", depreciation.RescheduleOptions{
		Reason: "impairment writedown",
	})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}

	if next.ID == current.ID {
		t.Fatal("reschedule must create a new schedule version")
	}
	if next.Status != depreciation.ScheduleActive {
		t.Errorf("new version status = %s, want active", next.Status)
	}
	if next.Notes != "impairment writedown" {
		t.Errorf("new version notes = %q, want the change reason", next.Notes)
	}

	old, _ := store.GetSchedule(ctx, current.ID)
	if old.Status != depreciation.ScheduleCancelled {
		t.Errorf("old version status = %s, want cancelled", old.Status)
	}

	// Posted prefix byte-identical.
	for i := 0; i < 2; i++ {
		if next.Entries[i].PostingRef == "" {
			t.Fatalf("posted entry %d lost its posting reference", i+1)
		}
		if !next.Entries[i].Amount.Equal(current.Entries[i].Amount) {
			t.Errorf("posted entry %d amount changed: %s -> %s",
				i+1, current.Entries[i].Amount, next.Entries[i].Amount)
		}
	}

	// Remaining 800 re-spread over the 10 unposted periods.
	unposted := next.Entries[2:]
	if len(unposted) != 10 {
		t.Fatalf("expected 10 unposted periods, got %d", len(unposted))
	}
	for i := 0; i < 9; i++ {
		if !unposted[i].Amount.Equal(money("79.52")) {
			t.Errorf("unposted period %d amount = %s, want 79.52", i+1, unposted[i].Amount)
		}
	}
	if !unposted[9].Amount.Equal(money("84.32")) {
		t.Errorf("final period amount = %s, want 84.32", unposted[9].Amount)
	}
	if got := sumAmounts(unposted); !got.Equal(money("800")) {
		t.Errorf("unposted total = %s, want 800", got)
	}
}

func TestReschedule_FailedGenerationLeavesCurrentVersionActive(t *testing.T) {
	// A reschedule that cannot generate (bad configuration) must not
	// disturb the current version.

	coord, store := newCoordinator(t)
	ctx := context.Background()
	asset, current := activatedAsset(t, coord, store, "R-4")

	// Make the configuration ungenerateable.
	asset.OpeningBookedPeriods = 12
	_, err := coord.Reschedule(ctx, asset, "", depreciation.RescheduleOptions{Reason: "bad change"})
	if !errors.Is(err, depreciation.ErrInsufficientScheduleWindow) {
		t.Fatalf("expected ErrInsufficientScheduleWindow, got: %v", err)
	}

	still, err := store.GetSchedule(ctx, current.ID)
	if err != nil {
		t.Fatalf("current version missing: %v", err)
	}
	if still.Status != depreciation.ScheduleActive {
		t.Errorf("current version status = %s, want active after failed reschedule", still.Status)
	}
}

func TestReschedule_DisposalTruncatesActiveSchedule(t *testing.T) {
	// GIVEN: three posted periods, then a disposal on June 15
	// THEN: the replacement keeps the posted prefix and ends with a
	//       pro-rated period on the disposal date

	coord, store := newCoordinator(t)
	ctx := context.Background()
	asset, current := activatedAsset(t, coord, store, "R-5")
	postEntries(t, store, asset, current, 3)

	disposal := depreciation.MustDate("2023-06-15")
	next, err := coord.Reschedule(ctx, asset, "", depreciation.RescheduleOptions{
		Reason:       "scrapped",
		DisposalDate: &disposal,
	})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}

	last := next.Entries[len(next.Entries)-1]
	if last.ScheduleDate.String() != "2023-06-15" {
		t.Errorf("final period date = %s, want the disposal date", last.ScheduleDate)
	}
	for _, e := range next.Entries {
		if e.ScheduleDate.After(disposal) {
			t.Errorf("period dated %s survives past the disposal date", e.ScheduleDate)
		}
	}
	if next.FirstUnpostedIdx() != 3 {
		t.Errorf("posted prefix length = %d, want 3", next.FirstUnpostedIdx())
	}
}

// =============================================================================
// CANCELLATION GUARD
// =============================================================================

func TestCancelSchedules_PostedPeriodsAreProtected(t *testing.T) {
	// GIVEN: an active schedule with posted entries
	// WHEN: cancelling without the discard override
	// THEN: the cancellation is refused; with the override it proceeds

	coord, store := newCoordinator(t)
	ctx := context.Background()
	asset, current := activatedAsset(t, coord, store, "R-6")
	postEntries(t, store, asset, current, 2)

	err := coord.CancelSchedules(ctx, asset, depreciation.RescheduleOptions{Reason: "entered in error"})
	if !errors.Is(err, depreciation.ErrPostedPeriodRetention) {
		t.Fatalf("expected ErrPostedPeriodRetention, got: %v", err)
	}

	var retention *depreciation.PostedPeriodRetentionError
	if !errors.As(err, &retention) || retention.PostedCount != 2 {
		t.Fatalf("retention error should report 2 posted periods, got: %v", err)
	}

	// Schedule must be untouched after the refused cancel.
	still, _ := store.GetSchedule(ctx, current.ID)
	if still.Status != depreciation.ScheduleActive {
		t.Fatalf("schedule status = %s, want active after refused cancel", still.Status)
	}

	err = coord.CancelSchedules(ctx, asset, depreciation.RescheduleOptions{
		Reason:        "entered in error",
		DiscardPosted: true,
	})
	if err != nil {
		t.Fatalf("cancel with override failed: %v", err)
	}
	cancelled, _ := store.GetSchedule(ctx, current.ID)
	if cancelled.Status != depreciation.ScheduleCancelled {
		t.Errorf("schedule status = %s, want cancelled", cancelled.Status)
	}
}
