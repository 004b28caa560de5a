/*
generator_test.go - Schedule construction tests

PURPOSE:
  These tests are executable specifications of schedule generation. Each
  covers one behavior: full-period straight line with rounding absorption,
  pro-rata acquisition edges, written-down-value fiscal year mechanics,
  daily pro-rata, shift weighting, disposal truncation, opening balances,
  and the configuration errors.

READING THESE TESTS:
  Each test has:
  - A descriptive name that states the behavior
  - GIVEN/WHEN/THEN comments explaining the scenario
  - Assertions phrased against the accounting outcome (period dates,
    amounts, accumulated totals), not implementation internals
*/
package depreciation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/depreciation-engine/depreciation"
	memstore "github.com/warp/depreciation-engine/depreciation/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func newGenerator() *depreciation.Generator {
	return depreciation.NewGenerator(depreciation.Config{
		Calendar:     depreciation.YearStartCalendar{StartMonth: time.January, StartDay: 1},
		ShiftFactors: memstore.NewStandardShiftFactors(),
	})
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// slAsset is a plain straight-line monthly asset.
func slAsset(id string, cost string, available string) *depreciation.Asset {
	return &depreciation.Asset{
		ID:                  depreciation.AssetID(id),
		NetPurchaseAmount:   money(cost),
		AvailableForUseDate: depreciation.MustDate(available),
	}
}

func slRow(cost string, periods, freqMonths int, start string) *depreciation.FinanceBookRow {
	return &depreciation.FinanceBookRow{
		Method:                 depreciation.StraightLine,
		TotalPeriods:           periods,
		FrequencyMonths:        freqMonths,
		DepreciationStartDate:  depreciation.MustDate(start),
		ValueAfterDepreciation: money(cost),
		Precision:              2,
	}
}

func assertEntry(t *testing.T, entries []depreciation.ScheduleEntry, idx int, date, amount string) {
	t.Helper()
	e := entries[idx]
	if e.ScheduleDate.String() != date {
		t.Errorf("entry %d date = %s, want %s", idx+1, e.ScheduleDate, date)
	}
	if !e.Amount.Equal(money(amount)) {
		t.Errorf("entry %d amount = %s, want %s", idx+1, e.Amount, amount)
	}
}

func sumAmounts(entries []depreciation.ScheduleEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// =============================================================================
// STRAIGHT LINE
// =============================================================================

func TestGenerate_StraightLine_FinalPeriodAbsorbsRounding(t *testing.T) {
	// GIVEN: 1000 over 12 monthly periods from a month-end start, no
	//        pro-rata (available on the 1st, first period ends the 31st)
	// WHEN: generating
	// THEN: 11 periods of 83.33 and a final period of 83.37, so the
	//       accumulated total lands exactly on 1000

	gen := newGenerator()
	asset := slAsset("A-1", "1000", "2023-01-01")
	row := slRow("1000", 12, 1, "2023-01-31")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 12 {
		t.Fatalf("expected 12 periods, got %d", len(entries))
	}
	for i := 0; i < 11; i++ {
		if !entries[i].Amount.Equal(money("83.33")) {
			t.Errorf("period %d amount = %s, want 83.33", i+1, entries[i].Amount)
		}
	}
	assertEntry(t, entries, 11, "2023-12-31", "83.37")

	if got := sumAmounts(entries); !got.Equal(money("1000")) {
		t.Errorf("total depreciation = %s, want 1000", got)
	}
	if got := entries[11].Accumulated; !got.Equal(money("1000")) {
		t.Errorf("final accumulated = %s, want 1000", got)
	}
}

func TestGenerate_StraightLine_MonthEndStartStaysOnMonthEnds(t *testing.T) {
	// A January 31 start must produce Feb 28, Mar 31, Apr 30... not
	// drifting into the next month.

	gen := newGenerator()
	asset := slAsset("A-2", "1200", "2023-01-01")
	row := slRow("1200", 12, 1, "2023-01-31")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	wantDates := []string{
		"2023-01-31", "2023-02-28", "2023-03-31", "2023-04-30",
		"2023-05-31", "2023-06-30", "2023-07-31", "2023-08-31",
		"2023-09-30", "2023-10-31", "2023-11-30", "2023-12-31",
	}
	for i, want := range wantDates {
		if entries[i].ScheduleDate.String() != want {
			t.Errorf("period %d date = %s, want %s", i+1, entries[i].ScheduleDate, want)
		}
	}
}

func TestGenerate_StraightLine_MidMonthPurchaseProRata(t *testing.T) {
	// GIVEN: 1200 over 12 monthly periods, available for use Jan 15 with
	//        the first period ending Jan 31
	// WHEN: generating
	// THEN: the first period covers 17 of 31 days (54.84), an extra 13th
	//       period closes the last 15 days on the anniversary (45.16),
	//       and the total still reaches 1200

	gen := newGenerator()
	asset := slAsset("A-3", "1200", "2023-01-15")
	row := slRow("1200", 12, 1, "2023-01-31")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 13 {
		t.Fatalf("expected 13 periods (12 + pro-rata), got %d", len(entries))
	}
	assertEntry(t, entries, 0, "2023-01-31", "54.84")
	for i := 1; i < 12; i++ {
		if !entries[i].Amount.Equal(money("100")) {
			t.Errorf("period %d amount = %s, want 100", i+1, entries[i].Amount)
		}
	}
	assertEntry(t, entries, 12, "2024-01-15", "45.16")

	if got := sumAmounts(entries); !got.Equal(money("1200")) {
		t.Errorf("total depreciation = %s, want 1200", got)
	}
}

func TestGenerate_StraightLine_SalvageValueIsPreserved(t *testing.T) {
	// Depreciation must stop at the salvage value, never below it.

	gen := newGenerator()
	asset := slAsset("A-4", "1000", "2023-01-01")
	row := slRow("1000", 12, 1, "2023-01-31")
	row.SalvageValue = money("100")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if got := sumAmounts(entries); !got.Equal(money("900")) {
		t.Errorf("total depreciation = %s, want 900 (cost minus salvage)", got)
	}
	if got := entries[len(entries)-1].Accumulated; !got.Equal(money("900")) {
		t.Errorf("final accumulated = %s, want 900", got)
	}
}

// =============================================================================
// OPENING BALANCES (migrated assets)
// =============================================================================

func TestGenerate_ExistingAsset_ResumesFromOpeningPosition(t *testing.T) {
	// GIVEN: a migrated asset with 4000 already depreciated over 2 booked
	//        periods elsewhere; remaining base 20000 over the 10 left of
	//        12 monthly periods
	// WHEN: generating
	// THEN: 10 periods remain, the accumulated totals are seeded from the
	//       opening 4000, and the final total reaches the full 24000

	gen := newGenerator()
	asset := &depreciation.Asset{
		ID:                             "A-5",
		NetPurchaseAmount:              money("24000"),
		OpeningAccumulatedDepreciation: money("4000"),
		OpeningBookedPeriods:           2,
		IsExistingAsset:                true,
		AvailableForUseDate:            depreciation.MustDate("2022-07-01"),
	}
	row := slRow("20000", 12, 1, "2022-09-30")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 10 {
		t.Fatalf("expected 10 remaining periods, got %d", len(entries))
	}
	if !entries[0].Amount.Equal(money("2007.7")) {
		t.Errorf("first period amount = %s, want 2007.70", entries[0].Amount)
	}
	if got := entries[0].Accumulated; !got.Equal(money("6007.70")) {
		t.Errorf("first accumulated = %s, want 6007.70 (opening 4000 + 2007.70)", got)
	}
	if got := sumAmounts(entries); !got.Equal(money("20000")) {
		t.Errorf("total remaining depreciation = %s, want 20000", got)
	}
	if got := entries[9].Accumulated; !got.Equal(money("24000")) {
		t.Errorf("final accumulated = %s, want 24000", got)
	}
}

func TestGenerate_OpeningBookedPeriodsExhaustLife_Fails(t *testing.T) {
	// All periods already booked elsewhere leaves nothing to generate.

	gen := newGenerator()
	asset := slAsset("A-6", "1000", "2023-01-01")
	asset.OpeningBookedPeriods = 12
	row := slRow("1000", 12, 1, "2023-01-31")

	_, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if !errors.Is(err, depreciation.ErrInsufficientScheduleWindow) {
		t.Fatalf("expected ErrInsufficientScheduleWindow, got: %v", err)
	}
}

func TestGenerate_StartTooCloseForBookedPeriods_Fails(t *testing.T) {
	// GIVEN: 2 opening booked periods but a depreciation start only one
	//        month after the available-for-use date
	// THEN: the window cannot contain the booked periods

	gen := newGenerator()
	asset := slAsset("A-7", "1000", "2023-01-01")
	asset.OpeningBookedPeriods = 2
	row := slRow("1000", 12, 1, "2023-01-31")

	_, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if !errors.Is(err, depreciation.ErrInsufficientScheduleWindow) {
		t.Fatalf("expected ErrInsufficientScheduleWindow, got: %v", err)
	}

	var windowErr *depreciation.InsufficientScheduleWindowError
	if !errors.As(err, &windowErr) {
		t.Fatal("error should carry the structured window context")
	}
	if windowErr.OpeningBookedPeriods != 2 {
		t.Errorf("error reports %d booked periods, want 2", windowErr.OpeningBookedPeriods)
	}
}

// =============================================================================
// WRITTEN DOWN VALUE
// =============================================================================

func TestGenerate_WrittenDownValue_YearlyRateOnRemainingValue(t *testing.T) {
	// GIVEN: 10000 at 50% over 3 annual periods aligned to the fiscal
	//        year, no salvage
	// WHEN: generating
	// THEN: 5000, 2500, then the final period clamps the remaining 2500
	//       so the value is fully depreciated

	gen := newGenerator()
	asset := slAsset("W-1", "10000", "2023-01-01")
	row := slRow("10000", 3, 12, "2023-12-31")
	row.Method = depreciation.WrittenDownValue
	row.RateOfDepreciation = money("50")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 periods, got %d", len(entries))
	}
	assertEntry(t, entries, 0, "2023-12-31", "5000")
	assertEntry(t, entries, 1, "2024-12-31", "2500")
	assertEntry(t, entries, 2, "2025-12-31", "2500")
}

func TestGenerate_WrittenDownValue_FirstPeriodProRated(t *testing.T) {
	// GIVEN: available for use Oct 1 with annual periods ending Dec 31 at
	//        40% on 100000
	// WHEN: generating
	// THEN: the first period covers 92 of 365 days of the yearly figure
	//       and an extra final period closes on the Oct 1 anniversary

	gen := newGenerator()
	asset := slAsset("W-2", "100000", "2022-10-01")
	row := slRow("100000", 3, 12, "2022-12-31")
	row.Method = depreciation.WrittenDownValue
	row.RateOfDepreciation = money("40")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("expected 4 periods (3 + pro-rata), got %d", len(entries))
	}
	// 40000 * 92/365
	assertEntry(t, entries, 0, "2022-12-31", "10082.19")
	assertEntry(t, entries, 1, "2023-12-31", "35967.12")
	assertEntry(t, entries, 2, "2024-12-31", "21580.28")
	if entries[3].ScheduleDate.String() != "2025-10-01" {
		t.Errorf("final date = %s, want 2025-10-01", entries[3].ScheduleDate)
	}
	if got := sumAmounts(entries); !got.Equal(money("100000")) {
		t.Errorf("total depreciation = %s, want 100000", got)
	}
}

func TestGenerate_WrittenDownValue_MonthlyPeriodsShareYearlyFigure(t *testing.T) {
	// Monthly WDV periods within one fiscal year repeat the same amount;
	// the yearly figure is only revalued when the fiscal year changes.

	gen := newGenerator()
	asset := slAsset("W-3", "12000", "2023-01-01")
	row := slRow("12000", 24, 1, "2023-01-31")
	row.Method = depreciation.WrittenDownValue
	row.RateOfDepreciation = money("50")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// Year 1: 12000 * 50% / 12 = 500 per month.
	for i := 0; i < 12; i++ {
		if !entries[i].Amount.Equal(money("500")) {
			t.Errorf("year-1 period %d amount = %s, want 500", i+1, entries[i].Amount)
		}
	}
	// Year 2 revalues on the remaining 6000: 250 per month.
	if !entries[12].Amount.Equal(money("250")) {
		t.Errorf("year-2 first period amount = %s, want 250", entries[12].Amount)
	}
}

func TestGenerate_MissingFiscalYearExtrapolates(t *testing.T) {
	// GIVEN: a fiscal calendar configured for 2023 only and a schedule
	//        reaching into 2025
	// WHEN: generating
	// THEN: later fiscal years extrapolate by whole years from the anchor
	//       and the amounts match the fixed-start calendar

	cal := depreciation.TableCalendar{Years: []depreciation.DateRange{{
		Start: depreciation.MustDate("2023-01-01"),
		End:   depreciation.MustDate("2023-12-31"),
	}}}
	gen := depreciation.NewGenerator(depreciation.Config{
		Calendar: cal,
		Now:      func() depreciation.Date { return depreciation.MustDate("2023-06-01") },
	})

	asset := slAsset("W-4", "10000", "2023-01-01")
	row := slRow("10000", 3, 12, "2023-12-31")
	row.Method = depreciation.WrittenDownValue
	row.RateOfDepreciation = money("50")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 periods, got %d", len(entries))
	}
	assertEntry(t, entries, 0, "2023-12-31", "5000")
	assertEntry(t, entries, 1, "2024-12-31", "2500")
}

// =============================================================================
// DAILY PRO-RATA
// =============================================================================

func TestGenerate_DailyProrata_AmountsFollowCalendarDays(t *testing.T) {
	// GIVEN: 3650 over 12 monthly periods with daily pro-rata from total
	//        remaining days (365 days -> 10 per day)
	// THEN: January carries 310, February 280, and the total is exact

	gen := depreciation.NewGenerator(depreciation.Config{
		UseTotalDays: true,
		Calendar:     depreciation.YearStartCalendar{StartMonth: time.January, StartDay: 1},
	})
	asset := slAsset("D-1", "3650", "2023-01-01")
	row := slRow("3650", 12, 1, "2023-01-31")
	row.DailyProrata = true

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 12 {
		t.Fatalf("expected 12 periods, got %d", len(entries))
	}
	assertEntry(t, entries, 0, "2023-01-31", "310")
	assertEntry(t, entries, 1, "2023-02-28", "280")
	if got := sumAmounts(entries); !got.Equal(money("3650")) {
		t.Errorf("total depreciation = %s, want 3650", got)
	}
}

func TestGenerate_DailyProrata_YearlyAmountVariant(t *testing.T) {
	// GIVEN: the same 3650-over-12-months asset, with the per-day amount
	//        derived from the yearly figure over the depreciation year's
	//        length instead of total remaining days
	// THEN: 3650 over one pending year spreads to 10 per calendar day and
	//       the total stays exact

	gen := newGenerator()
	asset := slAsset("D-2", "3650", "2023-01-01")
	row := slRow("3650", 12, 1, "2023-01-31")
	row.DailyProrata = true

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 12 {
		t.Fatalf("expected 12 periods, got %d", len(entries))
	}
	assertEntry(t, entries, 0, "2023-01-31", "310")
	assertEntry(t, entries, 1, "2023-02-28", "280")
	assertEntry(t, entries, 11, "2023-12-31", "310")
	if got := sumAmounts(entries); !got.Equal(money("3650")) {
		t.Errorf("total depreciation = %s, want 3650", got)
	}
}

func TestGenerate_WrittenDownValue_DailyProrataFollowsFiscalDays(t *testing.T) {
	// GIVEN: 100000 at 40% over 24 monthly periods with daily pro-rata
	// WHEN: generating across a fiscal year boundary into a leap year
	// THEN: each month carries yearly-figure / days-in-year x its own day
	//       count, and the yearly figure revalues on the rollover (40000
	//       over 365 days in 2023, then 40% of the remaining value over
	//       366 leap days in 2024)

	gen := newGenerator()
	asset := slAsset("W-5", "100000", "2023-01-01")
	row := slRow("100000", 24, 1, "2023-01-31")
	row.Method = depreciation.WrittenDownValue
	row.RateOfDepreciation = money("40")
	row.DailyProrata = true

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 24 {
		t.Fatalf("expected 24 periods, got %d", len(entries))
	}
	// 2023: 40000 / 365 per day.
	assertEntry(t, entries, 0, "2023-01-31", "3397.26")
	assertEntry(t, entries, 1, "2023-02-28", "3068.49")
	assertEntry(t, entries, 2, "2023-03-31", "3397.26")
	// The 2023 months round to 39999.99 in total, so 2024 revalues on the
	// remaining 60000.01: 24000.004 over 366 days, 31 of them in January.
	assertEntry(t, entries, 12, "2024-01-31", "2032.79")
}

// =============================================================================
// SHIFT WEIGHTING
// =============================================================================

func TestGenerate_ShiftBased_FirstGenerationSplitsEvenly(t *testing.T) {
	// With no prior schedule there are no labels to weight by; periods
	// split evenly and carry the default label.

	gen := newGenerator()
	asset := slAsset("S-1", "60000", "2023-01-01")
	row := slRow("60000", 6, 1, "2023-01-31")
	row.ShiftBased = true

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 6 {
		t.Fatalf("expected 6 periods, got %d", len(entries))
	}
	for i, e := range entries {
		if !e.Amount.Equal(money("10000")) {
			t.Errorf("period %d amount = %s, want 10000", i+1, e.Amount)
		}
		if e.Shift != "Single Shift" {
			t.Errorf("period %d shift = %q, want the default label", i+1, e.Shift)
		}
	}
}

func TestGenerate_ShiftBased_AmountsWeightedByFactors(t *testing.T) {
	// GIVEN: a prior schedule with periods 3 and 4 relabeled to double
	//        shift (factor 1.5 vs 1.0)
	// WHEN: regenerating with those priors
	// THEN: double-shift periods carry 1.5x the single-shift amount and
	//       the total still reaches the depreciable base

	gen := newGenerator()
	asset := slAsset("S-2", "60000", "2023-01-01")
	row := slRow("60000", 6, 1, "2023-01-31")
	row.ShiftBased = true

	prior, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}
	prior[2].Shift = "Double Shift"
	prior[3].Shift = "Double Shift"

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{
		PriorEntries: prior,
	})
	if err != nil {
		t.Fatalf("regeneration failed: %v", err)
	}

	// Factor sum 7.0: four singles at 60000/7, two doubles at 1.5x.
	for _, i := range []int{0, 1, 4} {
		if !entries[i].Amount.Equal(money("8571.43")) {
			t.Errorf("single-shift period %d amount = %s, want 8571.43", i+1, entries[i].Amount)
		}
	}
	for _, i := range []int{2, 3} {
		if !entries[i].Amount.Equal(money("12857.14")) {
			t.Errorf("double-shift period %d amount = %s, want 12857.14", i+1, entries[i].Amount)
		}
	}
	if got := sumAmounts(entries); !got.Equal(money("60000")) {
		t.Errorf("total depreciation = %s, want 60000", got)
	}
	if entries[2].Shift != "Double Shift" {
		t.Errorf("period 3 shift = %q, want Double Shift", entries[2].Shift)
	}
}

// =============================================================================
// DISPOSAL TRUNCATION
// =============================================================================

func TestGenerate_Disposal_TruncatesWithProRatedFinalPeriod(t *testing.T) {
	// GIVEN: the 1000-over-12-months asset disposed on June 15
	// WHEN: generating with the disposal date
	// THEN: 5 full periods plus a final period dated June 15 covering 15
	//       of June's 30 days

	gen := newGenerator()
	asset := slAsset("X-1", "1000", "2023-01-01")
	row := slRow("1000", 12, 1, "2023-01-31")
	disposal := depreciation.MustDate("2023-06-15")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{
		DisposalDate: &disposal,
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(entries) != 6 {
		t.Fatalf("expected 6 periods, got %d", len(entries))
	}
	for i := 0; i < 5; i++ {
		if !entries[i].Amount.Equal(money("83.33")) {
			t.Errorf("period %d amount = %s, want 83.33", i+1, entries[i].Amount)
		}
	}
	// 83.33... * 15/30
	assertEntry(t, entries, 5, "2023-06-15", "41.67")
}

// =============================================================================
// POSTED PREFIX AND ERRORS
// =============================================================================

func TestGenerate_PostedPrefixCopiedVerbatim(t *testing.T) {
	// Posted entries must survive regeneration untouched, including their
	// posting references and stored accumulated totals.

	gen := newGenerator()
	asset := slAsset("P-1", "1200", "2023-01-01")
	row := slRow("1200", 12, 1, "2023-01-31")

	prior, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}
	prior[0].PostingRef = "je-001"
	prior[1].PostingRef = "je-002"

	// Remaining base after two posted periods of 100.
	row.ValueAfterDepreciation = money("1000")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{
		PriorEntries: prior,
	})
	if err != nil {
		t.Fatalf("regeneration failed: %v", err)
	}

	if entries[0].PostingRef != "je-001" || entries[1].PostingRef != "je-002" {
		t.Error("posted entries must keep their posting references")
	}
	if !entries[0].Amount.Equal(prior[0].Amount) || !entries[0].ScheduleDate.Equal(prior[0].ScheduleDate) {
		t.Error("posted entries must be copied verbatim")
	}
	if entries[2].PostingRef != "" {
		t.Error("regenerated entries must not carry posting references")
	}
}

func TestGenerate_AmountRoundsToZero_Fails(t *testing.T) {
	// GIVEN: a base so small the per-period amount rounds to 0.00 while
	//        depreciable value remains
	// THEN: generation fails instead of silently producing a schedule
	//       that never depreciates

	gen := newGenerator()
	asset := slAsset("Z-1", "0.10", "2023-01-01")
	row := slRow("0.10", 100, 1, "2023-01-31")

	_, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if !errors.Is(err, depreciation.ErrZeroOrNegativeDepreciation) {
		t.Fatalf("expected ErrZeroOrNegativeDepreciation, got: %v", err)
	}
}

func TestGenerate_AccumulatedTotalsAreMonotonic(t *testing.T) {
	// Accumulated depreciation never decreases along the schedule.

	gen := newGenerator()
	asset := slAsset("M-1", "9999.97", "2023-01-12")
	row := slRow("9999.97", 36, 1, "2023-01-31")
	row.SalvageValue = money("500")

	entries, err := gen.Generate(context.Background(), asset, row, depreciation.GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	prev := decimal.Zero
	for i, e := range entries {
		if e.Accumulated.LessThan(prev) {
			t.Fatalf("accumulated decreased at period %d: %s < %s", i+1, e.Accumulated, prev)
		}
		prev = e.Accumulated
	}
	if !prev.Equal(money("9499.97")) {
		t.Errorf("final accumulated = %s, want 9499.97 (cost minus salvage)", prev)
	}
}
