/*
generator.go - Schedule construction for one (asset, finance-book) pair

PURPOSE:
  Drives period-by-period construction of a depreciation schedule: period
  count, pro-rata edges at acquisition and disposal, salvage-value
  clamping, and the running accumulated totals.

ALGORITHM:
  1. Work out the final period count: configured periods minus the opening
     booked count, plus one extra period when pro-rata applies, plus any
     periods implied by a repair-driven life extension.
  2. Detect pro-rata: the span between the effective start date and the
     first scheduled date is shorter than one standard period.
  3. Iterate from the first unposted index. Each period: detect fiscal
     year rollover (declining-balance yearly figures are revalued there),
     compute the amount via the method strategy, truncate at the disposal
     date if one is supplied, apply the first/last-row pro-rata overrides,
     and clamp the final period so the accumulated total lands exactly on
     the depreciable base.
  4. Stop without adding a period once depreciable value is exhausted; a
     non-positive amount with value remaining is an error, never silently
     absorbed.
  5. Accumulated totals are seeded from the opening accumulated
     depreciation and copied through posted entries untouched.

  Generation is pure computation: it returns a fresh entry slice and never
  touches the store.

SEE ALSO:
  - method.go: the per-period amount strategies
  - reschedule.go: wraps generation in the schedule-replacement protocol
*/
package depreciation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// =============================================================================
// GENERATOR
// =============================================================================

// Config carries the engine-wide knobs. UseTotalDays selects how daily
// pro-rata derives its per-day amount (total remaining days vs. a yearly
// amount over the depreciation year); it is an explicit field so generation
// stays deterministic and testable, not ambient state.
type Config struct {
	UseTotalDays bool
	Calendar     FiscalCalendar
	ShiftFactors ShiftFactorStore

	// Now anchors fiscal-year extrapolation when the calendar cannot
	// resolve a date. Defaults to Today.
	Now func() Date
}

type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	if cfg.Now == nil {
		cfg.Now = Today
	}
	return &Generator{cfg: cfg}
}

// GenerateOptions parameterize one generation run.
type GenerateOptions struct {
	// DisposalDate truncates the schedule with a pro-rated final period
	// ending exactly on it.
	DisposalDate *Date

	// PriorEntries is the previous schedule version's entry list. Its
	// posted prefix is copied forward verbatim; its unposted entries
	// supply shift labels for shift-based rows.
	PriorEntries []ScheduleEntry
}

// Generate builds the ordered entry list for (asset, row).
func (g *Generator) Generate(ctx context.Context, asset *Asset, row *FinanceBookRow, opts GenerateOptions) ([]ScheduleEntry, error) {
	gen := &generation{
		g:        g,
		asset:    asset,
		row:      row,
		disposal: opts.DisposalDate,
		prior:    opts.PriorEntries,
	}
	if err := gen.init(ctx); err != nil {
		return nil, err
	}
	if err := gen.run(); err != nil {
		return nil, err
	}
	gen.setAccumulated()
	return gen.entries, nil
}

// =============================================================================
// GENERATION STATE
// =============================================================================

type generation struct {
	g        *Generator
	asset    *Asset
	row      *FinanceBookRow
	disposal *Date
	prior    []ScheduleEntry

	entries       []ScheduleEntry
	firstUnposted int

	pending          decimal.Decimal
	depreciableValue decimal.Decimal
	shouldGetLastDay bool
	skip             bool

	scheduleDate Date

	// Declining-balance fiscal-year caches.
	fyChanged    bool
	currentFYEnd Date
	prevAmount   decimal.Decimal
	yearlyAmount decimal.Decimal

	pendingMonths     decimal.Decimal
	finalCount        int
	hasProRata        bool
	finalScheduleDate Date
	totalPendingDays  int
	totalPendingYears decimal.Decimal

	defaultShift string
	shiftFactors map[string]decimal.Decimal
}

func (gen *generation) init(ctx context.Context) error {
	row := gen.row

	// Posted prefix is copied forward verbatim and generation resumes
	// immediately after it.
	for _, e := range gen.prior {
		if !e.Posted() {
			break
		}
		gen.entries = append(gen.entries, e)
	}
	gen.firstUnposted = len(gen.entries)

	gen.pending = row.ValueAfterDepreciation
	gen.depreciableValue = row.ValueAfterDepreciation.Sub(row.SalvageValue)
	gen.shouldGetLastDay = row.DepreciationStartDate.IsLastDayOfMonth()

	gen.computePendingMonths()
	if err := gen.computeFinalCount(); err != nil {
		return err
	}
	gen.computeTotalPendingDaysOrYears()

	if row.ShiftBased {
		if err := gen.loadShiftFactors(ctx); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// PERIOD COUNT AND PRO-RATA DETECTION
// =============================================================================

func (gen *generation) computePendingMonths() {
	row := gen.row
	totalMonths := row.TotalPeriods*row.FrequencyMonths + row.IncreaseInAssetLife
	booked := gen.bookedMonths(gen.lastBookedDate())
	gen.pendingMonths = decimal.NewFromInt(int64(totalMonths)).Sub(booked)
}

// lastBookedDate returns the schedule date of the most recent booked
// period: the last posted entry, or the period implied by the opening
// booked count for existing assets. Zero when nothing is booked.
func (gen *generation) lastBookedDate() Date {
	if gen.firstUnposted > 0 {
		return gen.entries[gen.firstUnposted-1].ScheduleDate
	}
	if gen.asset.OpeningBookedPeriods > 0 {
		return gen.row.DepreciationStartDate.AddMonths(-gen.row.FrequencyMonths)
	}
	return Date{}
}

// bookedMonths converts the already-booked span into fractional months
// (average month length) so the remaining straight-line share stays exact
// for assets entered mid-schedule.
func (gen *generation) bookedMonths(lastBooked Date) decimal.Decimal {
	if lastBooked.IsZero() {
		return decimalZero
	}
	row, asset := gen.row, gen.asset
	usedMonths := row.FrequencyMonths * (1 + asset.OpeningBookedPeriods)
	computedStart := row.DepreciationStartDate.AddMonths(-usedMonths).AddDays(1)
	if computedStart.Before(asset.AvailableForUseDate) {
		computedStart = asset.AvailableForUseDate
	}
	days := decimal.NewFromInt(int64(DaysBetween(computedStart, lastBooked) + 1))
	avgMonth := decimal.NewFromInt(365).Div(decimalTwelve)
	return days.Div(avgMonth)
}

func (gen *generation) computeFinalCount() error {
	row, asset := gen.row, gen.asset

	gen.finalCount = row.TotalPeriods - asset.OpeningBookedPeriods
	if gen.finalCount <= 0 {
		return &InsufficientScheduleWindowError{
			Asset:                asset.ID,
			FinanceBook:          row.FinanceBook,
			OpeningBookedPeriods: asset.OpeningBookedPeriods,
			WindowDays:           DaysBetween(asset.AvailableForUseDate, row.DepreciationStartDate) + 1,
		}
	}

	if err := gen.checkProRata(); err != nil {
		return err
	}
	if gen.hasProRata {
		gen.finalCount++
	}

	gen.extendForIncreasedLife()
	return nil
}

// extendForIncreasedLife appends the periods implied by a repair-driven
// life extension beyond the originally configured horizon, and fixes the
// final schedule date the daily variants amortize towards.
func (gen *generation) extendForIncreasedLife() {
	row, asset := gen.row, gen.asset

	gen.finalScheduleDate = asset.AvailableForUseDate.AddMonths(
		row.TotalPeriods*row.FrequencyMonths + row.IncreaseInAssetLife)

	pendingPeriods := row.TotalPeriods - asset.OpeningBookedPeriods
	horizon := row.DepreciationStartDate.AddMonths(pendingPeriods * row.FrequencyMonths)

	if gen.finalScheduleDate.After(horizon) {
		months := MonthsBetween(horizon, gen.finalScheduleDate)
		gen.finalCount += months/row.FrequencyMonths + 1
	}
}

// checkProRata decides whether the first (and last) period is shorter than
// one standard period. It also validates that the schedule window leaves
// room for the opening booked periods.
func (gen *generation) checkProRata() error {
	row, asset := gen.row, gen.asset
	gen.hasProRata = false

	var days, totalDays int
	if row.Method.IsDecliningBalance() {
		from := gen.modifiedAvailableForUse()
		days = DaysBetween(from, row.DepreciationStartDate) + 1
		totalDays = gen.standardPeriodDays(row.DepreciationStartDate)
	} else {
		prevStart := row.DepreciationStartDate.
			AddMonths(-row.FrequencyMonths * asset.OpeningBookedPeriods).
			LastDayOfMonth()
		days = DaysBetween(asset.AvailableForUseDate, prevStart) + 1
		totalDays = gen.standardPeriodDays(prevStart)
	}

	if days <= 0 {
		return &InsufficientScheduleWindowError{
			Asset:                asset.ID,
			FinanceBook:          row.FinanceBook,
			OpeningBookedPeriods: asset.OpeningBookedPeriods,
			WindowDays:           days,
		}
	}
	if days < totalDays {
		gen.hasProRata = true
	}
	return nil
}

// modifiedAvailableForUse shifts the effective start for existing assets:
// with opening booked periods the current period began one frequency
// before the depreciation start date.
func (gen *generation) modifiedAvailableForUse() Date {
	if gen.asset.OpeningBookedPeriods > 0 {
		return gen.row.DepreciationStartDate.AddMonths(-gen.row.FrequencyMonths).AddDays(1)
	}
	return gen.asset.AvailableForUseDate
}

// standardPeriodDays returns the day length of the standard period ending
// on date.
func (gen *generation) standardPeriodDays(date Date) int {
	periodStart := date.AddMonths(-gen.row.FrequencyMonths)
	if date.IsLastDayOfMonth() {
		periodStart = periodStart.LastDayOfMonth()
	}
	return DaysBetween(periodStart, date)
}

func (gen *generation) computeTotalPendingDaysOrYears() {
	if !gen.g.cfg.UseTotalDays {
		gen.totalPendingYears = gen.pendingMonths.Div(decimalTwelve)
		return
	}
	if last := gen.lastBookedDate(); !last.IsZero() {
		gen.totalPendingDays = DaysBetween(last, gen.finalScheduleDate) - 1
	} else {
		gen.totalPendingDays = DaysBetween(gen.asset.AvailableForUseDate, gen.finalScheduleDate)
	}
}

// =============================================================================
// FISCAL YEARS
// =============================================================================

// fiscalYearOf resolves the fiscal year containing a date, extrapolating
// whole years from the fiscal year at the Now anchor when the calendar has
// no configured year for it.
func (gen *generation) fiscalYearOf(date Date) (DateRange, error) {
	fy, err := gen.g.cfg.Calendar.FiscalYear(date)
	if err == nil {
		return fy, nil
	}
	if !errors.Is(err, ErrNoFiscalYear) {
		return DateRange{}, err
	}

	anchor, err := gen.g.cfg.Calendar.FiscalYear(gen.g.cfg.Now())
	if err != nil {
		return DateRange{}, err
	}
	months := MonthsBetween(anchor.Start, date)
	var years int
	if months%12 != 0 {
		years = floorDiv(months, 12)
	} else {
		years = months/12 - 1
	}
	start := anchor.Start.AddYears(years)
	return DateRange{Start: start, End: start.AddYears(1).AddDays(-1)}, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// detectFiscalYearRollover updates the fiscal-year caches for declining-
// balance methods: the yearly figure is revalued once per fiscal year.
func (gen *generation) detectFiscalYearRollover(idx int) error {
	row := gen.row
	gen.fyChanged = false

	monthEnd := row.DepreciationStartDate.AddMonths(idx * row.FrequencyMonths).LastDayOfMonth()

	if gen.currentFYEnd.IsZero() {
		fy, err := gen.fiscalYearOf(row.DepreciationStartDate)
		if err != nil {
			return err
		}
		gen.currentFYEnd = fy.End
		gen.fyChanged = true
	} else if monthEnd.After(gen.currentFYEnd) {
		gen.currentFYEnd = gen.currentFYEnd.AddYears(1)
		gen.fyChanged = true
	}

	if gen.fyChanged && row.Method.IsDecliningBalance() {
		gen.yearlyAmount = gen.pending.Mul(row.RateOfDepreciation).Div(decimalHundred)
	}
	return nil
}

func (gen *generation) daysInDepreciationYear(date Date) (int, error) {
	fy, err := gen.fiscalYearOf(date)
	if err != nil {
		return 0, err
	}
	return fy.Days(), nil
}

// =============================================================================
// MAIN LOOP
// =============================================================================

func (gen *generation) run() error {
	row := gen.row
	strategy := strategyFor(row)

	for idx := gen.firstUnposted; idx < gen.finalCount; idx++ {
		if gen.skip {
			break
		}

		if err := gen.detectFiscalYearRollover(idx); err != nil {
			return err
		}
		gen.scheduleDate = gen.nextScheduleDate(idx)

		st, err := gen.buildPeriodState(idx)
		if err != nil {
			return err
		}
		amount, err := strategy.periodAmount(st)
		if err != nil {
			return err
		}
		if gen.fyChanged {
			gen.prevAmount = amount
		}

		// Disposal truncation: replace the would-be period with one
		// pro-rated up to the disposal date, then stop.
		if gen.disposal != nil && gen.scheduleDate.AfterOrEqual(*gen.disposal) {
			gen.appendDisposalEntry(amount)
			break
		}

		if idx == 0 {
			amount, err = gen.firstRowAmount(amount)
			if err != nil {
				return err
			}
		} else if gen.hasProRata && idx == gen.finalCount-1 {
			amount = gen.lastRowAmount(idx, amount)
		}

		amount = row.Round(amount)
		if !amount.IsPositive() {
			if gen.exhausted() {
				break
			}
			return &ZeroOrNegativeDepreciationError{
				Asset:       gen.asset.ID,
				FinanceBook: row.FinanceBook,
				PeriodIdx:   idx,
				Amount:      amount,
				Pending:     gen.pending,
				Periods:     row.TotalPeriods,
			}
		}

		gen.pending = row.Round(gen.pending.Sub(amount))
		amount = gen.adjustForSalvage(idx, amount)

		if amount.IsPositive() {
			gen.appendEntry(amount)
		}
	}
	return nil
}

func (gen *generation) nextScheduleDate(idx int) Date {
	d := gen.row.DepreciationStartDate.AddMonths(idx * gen.row.FrequencyMonths)
	if gen.shouldGetLastDay {
		d = d.LastDayOfMonth()
	}
	return d
}

// exhausted reports whether pending value is within one currency unit of
// the salvage value, i.e. the schedule legitimately ends here.
func (gen *generation) exhausted() bool {
	oneUnit := decimal.New(1, -gen.row.Precision)
	return gen.pending.Sub(gen.row.SalvageValue).Abs().LessThanOrEqual(oneUnit)
}

func (gen *generation) buildPeriodState(idx int) (*periodState, error) {
	row := gen.row
	st := &periodState{
		Asset:                 gen.asset.ID,
		Row:                   row,
		Idx:                   idx,
		ScheduleDate:          gen.scheduleDate,
		Pending:               gen.pending,
		DepreciableValue:      gen.depreciableValue,
		FiscalYearChanged:     gen.fyChanged,
		PrevAmount:            gen.prevAmount,
		YearlyDecliningAmount: gen.yearlyAmount,
		UseTotalDays:          gen.g.cfg.UseTotalDays,
		TotalPendingDays:      gen.totalPendingDays,
		TotalPendingYears:     gen.totalPendingYears,
		PriorEntries:          gen.prior,
		ShiftFactors:          gen.shiftFactors,
	}
	if row.FrequencyMonths > 0 {
		st.PendingPeriods = gen.pendingMonths.Div(decimal.NewFromInt(int64(row.FrequencyMonths)))
	}
	if row.DailyProrata {
		st.PeriodDays = gen.periodDays(idx)
		days, err := gen.daysInDepreciationYear(gen.scheduleDate)
		if err != nil {
			return nil, err
		}
		st.DaysInDepreciationYear = days
	}
	return st, nil
}

// periodDays returns the inclusive calendar-day span of period idx.
func (gen *generation) periodDays(idx int) int {
	row := gen.row
	from := row.DepreciationStartDate.AddMonths((idx - 1) * row.FrequencyMonths)
	to := from.AddMonths(row.FrequencyMonths)
	if row.DepreciationStartDate.IsLastDayOfMonth() {
		to = to.LastDayOfMonth()
		from = from.LastDayOfMonth().AddDays(1)
	}
	return DaysBetween(from, to) + 1
}

// =============================================================================
// PRO-RATA EDGES
// =============================================================================

// proRataAmount scales amount by actual days / standard period days for
// the period ending on refDate.
func (gen *generation) proRataAmount(amount decimal.Decimal, from, to, refDate Date) (decimal.Decimal, int) {
	days := DaysBetween(from, to) + 1
	totalDays := gen.standardPeriodDays(refDate)
	scaled := amount.Mul(decimal.NewFromInt(int64(days))).Div(decimal.NewFromInt(int64(totalDays)))
	return scaled, days
}

// firstRowAmount pro-rates the first period when the asset became
// available for use mid-period.
func (gen *generation) firstRowAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	row, asset := gen.row, gen.asset

	var from Date
	switch {
	case gen.hasProRata && asset.OpeningAccumulatedDepreciation.IsZero():
		from = asset.AvailableForUseDate
	case gen.hasProRata && !asset.OpeningAccumulatedDepreciation.IsZero():
		from = gen.modifiedAvailableForUse()
	default:
		return amount, nil
	}

	scaled, _ := gen.proRataAmount(amount, from, row.DepreciationStartDate, row.DepreciationStartDate)
	if !row.Round(scaled).IsPositive() {
		// Low-value asset: the pro-rated first slice rounds to nothing.
		return decimalZero, &ZeroOrNegativeDepreciationError{
			Asset:       asset.ID,
			FinanceBook: row.FinanceBook,
			PeriodIdx:   0,
			Amount:      row.Round(scaled),
			Pending:     gen.pending,
			Periods:     row.TotalPeriods,
		}
	}
	return scaled, nil
}

// lastRowAmount sizes the extra pro-rata period so the schedule ends on
// the asset's natural final date, and moves the entry date there.
func (gen *generation) lastRowAmount(idx int, amount decimal.Decimal) decimal.Decimal {
	row, asset := gen.row, gen.asset

	if row.IncreaseInAssetLife == 0 {
		gen.finalScheduleDate = asset.AvailableForUseDate.AddMonths(
			(idx + asset.OpeningBookedPeriods) * row.FrequencyMonths)
		if asset.AvailableForUseDate.IsLastDayOfMonth() {
			gen.finalScheduleDate = gen.finalScheduleDate.LastDayOfMonth()
		}
	}

	var days int
	if !asset.OpeningAccumulatedDepreciation.IsZero() {
		amount, days = gen.proRataAmount(amount, gen.scheduleDate, gen.finalScheduleDate, gen.finalScheduleDate)
	} else {
		if row.IncreaseInAssetLife == 0 && len(gen.entries) > 0 {
			amount = amount.Sub(gen.entries[0].Amount)
		}
		days = DaysBetween(gen.scheduleDate, gen.finalScheduleDate) + 1
	}

	gen.scheduleDate = gen.scheduleDate.AddDays(days - 1)
	return amount
}

// appendDisposalEntry replaces the period at the disposal boundary with
// one pro-rated up to the disposal date.
func (gen *generation) appendDisposalEntry(amount decimal.Decimal) {
	row, asset := gen.row, gen.asset

	var from Date
	if len(gen.entries) > 0 {
		from = gen.entries[len(gen.entries)-1].ScheduleDate.AddDays(1)
	} else {
		from = gen.modifiedAvailableForUse()
		if asset.AvailableForUseDate.IsLastDayOfMonth() {
			from = from.LastDayOfMonth()
		}
	}

	scaled, _ := gen.proRataAmount(amount, from, *gen.disposal, gen.scheduleDate)
	scaled = row.Round(scaled)
	if scaled.IsPositive() {
		gen.scheduleDate = *gen.disposal
		gen.appendEntry(scaled)
	}
}

// =============================================================================
// SALVAGE CLAMP AND ENTRY APPEND
// =============================================================================

// adjustForSalvage forces the final period so the accumulated total lands
// exactly on the depreciable base, absorbing rounding drift; any overshoot
// past the salvage value is clawed back the same way.
func (gen *generation) adjustForSalvage(idx int, amount decimal.Decimal) decimal.Decimal {
	row := gen.row
	atFinal := idx == gen.finalCount-1 && !gen.pending.Equal(row.SalvageValue)
	overshot := gen.pending.LessThan(row.SalvageValue)
	if !atFinal && !overshot {
		return amount
	}
	amount = row.Round(amount.Add(gen.pending.Sub(row.SalvageValue)))
	gen.skip = true
	return amount
}

func (gen *generation) appendEntry(amount decimal.Decimal) {
	var shift string
	if gen.row.ShiftBased {
		idx := len(gen.entries)
		if idx < len(gen.prior) && gen.prior[idx].Shift != "" {
			shift = gen.prior[idx].Shift
		} else {
			shift = gen.defaultShift
		}
	}
	gen.entries = append(gen.entries, ScheduleEntry{
		Idx:          len(gen.entries),
		ScheduleDate: gen.scheduleDate,
		Amount:       amount,
		Shift:        shift,
	})
}

// setAccumulated builds the running accumulated totals, seeded from the
// opening accumulated depreciation. Posted entries keep their stored
// totals; the running figure resumes from them.
func (gen *generation) setAccumulated() {
	acc := gen.asset.OpeningAccumulatedDepreciation
	for i := range gen.entries {
		if gen.entries[i].Posted() {
			acc = gen.entries[i].Accumulated
			continue
		}
		acc = acc.Add(gen.entries[i].Amount)
		gen.entries[i].Accumulated = gen.row.Round(acc)
	}
}

// =============================================================================
// SHIFT FACTORS
// =============================================================================

func (gen *generation) loadShiftFactors(ctx context.Context) error {
	src := gen.g.cfg.ShiftFactors
	if src == nil {
		return nil
	}

	label, err := src.DefaultShiftLabel(ctx)
	if err != nil {
		return err
	}
	gen.defaultShift = label

	gen.shiftFactors = make(map[string]decimal.Decimal)
	resolve := func(l string) error {
		if l == "" {
			return nil
		}
		if _, ok := gen.shiftFactors[l]; ok {
			return nil
		}
		f, err := src.ShiftFactor(ctx, l)
		if err != nil {
			return err
		}
		gen.shiftFactors[l] = f
		return nil
	}

	if err := resolve(gen.defaultShift); err != nil {
		return err
	}
	for _, e := range gen.prior {
		if err := resolve(e.Shift); err != nil {
			return err
		}
	}
	return nil
}
