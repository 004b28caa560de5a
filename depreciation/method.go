/*
method.go - Per-period depreciation amount strategies

PURPOSE:
  One strategy per depreciation method variant, behind a single
  periodAmount capability. The generator owns all mutable schedule state;
  a strategy receives a read-only periodState snapshot carrying only the
  figures its formula needs.

VARIANTS:
  straightLineFixed:  depreciable value / remaining period count
  straightLineDaily:  a per-day amount scaled by the calendar days each
                      period actually spans; the per-day amount comes from
                      total remaining days or from a yearly figure divided
                      by the depreciation year's length, selected by the
                      generator's "use total days" flag
  straightLineShift:  each period's share weighted by its shift factor
                      relative to the sum over all remaining periods
  decliningFixed:     pending value x annual rate, recomputed only when the
                      fiscal year changes (periods within one fiscal year
                      share one yearly figure)
  decliningDaily:     the yearly declining-balance figure spread across the
                      depreciation year's calendar days

  Manual rows follow straight-line mechanics when regenerated.

SEE ALSO:
  - generator.go: builds periodState and caches the fiscal-year figures
*/
package depreciation

import (
	"github.com/shopspring/decimal"
)

var (
	decimalZero    = decimal.Zero
	decimalHundred = decimal.NewFromInt(100)
	decimalTwelve  = decimal.NewFromInt(12)
)

// periodState is the per-period snapshot handed to a strategy. It carries
// only data; all caching across periods lives in the generator.
type periodState struct {
	Asset AssetID
	Row   *FinanceBookRow
	Idx   int

	ScheduleDate Date

	// Remaining un-depreciated value at the start of this period.
	Pending decimal.Decimal

	// Static depreciable base for straight-line: the row's value after
	// depreciation minus its salvage value, fixed for the whole run.
	DepreciableValue decimal.Decimal

	// pending months / frequency; fractional for existing assets whose
	// opening position does not land exactly on a period boundary.
	PendingPeriods decimal.Decimal

	FiscalYearChanged bool

	// Previous period's raw strategy amount (declining-balance caching).
	PrevAmount decimal.Decimal

	// Yearly declining-balance figure, recomputed by the generator on
	// fiscal year change.
	YearlyDecliningAmount decimal.Decimal

	// Daily pro-rata inputs.
	UseTotalDays           bool
	TotalPendingDays       int
	TotalPendingYears      decimal.Decimal
	PeriodDays             int
	DaysInDepreciationYear int

	// Shift weighting inputs: the previous schedule's entries and the
	// factor table resolved for their labels.
	PriorEntries []ScheduleEntry
	ShiftFactors map[string]decimal.Decimal
}

type methodStrategy interface {
	periodAmount(st *periodState) (decimal.Decimal, error)
}

// strategyFor selects the strategy variant for a finance-book row.
func strategyFor(row *FinanceBookRow) methodStrategy {
	if row.Method.IsDecliningBalance() {
		if row.DailyProrata {
			return decliningDaily{}
		}
		return decliningFixed{}
	}
	if row.ShiftBased {
		return straightLineShift{}
	}
	if row.DailyProrata {
		return straightLineDaily{}
	}
	return straightLineFixed{}
}

// =============================================================================
// STRAIGHT LINE
// =============================================================================

type straightLineFixed struct{}

func (straightLineFixed) periodAmount(st *periodState) (decimal.Decimal, error) {
	if !st.PendingPeriods.IsPositive() {
		return decimalZero, zeroAmountError(st, decimalZero)
	}
	return st.DepreciableValue.Div(st.PendingPeriods), nil
}

type straightLineDaily struct{}

func (straightLineDaily) periodAmount(st *periodState) (decimal.Decimal, error) {
	daily, err := dailyStraightLineAmount(st)
	if err != nil {
		return decimalZero, err
	}
	return daily.Mul(decimal.NewFromInt(int64(st.PeriodDays))), nil
}

func dailyStraightLineAmount(st *periodState) (decimal.Decimal, error) {
	if st.UseTotalDays {
		if st.TotalPendingDays <= 0 {
			return decimalZero, zeroAmountError(st, decimalZero)
		}
		return st.DepreciableValue.Div(decimal.NewFromInt(int64(st.TotalPendingDays))), nil
	}
	if !st.TotalPendingYears.IsPositive() || st.DaysInDepreciationYear <= 0 {
		return decimalZero, zeroAmountError(st, decimalZero)
	}
	yearly := st.DepreciableValue.Div(st.TotalPendingYears)
	return yearly.Div(decimal.NewFromInt(int64(st.DaysInDepreciationYear))), nil
}

type straightLineShift struct{}

func (straightLineShift) periodAmount(st *periodState) (decimal.Decimal, error) {
	// First generation has no prior schedule to read shift labels from;
	// fall back to an even split until shifts are allocated.
	if len(st.PriorEntries) == 0 {
		return straightLineFixed{}.periodAmount(st)
	}

	var label string
	if st.Idx < len(st.PriorEntries) {
		label = st.PriorEntries[st.Idx].Shift
	}
	factor := st.ShiftFactors[label]

	sum := decimalZero
	for _, e := range st.PriorEntries {
		if e.Posted() {
			continue
		}
		sum = sum.Add(st.ShiftFactors[e.Shift])
	}
	if !sum.IsPositive() {
		return decimalZero, zeroAmountError(st, decimalZero)
	}
	return st.DepreciableValue.Div(sum).Mul(factor), nil
}

// =============================================================================
// WRITTEN DOWN VALUE / DOUBLE DECLINING BALANCE
// =============================================================================

type decliningFixed struct{}

func (decliningFixed) periodAmount(st *periodState) (decimal.Decimal, error) {
	// Revalued once per fiscal year; periods within one fiscal year share
	// the same yearly-rate-derived figure.
	if !st.FiscalYearChanged {
		return st.PrevAmount, nil
	}
	freq := decimal.NewFromInt(int64(st.Row.FrequencyMonths))
	return st.YearlyDecliningAmount.Mul(freq).Div(decimalTwelve), nil
}

type decliningDaily struct{}

func (decliningDaily) periodAmount(st *periodState) (decimal.Decimal, error) {
	if st.DaysInDepreciationYear <= 0 {
		return decimalZero, zeroAmountError(st, decimalZero)
	}
	daily := st.YearlyDecliningAmount.Div(decimal.NewFromInt(int64(st.DaysInDepreciationYear)))
	return daily.Mul(decimal.NewFromInt(int64(st.PeriodDays))), nil
}

func zeroAmountError(st *periodState, amount decimal.Decimal) error {
	return &ZeroOrNegativeDepreciationError{
		Asset:       st.Asset,
		FinanceBook: st.Row.FinanceBook,
		PeriodIdx:   st.Idx,
		Amount:      amount,
		Pending:     st.Pending,
		Periods:     st.Row.TotalPeriods,
	}
}
