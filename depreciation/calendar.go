/*
calendar.go - Civil date arithmetic and fiscal year resolution

PURPOSE:
  Schedule dates are civil dates (no clock, no timezone). This file provides
  the Date value type, calendar-correct month arithmetic, and fiscal year
  lookup.

KEY BEHAVIOR:
  AddMonths clamps to the length of the target month:
    2023-01-31 + 1 month = 2023-02-28
    2024-01-31 + 1 month = 2024-02-29 (leap year)
  This matters because most depreciation schedules are anchored on a
  month-end start date and must stay on month ends.

  MonthsBetween counts calendar months inclusive of both endpoints' months
  (Jan 15 -> Mar 2 is 3 months). Period-count math in the generator depends
  on this convention.

FISCAL YEARS:
  FiscalCalendar resolves a date to the fiscal year interval containing it.
  A resolver may not cover every date (e.g. fiscal years are configured per
  accounting year); it then fails with ErrNoFiscalYear and the generator
  extrapolates from the nearest known fiscal year by adding whole years.

SEE ALSO:
  - generator.go: fiscal year rollover detection, pro-rata day counts
  - method.go: daily pro-rata strategies
*/
package depreciation

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil date (day granularity, UTC)
// =============================================================================

type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its civil date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustDate is a test/seed helper; panics on a malformed date.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) Time() time.Time   { return d.t }
func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) String() string    { return d.t.Format("2006-01-02") }

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.t.Before(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date  { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddYears(n int) Date { return d.AddMonths(12 * n) }

// AddMonths adds n calendar months, clamping the day to the target month's
// length (Jan 31 + 1 month = Feb 28/29). time.Time.AddDate would normalize
// Jan 31 + 1 month into March, which is wrong for schedule dates.
func (d Date) AddMonths(n int) Date {
	months := d.Year()*12 + int(d.Month()) - 1 + n
	year, month := months/12, time.Month(months%12+1)
	if months < 0 && months%12 != 0 {
		year--
		month = time.Month(months%12 + 13)
	}
	day := d.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

func (d Date) LastDayOfMonth() Date {
	return NewDate(d.Year(), d.Month(), daysInMonth(d.Year(), d.Month()))
}

func (d Date) IsLastDayOfMonth() bool {
	return d.Day() == daysInMonth(d.Year(), d.Month())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysBetween returns to - from in days (exclusive of from, inclusive of to).
// Callers that need an inclusive span add 1.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// MonthsBetween counts calendar months from from to to, inclusive of both
// endpoints' months: Jan 15 -> Mar 2 is 3. Negative when to precedes from's
// month.
func MonthsBetween(from, to Date) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
}

// =============================================================================
// DATE RANGE
// =============================================================================

type DateRange struct {
	Start Date
	End   Date
}

func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Days returns the inclusive day count of the range.
func (r DateRange) Days() int {
	return DaysBetween(r.Start, r.End) + 1
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// FISCAL CALENDAR
// =============================================================================

// ErrNoFiscalYear is returned when no configured fiscal year covers a date.
var ErrNoFiscalYear = errors.New("no fiscal year covers date")

// NoFiscalYearError carries the unresolvable date.
type NoFiscalYearError struct {
	Date Date
}

func (e *NoFiscalYearError) Error() string {
	return fmt.Sprintf("no fiscal year covers %s", e.Date)
}

func (e *NoFiscalYearError) Unwrap() error { return ErrNoFiscalYear }

// FiscalCalendar resolves the fiscal year interval containing a date.
type FiscalCalendar interface {
	FiscalYear(d Date) (DateRange, error)
}

// YearStartCalendar derives fiscal years from a fixed start month/day
// (e.g. April 1). It covers every date and never fails.
type YearStartCalendar struct {
	StartMonth time.Month
	StartDay   int
}

func (c YearStartCalendar) FiscalYear(d Date) (DateRange, error) {
	month, day := c.StartMonth, c.StartDay
	if month == 0 {
		month = time.January
	}
	if day == 0 {
		day = 1
	}
	start := NewDate(d.Year(), month, day)
	if d.Before(start) {
		start = start.AddYears(-1)
	}
	return DateRange{Start: start, End: start.AddYears(1).AddDays(-1)}, nil
}

// TableCalendar resolves against an explicit list of fiscal years, the way
// an accounting system configures them one accounting year at a time. Dates
// outside every configured year fail with NoFiscalYearError.
type TableCalendar struct {
	Years []DateRange
}

func (c TableCalendar) FiscalYear(d Date) (DateRange, error) {
	for _, y := range c.Years {
		if y.Contains(d) {
			return y, nil
		}
	}
	return DateRange{}, &NoFiscalYearError{Date: d}
}
