package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

type (
	// Date is a calendar day in UTC. The time-of-day part is always zero.
	Date struct {
		time.Time
	}

	// Month identifies one calendar month, rendered as YYYY-MM.
	Month struct {
		Year  int
		Month time.Month
	}

	// DateRange is an inclusive range of days. A zero bound leaves that side open.
	DateRange struct {
		From Date
		To   Date
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current day in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD string. The field name is used in the returned validation error.
func ParseDate(field, s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, Invalid(field, s, "must be a date in YYYY-MM-DD format")
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return Invalid("date", "", "is required")
	}
	return nil
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Month returns the calendar month the date belongs to.
func (d Date) Month() Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(field, s string) (Month, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, Invalid(field, s, "must be a month in YYYY-MM format")
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) FirstDay() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

func (m Month) LastDay() Date {
	return NewDate(m.Year, int(m.Month)+1, 0)
}

// Range returns the inclusive range covering every day of the month.
func (m Month) Range() DateRange {
	return DateRange{From: m.FirstDay(), To: m.LastDay()}
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// YearRange returns the range covering a whole calendar year.
func YearRange(year int) DateRange {
	return DateRange{From: NewDate(year, 1, 1), To: NewDate(year, 12, 31)}
}

func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return Invalid("end_date", r.To.String(), "must not be before start_date "+r.From.String())
	}
	return nil
}

// IsOpen reports whether both bounds are unset.
func (r DateRange) IsOpen() bool {
	return r.From.IsZero() && r.To.IsZero()
}

func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// Bounds returns the range as YYYY-MM-DD strings, substituting sentinels for open sides.
func (r DateRange) Bounds() (string, string) {
	from, to := "0000-01-01", "9999-12-31"
	if !r.From.IsZero() {
		from = r.From.String()
	}
	if !r.To.IsZero() {
		to = r.To.String()
	}
	return from, to
}
