package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the canonical textual form of a Date in storage and JSON.
const DateLayout = "2006-01-02"

// Date is a calendar day without time-of-day or zone. It is comparable and
// safe to use as a map key.
//
// Dates are persisted as "YYYY-MM-DD" text so that lexical ordering in SQL
// matches chronological ordering.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate returns the Date for the given calendar fields. Out-of-range
// values are normalized the same way time.Date normalizes them
// (e.g. February 30 becomes March 1 or 2).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) Date {
	return DateOf(time.Now().In(loc))
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is like ParseDate but panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int { return d.year }
func (d Date) Month() time.Month { return d.month }
func (d Date) Day() int { return d.day }
func (d Date) IsZero() bool { return d == Date{} }
func (d Date) YearMonth() YearMonth { return YearMonth{Year: d.year, Month: d.month} }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }
func (d Date) After(o Date) bool { return d.Time().After(o.Time()) }

// DaysUntil returns the number of calendar days from d to o. The result is
// negative when o is earlier than d.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

// String formats d as "YYYY-MM-DD". The zero Date formats as "".
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler. It is also used by
// encoding/json for map keys.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. An empty input yields
// the zero Date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	p, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner. Drivers may hand back the column either as
// text or, for date-typed columns, as a time.Time.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v.UTC())
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("domain.Date: cannot scan %T", src)
	}
}

func (d *Date) scanText(s string) error {
	if len(s) > len(DateLayout) {
		// tolerate "YYYY-MM-DD HH:MM:SS..." from loosely typed columns
		s = s[:len(DateLayout)]
	}
	return d.UnmarshalText([]byte(s))
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// Valid reports whether the month is within 1..12.
func (ym YearMonth) Valid() bool { return ym.Month >= time.January && ym.Month <= time.December }

// Next returns the following month, rolling December over into January of
// the next year.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// FirstDay returns the first day of the month.
func (ym YearMonth) FirstDay() Date { return Date{year: ym.Year, month: ym.Month, day: 1} }

// LastDay returns the last day of the month.
func (ym YearMonth) LastDay() Date { return NewDate(ym.Year, ym.Month+1, 0) }

// Contains reports whether d falls within the month.
func (ym YearMonth) Contains(d Date) bool { return d.year == ym.Year && d.month == ym.Month }

// String formats the month as "YYYY-MM".
func (ym YearMonth) String() string { return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month)) }

// Label formats the month for chat messages, e.g. "2025年2月".
func (ym YearMonth) Label() string { return fmt.Sprintf("%d年%d月", ym.Year, int(ym.Month)) }
