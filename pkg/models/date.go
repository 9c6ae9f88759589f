package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Date is a calendar date without time of day. It is stored as YYYY-MM-DD text.
type Date struct {
	civil.Date
}

// MaxDate is the last date that fits the YYYY-MM-DD column format
var MaxDate = Date{civil.Date{Year: 9999, Month: time.December, Day: 31}}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date{civil.DateOf(t)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{d}, nil
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{d.Date.AddDays(n)}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Date.Before(other.Date)
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Date.After(other.Date)
}

// Scan implements sql.Scanner. SQLite hands back text, postgres DATE columns come back as time.Time.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = Date{civil.DateOf(v)}
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		return fmt.Errorf("date column is NULL")
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parse(s string) error {
	// sqlite may hand back a full timestamp if the column was written by hand
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if !d.IsValid() || d.Year < 1 || d.After(MaxDate) {
		return nil, fmt.Errorf("invalid date %v", d.Date)
	}
	return d.String(), nil
}
