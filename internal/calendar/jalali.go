// Package calendar converts Gregorian dates into Solar Hijri (Jalali) display
// strings. Only the Gregorian to Jalali direction is needed by the dashboard.
package calendar

import (
	"fmt"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// Date is a day in the Jalali calendar.
type Date struct {
	Year  int
	Month int
	Day   int
}

// FromGregorian converts the calendar day of t (in t's own location).
func FromGregorian(t time.Time) Date {
	p := ptime.New(t)
	return Date{Year: p.Year(), Month: int(p.Month()), Day: p.Day()}
}

// Format renders the date as YYYY<sep>MM<sep>DD.
func (d Date) Format(sep string) string {
	return fmt.Sprintf("%04d%s%02d%s%02d", d.Year, sep, d.Month, sep, d.Day)
}

// MonthLabel renders the year and month as YYYY-MM.
func (d Date) MonthLabel() string {
	return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
}

// DayLabel is the dash separated label used on chart axes.
func DayLabel(t time.Time) string {
	return FromGregorian(t).Format("-")
}

// MonthLabel is the label used for monthly trend buckets.
func MonthLabel(t time.Time) string {
	return FromGregorian(t).MonthLabel()
}

// DisplayDate is the slash separated label used on records.
func DisplayDate(t time.Time) string {
	return FromGregorian(t).Format("/")
}
