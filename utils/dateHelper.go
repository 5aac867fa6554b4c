package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Filter-change dates arrive as text in exactly one accepted format:
// zero-padded DD/MM/YYYY. Everything else is rejected with a diagnostic
// naming the format the input looks like, so upload errors are fixable
// without guessing.

const (
	StorageDateLayout = "2006-01-02"
	ChangeDateLayout  = "02/01/2006"

	minChangeYear = 1900
	maxChangeYear = 2100
)

var (
	yearFirstPattern  = regexp.MustCompile(`^\d{4}[-/]\d{1,2}[-/]\d{1,2}$`)
	dashDMYPattern    = regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`)
	slashDMYPattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	monthDaysByLength = [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
)

// ParseChangeDate parses a DD/MM/YYYY date string. The error message
// names the detected alternate format for the confusable inputs.
func ParseChangeDate(text string) (time.Time, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}

	if yearFirstPattern.MatchString(trimmed) {
		return time.Time{}, fmt.Errorf("invalid date %q: year-first format (YYYY-MM-DD) is not accepted, use DD/MM/YYYY", trimmed)
	}
	if dashDMYPattern.MatchString(trimmed) {
		return time.Time{}, fmt.Errorf("invalid date %q: dash-separated format (DD-MM-YYYY) is not accepted, use DD/MM/YYYY", trimmed)
	}

	m := slashDMYPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected DD/MM/YYYY", trimmed)
	}
	if len(m[1]) != 2 || len(m[2]) != 2 {
		return time.Time{}, fmt.Errorf("invalid date %q: day and month must be zero-padded (DD/MM/YYYY)", trimmed)
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if month > 12 {
		// A month above 12 with a plausible day in front is the
		// American MM/DD ordering with the components swapped.
		if day <= 12 {
			return time.Time{}, fmt.Errorf("invalid date %q: looks like American MM/DD/YYYY ordering, use DD/MM/YYYY", trimmed)
		}
		return time.Time{}, fmt.Errorf("invalid date %q: month %d out of range", trimmed, month)
	}
	if year < minChangeYear || year > maxChangeYear {
		return time.Time{}, fmt.Errorf("invalid date %q: year %d out of range [%d, %d]", trimmed, year, minChangeYear, maxChangeYear)
	}
	if day < 1 || day > daysInMonth(year, month) {
		return time.Time{}, fmt.Errorf("invalid date %q: day %d does not exist in month %d", trimmed, day, month)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

func daysInMonth(year int, month int) int {
	if month == 2 && !isLeapYear(year) {
		return 28
	}
	return monthDaysByLength[month]
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// excelEpoch is the zero point of spreadsheet serial dates
// (serial 1 = 1900-01-01, with the historical leap-year bug baked in).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseExcelSerialDate converts a spreadsheet numeric serial date.
func ParseExcelSerialDate(serial float64) (time.Time, error) {
	if serial <= 0 {
		return time.Time{}, fmt.Errorf("invalid spreadsheet serial date %v", serial)
	}
	d := excelEpoch.AddDate(0, 0, int(serial))
	if d.Year() < minChangeYear || d.Year() > maxChangeYear {
		return time.Time{}, fmt.Errorf("spreadsheet serial date %v: year %d out of range [%d, %d]", serial, d.Year(), minChangeYear, maxChangeYear)
	}
	return d, nil
}

// ComputeFilterExpiry adds 3 calendar months to the install date. When
// the target month is too short for the install day, the result rolls
// to the 1st of the month the overflow lands in, not the clamped last
// day. 30/11 + 3 months = 01/03, not 28/02 or 02/03.
func ComputeFilterExpiry(installedOn time.Time) time.Time {
	candidate := installedOn.AddDate(0, 3, 0)
	if candidate.Day() != installedOn.Day() {
		return time.Date(candidate.Year(), candidate.Month(), 1, 0, 0, 0, 0, installedOn.Location())
	}
	return candidate
}

func FormatStorageDate(t time.Time) string {
	return t.Format(StorageDateLayout)
}

func FormatChangeDate(t time.Time) string {
	return t.Format(ChangeDateLayout)
}

// LooksLikeDate reports whether a string parses as one of the date
// shapes seen in this system. Used by the audit diff to compare dates
// at day granularity.
func LooksLikeDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{StorageDateLayout, ChangeDateLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
