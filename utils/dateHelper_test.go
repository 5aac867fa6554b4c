package utils

import (
	"strings"
	"testing"
	"time"
)

func mustDate(t *testing.T, y int, m time.Month, d int) time.Time {
	t.Helper()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseChangeDate_AcceptsPaddedDMY(t *testing.T) {
	got, err := ParseChangeDate("15/01/2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(mustDate(t, 2024, time.January, 15)) {
		t.Fatalf("got %v", got)
	}

	// Round-trip to the same calendar date.
	if FormatChangeDate(got) != "15/01/2024" {
		t.Fatalf("round-trip produced %q", FormatChangeDate(got))
	}
}

func TestParseChangeDate_RejectsYearFirst(t *testing.T) {
	_, err := ParseChangeDate("2024-01-15")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "year-first") {
		t.Fatalf("error %q does not name the detected format", err)
	}
}

func TestParseChangeDate_RejectsDashSeparated(t *testing.T) {
	_, err := ParseChangeDate("15-01-2024")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "dash-separated") {
		t.Fatalf("error %q does not name the detected format", err)
	}
}

func TestParseChangeDate_RejectsUnpadded(t *testing.T) {
	_, err := ParseChangeDate("5/1/2024")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "zero-padded") {
		t.Fatalf("error %q does not name the padding problem", err)
	}
}

func TestParseChangeDate_DetectsAmericanOrdering(t *testing.T) {
	// 01/25 can only be MM/DD with the components swapped.
	_, err := ParseChangeDate("01/25/2024")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "American") {
		t.Fatalf("error %q does not name the detected format", err)
	}
}

func TestParseChangeDate_RejectsImpossibleDay(t *testing.T) {
	if _, err := ParseChangeDate("30/02/2024"); err == nil {
		t.Fatal("expected error for 30 February")
	}
	// 2024 is a leap year, 2023 is not.
	if _, err := ParseChangeDate("29/02/2024"); err != nil {
		t.Fatalf("29/02/2024 should parse: %v", err)
	}
	if _, err := ParseChangeDate("29/02/2023"); err == nil {
		t.Fatal("expected error for 29/02/2023")
	}
}

func TestParseChangeDate_RejectsYearOutOfRange(t *testing.T) {
	if _, err := ParseChangeDate("15/01/1899"); err == nil {
		t.Fatal("expected error for year 1899")
	}
	if _, err := ParseChangeDate("15/01/2101"); err == nil {
		t.Fatal("expected error for year 2101")
	}
}

func TestParseExcelSerialDate(t *testing.T) {
	// Serial 45292 is 2024-01-01.
	got, err := ParseExcelSerialDate(45292)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(mustDate(t, 2024, time.January, 1)) {
		t.Fatalf("got %v", got)
	}

	if _, err := ParseExcelSerialDate(0); err == nil {
		t.Fatal("expected error for serial 0")
	}
	if _, err := ParseExcelSerialDate(200000); err == nil {
		t.Fatal("expected error for out-of-range serial")
	}
}

func TestComputeFilterExpiry_NoRollover(t *testing.T) {
	got := ComputeFilterExpiry(mustDate(t, 2024, time.January, 15))
	if !got.Equal(mustDate(t, 2024, time.April, 15)) {
		t.Fatalf("got %v, want 2024-04-15", got)
	}
}

func TestComputeFilterExpiry_RolloverToFirst(t *testing.T) {
	// November 30 + 3 months overflows February; the rule lands on
	// March 1, not the clamped February 28/29.
	got := ComputeFilterExpiry(mustDate(t, 2024, time.November, 30))
	if !got.Equal(mustDate(t, 2025, time.March, 1)) {
		t.Fatalf("got %v, want 2025-03-01", got)
	}

	got = ComputeFilterExpiry(mustDate(t, 2024, time.January, 31))
	if !got.Equal(mustDate(t, 2024, time.May, 1)) {
		t.Fatalf("got %v, want 2024-05-01", got)
	}
}

func TestParseLooseBool(t *testing.T) {
	for _, token := range []string{"YES", "yes", "TRUE", "true", "1", "Y", "y"} {
		if !ParseLooseBool(token) {
			t.Fatalf("%q should parse true", token)
		}
	}
	for _, token := range []string{"", "NO", "false", "0", "maybe"} {
		if ParseLooseBool(token) {
			t.Fatalf("%q should parse false", token)
		}
	}
}
