package calendar

import (
	"encoding/json"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestParseDate_RejectsNonexistentDay(t *testing.T) {
	for _, s := range []string{"2024-02-30", "2023-02-29", "2024-13-01", "2024-1-5", "15/12/2024", ""} {
		if _, err := ParseDate(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestNewDate_Validation(t *testing.T) {
	if _, err := NewDate(2024, time.February, 29); err != nil {
		t.Fatalf("leap day should be valid: %v", err)
	}
	if _, err := NewDate(2023, time.February, 29); err == nil {
		t.Fatalf("expected error for 2023-02-29")
	}
	if (Date{}).IsValid() {
		t.Fatalf("zero date must be invalid")
	}
}

func TestDate_AddMonthsClamps(t *testing.T) {
	cases := []struct {
		start  string
		months int
		want   string
	}{
		{"2024-01-31", 6, "2024-07-31"},
		{"2024-08-31", 1, "2024-09-30"},
		{"2024-08-31", 6, "2025-02-28"},
		{"2023-08-31", 6, "2024-02-29"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-12-15", 6, "2025-06-15"},
		{"2024-11-30", 3, "2025-02-28"},
		{"2025-03-31", -1, "2025-02-28"},
		{"2025-01-15", -13, "2023-12-15"},
	}
	for _, c := range cases {
		got := mustDate(t, c.start).AddMonths(c.months)
		if got.String() != c.want {
			t.Fatalf("%s + %d months: expected %s, got %s", c.start, c.months, c.want, got)
		}
	}
}

func TestDate_AddDaysCrossesMonthAndYear(t *testing.T) {
	got := mustDate(t, "2024-12-29").AddDays(7)
	if got.String() != "2025-01-05" {
		t.Fatalf("expected 2025-01-05, got %s", got)
	}
}

func TestDate_Compare(t *testing.T) {
	a := mustDate(t, "2024-12-15")
	b := mustDate(t, "2024-12-22")
	if !a.Before(b) || !b.After(a) || a.Compare(a) != 0 {
		t.Fatalf("unexpected ordering between %s and %s", a, b)
	}
	if !mustDate(t, "2024-12-31").Before(mustDate(t, "2025-01-01")) {
		t.Fatalf("year boundary ordering is broken")
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	in := SlotKey{Date: mustDate(t, "2024-12-15"), Slot: SlotMorning}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"date":"2024-12-15","timeSlot":"morning"}` {
		t.Fatalf("unexpected json: %s", raw)
	}

	var out SlotKey
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("expected %v, got %v", in, out)
	}

	if err := json.Unmarshal([]byte(`{"date":"2024-02-31"}`), &out); err == nil {
		t.Fatalf("expected error for invalid date in json")
	}
}

func TestMonthRange(t *testing.T) {
	first, last, err := MonthRange(2024, time.February)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.String() != "2024-02-01" || last.String() != "2024-02-29" {
		t.Fatalf("unexpected range %s..%s", first, last)
	}
	if _, _, err := MonthRange(2024, 13); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

func TestOccupancy_KeysAreChronological(t *testing.T) {
	occ := NewOccupancy(
		SlotKey{Date: mustDate(t, "2024-12-22"), Slot: SlotMorning},
		SlotKey{Date: mustDate(t, "2024-12-15"), Slot: SlotAfternoon},
		SlotKey{Date: mustDate(t, "2024-12-15"), Slot: SlotMorning},
	)
	keys := occ.Keys()
	want := []string{"2024-12-15/morning", "2024-12-15/afternoon", "2024-12-22/morning"}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], k)
		}
	}
}
