package datetime

import (
	"testing"
	"time"
)

var today = time.Date(2025, 1, 10, 15, 4, 0, 0, time.UTC) // friday

func TestProviderDate(t *testing.T) {
	if got := ProviderDate(today); got != "10.01.2025 00:00" {
		t.Fatalf("expected 10.01.2025 00:00, got %s", got)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-14", time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC)},
		{"14.01.2025", time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC)},
		{"14.1.", time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC)},
		{"5. 1.", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"dnes", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"Zajtra", time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)},
		{"pozajtra", time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)},
		{"v stredu", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"piatok", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"vo štvrtok", time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in, today)
		if err != nil {
			t.Fatalf("ParseDate(%q): unexpected error %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "hocikedy", "31.02.2025", "13.13."} {
		if _, err := ParseDate(bad, today); err == nil {
			t.Fatalf("ParseDate(%q): expected error", bad)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]int{
		"09:00":    540,
		"9:00":     540,
		"9.30":     570,
		"14:30:00": 870,
		"14":       840,
		"o 10":     600,
		"2:30 PM":  870,
		"12:15 am": 15,
	}
	for in, want := range cases {
		got, err := ParseTimeOfDay(in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseTimeOfDay(%q) = %d, want %d", in, got, want)
		}
	}
	for _, bad := range []string{"", "25:00", "10:75", "ráno"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("ParseTimeOfDay(%q): expected error", bad)
		}
	}
}

func TestNormalizeTime(t *testing.T) {
	got, err := NormalizeTime("9.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "09:05" {
		t.Fatalf("expected 09:05, got %s", got)
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween(today, today.AddDate(0, 0, 4).Add(-10*time.Hour)); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
	if got := DaysBetween(today, today.AddDate(0, 0, -2)); got != -2 {
		t.Fatalf("expected -2, got %d", got)
	}
}

func TestDayPhrase(t *testing.T) {
	cases := []struct {
		offset int
		want   string
	}{
		{0, "dnes"},
		{1, "zajtra"},
		{2, "pozajtra, v nedeľu 12. januára"},
		{3, "o 3 dni, v pondelok 13. januára"},
		{6, "o 6 dní, vo štvrtok 16. januára"},
	}
	for _, tc := range cases {
		d := today.AddDate(0, 0, tc.offset)
		if got := DayPhrase(tc.offset, d); got != tc.want {
			t.Fatalf("DayPhrase(%d) = %q, want %q", tc.offset, got, tc.want)
		}
	}
}

func TestSlovakDate(t *testing.T) {
	if got := SlovakDate(today); got != "piatok 10. januára" {
		t.Fatalf("unexpected %q", got)
	}
}
