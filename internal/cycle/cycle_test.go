package cycle

import (
	"testing"
	"time"
)

func TestCurrent(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"january", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2025_01_A"},
		{"february", time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC), "2025_01_A"},
		{"march", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "2025_03_A"},
		{"december", time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC), "2025_11_A"},
		{"year boundary", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2026_01_A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Current(tt.now); got != tt.want {
				t.Errorf("Current(%v) = %q, want %q", tt.now, got, tt.want)
			}
		})
	}
}

func TestCurrentIsStableWithinWindow(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC)

	want := Current(start)
	for ts := start; ts.Before(end); ts = ts.Add(17 * time.Hour) {
		if got := Current(ts); got != want {
			t.Fatalf("cycle changed mid-window at %v: got %q, want %q", ts, got, want)
		}
	}
}

func TestCurrentUsesUTC(t *testing.T) {
	// 2025-03-01 00:30 UTC expressed in a timezone still west of the boundary.
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2025, 2, 28, 19, 30, 0, 0, loc)

	if got := Current(local); got != "2025_03_A" {
		t.Errorf("Current should normalize to UTC, got %q", got)
	}
}

func TestValid(t *testing.T) {
	valid := []string{"2025_01_A", "2025_11_A", "1999_07_A"}
	invalid := []string{"", "2025_02_A", "2025_13_A", "2025_01_B", "2025-01-A", "25_01_A"}

	for _, id := range valid {
		if !Valid(id) {
			t.Errorf("Valid(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if Valid(id) {
			t.Errorf("Valid(%q) = true, want false", id)
		}
	}
}

func TestStartEnd(t *testing.T) {
	now := time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)

	wantStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	if got := Start(now); !got.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", got, wantStart)
	}
	if got := End(now); !got.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", got, wantEnd)
	}
}
