package stamp

import (
	"testing"
	"time"
)

func TestFromEpoch(t *testing.T) {
	tests := []struct {
		name     string
		epoch    int64
		expected string
	}{
		{name: "unix epoch", epoch: 0, expected: "1970-01-01 00:00:00"},
		{name: "london sunrise", epoch: 1735689600 + 8*3600 + 6*60, expected: "2025-01-01 08:06:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s := FromEpoch(tt.epoch, time.UTC); s != tt.expected {
				t.Errorf("FromEpoch(%d) expected %q, got %q", tt.epoch, tt.expected, s)
			}
		})
	}
}

func TestFromEpochInTimezone(t *testing.T) {
	loc, err := LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Fatal(err)
	}

	expected := "2025-01-01 09:06:00"
	if s := FromEpoch(1735689600+8*3600+6*60, loc); s != expected {
		t.Errorf("FromEpoch() expected %q, got %q", expected, s)
	}
}

func TestFormatKeepsLocation(t *testing.T) {
	loc, err := LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Fatal(err)
	}

	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if s := Format(ts); s != "2025-01-01 12:00:00" {
		t.Errorf("Format() expected UTC wall clock, got %q", s)
	}
	if s := Format(ts.In(loc)); s != "2025-01-01 13:00:00" {
		t.Errorf("Format() expected Stockholm wall clock, got %q", s)
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	if err != nil {
		t.Fatal(err)
	}
	if loc != time.Local {
		t.Errorf("expected local time for empty timezone, got %s", loc)
	}

	if _, err := LoadLocation("Not/AZone"); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
