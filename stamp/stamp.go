package stamp

import (
	"fmt"
	"time"
)

// Layout is used for every timestamp stored as text in the weather table.
const Layout = "2006-01-02 15:04:05"

// LoadLocation resolves the configured timezone. An empty name means local time.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %v", timezone, err)
	}
	return loc, nil
}

// Format renders t in its own location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// FromEpoch formats unix seconds, as delivered by the weather provider.
func FromEpoch(sec int64, loc *time.Location) string {
	return Format(time.Unix(sec, 0).In(loc))
}
