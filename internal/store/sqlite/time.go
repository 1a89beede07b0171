package sqlite

import (
	"fmt"
	"time"
)

// SQLite has no native datetime type; we store RFC3339 TEXT.
const timeLayout = "2006-01-02T15:04:05.999999999Z"

// Stubbed in tests that assert on stored timestamps.
var timeNow = time.Now

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
