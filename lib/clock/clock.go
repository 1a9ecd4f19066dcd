package clock

import (
	"time"
)

const layout = "2006-01-02T15:04:05Z"

func Now() string {
	return Format(time.Now())
}

// Format renders t as an ISO-8601 UTC timestamp with second precision
func Format(t time.Time) string {
	return t.UTC().Format(layout)
}
