package db

import "time"

// Timestamps are stored as UTC text so SQLite's date/time functions can read them.
const sqlTimeFormat = "2006-01-02 15:04:05"

// timeFormats are the forms a stored timestamp can come back in: the text we
// write, or RFC 3339 when the driver hands a DATETIME column back as time.Time.
var timeFormats = []string{
	sqlTimeFormat,
	time.RFC3339Nano,
	time.RFC3339,
}

func parseTimeString(s string) (time.Time, bool) {
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
