package models

import "time"

// TimestampLayout is the local-zone layout of every persisted timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

const DateLayout = "20060102"

func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(TimestampLayout)
}

func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, loc)
}

// FormatDate renders YYYYMMDD as YYYY/MM/DD, returning the input unchanged
// when it is not eight characters long.
func FormatDate(d string) string {
	if len(d) != 8 {
		return d
	}
	return d[:4] + "/" + d[4:6] + "/" + d[6:]
}

// FormatShortDate renders YYYYMMDD as YY.MM.DD.
func FormatShortDate(d string) string {
	if len(d) != 8 {
		return d
	}
	return d[2:4] + "." + d[4:6] + "." + d[6:]
}
