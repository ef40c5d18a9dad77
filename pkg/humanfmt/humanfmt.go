// Package humanfmt formats byte counts, item counts and durations for logs.
package humanfmt

import (
	"fmt"
	"strconv"
	"time"
)

type unit struct {
	size   float64
	suffix string
}

// IEC binary units, largest first.
var byteUnits = []unit{
	{1 << 40, "TiB"},
	{1 << 30, "GiB"},
	{1 << 20, "MiB"},
	{1 << 10, "KiB"},
}

// Decimal count units, largest first.
var countUnits = []unit{
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// Bytes formats a byte count using IEC units, e.g. "12.34 MiB".
func Bytes(b int64) string {
	for _, u := range byteUnits {
		if float64(b) >= u.size {
			return fmt.Sprintf("%.2f %s", float64(b)/u.size, u.suffix)
		}
	}
	return fmt.Sprintf("%d B", b)
}

// Count formats an item count, e.g. "1.23M", "456.00K", "789".
func Count(n int64) string {
	for _, u := range countUnits {
		if float64(n) >= u.size {
			return fmt.Sprintf("%.2f%s", float64(n)/u.size, u.suffix)
		}
	}
	return strconv.FormatInt(n, 10)
}

// Duration formats a duration compactly: "1m30s", "2.50s", "45.6ms".
func Duration(d time.Duration) string {
	switch {
	case d < 0:
		return d.String()
	case d >= time.Minute:
		return d.Truncate(time.Second).String()
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

// Throughput formats bytes over d as a rate, e.g. "85.20 MiB/s".
func Throughput(bytes int64, d time.Duration) string {
	if d <= 0 {
		return "∞"
	}
	return Bytes(int64(float64(bytes)/d.Seconds())) + "/s"
}
