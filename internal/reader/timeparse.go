package reader

import (
	"strings"
	"time"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/clock"
)

// pubDateLayouts covers RFC 822/1123/2822 dates as used by RSS, with and
// without the weekday and seconds, plus RFC 3339 as used by Atom.
var pubDateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04 MST",
	time.RFC3339,
}

// obsoleteZones maps the RFC 2822 named zones to their offsets. Other zone
// names parse with a zero offset.
var obsoleteZones = map[string]string{
	"UT":  "+0000",
	"GMT": "+0000",
	"Z":   "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// TimeParser converts feed timestamps to UTC instants.
type TimeParser struct {
	clock clock.Clock
}

// NewTimeParser creates a parser that falls back to clk for missing dates.
func NewTimeParser(clk clock.Clock) *TimeParser {
	return &TimeParser{clock: clk}
}

// Resolve returns parsed in UTC when the feed parser already produced an
// instant, and otherwise parses raw.
func (p *TimeParser) Resolve(parsed *time.Time, raw *string) time.Time {
	if parsed != nil && !parsed.IsZero() {
		return parsed.UTC()
	}
	return p.Parse(raw)
}

// Parse returns raw as a UTC instant, or the current time when raw is nil,
// blank or not a recognized date.
func (p *TimeParser) Parse(raw *string) time.Time {
	if raw == nil {
		return p.now()
	}

	value := strings.TrimSpace(*raw)
	if value == "" {
		return p.now()
	}
	value = numericZone(value)

	for _, layout := range pubDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC()
		}
	}

	return p.now()
}

// numericZone rewrites a trailing named zone to its numeric offset.
func numericZone(value string) string {
	i := strings.LastIndexByte(value, ' ')
	if i < 0 {
		return value
	}
	if offset, ok := obsoleteZones[strings.ToUpper(value[i+1:])]; ok {
		return value[:i+1] + offset
	}
	return value
}

func (p *TimeParser) now() time.Time {
	return p.clock.Now().UTC()
}
