package timeutil

import (
	"time"
)

// Factory is the factory floor location (defaults to America/Sao_Paulo, UTC-3)
var Factory *time.Location

func init() {
	var err error
	Factory, err = time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		// Fallback: fixed zone if tzdata is not available
		Factory = time.FixedZone("BRT", -3*60*60)
	}
}

// SetLocation switches the factory location, keeping the current one if name is unknown
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Factory = loc
	return nil
}

// Now returns the current time in the factory location
func Now() time.Time {
	return time.Now().In(Factory)
}

// FormatFactory formats a time in the factory location using the given layout
func FormatFactory(t time.Time, layout string) string {
	return t.In(Factory).Format(layout)
}

// StartOfDay returns 00:00:00 of the factory day containing t
func StartOfDay(t time.Time) time.Time {
	local := t.In(Factory)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Factory)
}

// EndOfDay returns 23:59:59.999999999 of the factory day containing t
func EndOfDay(t time.Time) time.Time {
	local := t.In(Factory)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, Factory)
}

// Common layouts
const (
	DateLayout    = "2006-01-02"
	ClockLayout   = "15:04"
	DisplayLayout = "02/01/2006 15:04"
)
