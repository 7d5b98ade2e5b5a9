package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFactoryDayBounds(t *testing.T) {
	// 01:30 UTC is still the previous evening on the factory floor
	instant := time.Date(2026, 3, 11, 1, 30, 0, 0, time.UTC)
	local := instant.In(Factory)

	start := StartOfDay(instant)
	end := EndOfDay(instant)

	assert.Equal(t, local.Day(), start.Day())
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, local.Day(), end.Day())
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.Equal(t, Factory, end.Location())
	assert.Equal(t, time.Nanosecond, start.AddDate(0, 0, 1).Sub(end))
	assert.False(t, instant.Before(start))
	assert.False(t, instant.After(end))
}
