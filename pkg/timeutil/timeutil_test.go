package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2026-01-21")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-21", FormatDate(parsed))

	_, err = ParseDate("2026/01/21")
	assert.Error(t, err)
	_, err = ParseDate("2026-1-21")
	assert.Error(t, err)
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2026-01-21":            "2026-01-21",
		"'2026-01-21":           "2026-01-21",
		"2026-01-21T00:00:00Z":  "2026-01-21",
		"1899-12-30T00:00:00Z":  "",
		"2026-01-21 00:00:00":   "2026-01-21",
		"not a date":            "",
		"":                      "",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, NormalizeDate(input), "input %q", input)
	}
}

func TestMondayOf(t *testing.T) {
	// 2026-01-21 is a Wednesday, 2026-01-25 a Sunday.
	wed, _ := ParseDate("2026-01-21")
	assert.Equal(t, "2026-01-19", FormatDate(MondayOf(wed)))

	sun, _ := ParseDate("2026-01-25")
	assert.Equal(t, "2026-01-19", FormatDate(MondayOf(sun)))

	mon, _ := ParseDate("2026-01-19")
	assert.Equal(t, "2026-01-19", FormatDate(MondayOf(mon)))
}

func TestWeekdayName(t *testing.T) {
	wed, _ := ParseDate("2026-01-21")
	assert.Equal(t, "水", WeekdayName(wed))
	sun := wed.AddDate(0, 0, 4)
	require.Equal(t, time.Sunday, sun.Weekday())
	assert.Equal(t, "日", WeekdayName(sun))
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("14:40")
	require.NoError(t, err)
	assert.Equal(t, 14*60+40, minutes)

	minutes, err = ParseClock("9:05")
	require.NoError(t, err)
	assert.Equal(t, 9*60+5, minutes)

	for _, bad := range []string{"24:00", "12:60", "1440", "12:5", ""} {
		_, err := ParseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestMinutesBetween(t *testing.T) {
	in, _ := ParseClock("14:40")
	out, _ := ParseClock("16:10")
	assert.Equal(t, 90, MinutesBetween(in, out))

	// Overnight shift: 23:50 in, 00:10 out is 20 minutes.
	in, _ = ParseClock("23:50")
	out, _ = ParseClock("00:10")
	assert.Equal(t, 20, MinutesBetween(in, out))

	assert.Equal(t, 0, MinutesBetween(in, in))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "16:10", FormatClock(16*60+10))
	assert.Equal(t, "00:10", FormatClock(10))
	assert.Equal(t, "23:50", FormatClock(-10))
}
