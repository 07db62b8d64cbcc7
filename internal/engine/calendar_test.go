package engine_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-bot/internal/config"
	"github.com/tartampluch/birthday-bot/internal/engine"
)

func TestBuildCalendar_YearRange(t *testing.T) {
	// Current Date: 2025-01-01. Birth: 1990-12-31.
	records := []engine.BirthdayRecord{
		{Name: "Range Test", BirthDate: date(1990, 12, 31), Wishlist: "Tea"},
	}

	ics, err := engine.BuildCalendar(records, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	icsStr := string(ics)
	assert.Contains(t, icsStr, "BEGIN:VCALENDAR")
	assert.Contains(t, icsStr, "DTSTART;VALUE=DATE:20241231", "Should include previous year")
	assert.Contains(t, icsStr, "DTSTART;VALUE=DATE:20251231", "Should include current year")
	assert.Contains(t, icsStr, "DTSTART;VALUE=DATE:20261231", "Should include next year")
	assert.Equal(t, 3, strings.Count(icsStr, "BEGIN:VEVENT"))
	assert.Contains(t, icsStr, "SUMMARY:Birthday: Range Test (35)")
	assert.Contains(t, icsStr, "DESCRIPTION:Tea")
}

func TestBuildCalendar_AlarmsMatchTiers(t *testing.T) {
	records := []engine.BirthdayRecord{record("Alarm Test", date(1990, 1, 1))}

	ics, err := engine.BuildCalendar(records, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	icsStr := string(ics)
	assert.Equal(t, 9, strings.Count(icsStr, "BEGIN:VALARM"), "Three alarms for each of the three events")
	for _, trigger := range config.AlarmTriggers {
		assert.Contains(t, icsStr, "TRIGGER:"+trigger)
	}
	assert.Contains(t, icsStr, "ACTION:DISPLAY")
	assert.NotContains(t, icsStr, "DESCRIPTION:"+config.WishlistNotProvided, "The sentinel is not a wishlist")
}

func TestBuildCalendar_BabyBornThisYear(t *testing.T) {
	records := []engine.BirthdayRecord{record("Baby", date(2025, 5, 1))}

	summary := func(name string, age int) string {
		if age == 0 {
			return fmt.Sprintf("Birthday: %s (Birth)", name)
		}
		return fmt.Sprintf("Birthday: %s (%d)", name, age)
	}

	ics, err := engine.BuildCalendar(records, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), summary)
	require.NoError(t, err)

	icsStr := string(ics)
	assert.NotContains(t, icsStr, "DTSTART;VALUE=DATE:20240501", "Should NOT generate event before birth")
	assert.Contains(t, icsStr, "SUMMARY:Birthday: Baby (Birth)")
	assert.Contains(t, icsStr, "SUMMARY:Birthday: Baby (1)")
	assert.Equal(t, 2, strings.Count(icsStr, "BEGIN:VEVENT"))
}

func TestBuildCalendar_LeapDayMatchesResolve(t *testing.T) {
	leapling := record("Leap", date(2000, 2, 29))
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	ics, err := engine.BuildCalendar([]engine.BirthdayRecord{leapling}, now, nil)
	require.NoError(t, err)

	occ := engine.Resolve(leapling, now)
	assert.Contains(t, string(ics), "DTSTART;VALUE=DATE:"+occ.NextDate.Format("20060102"))
	assert.Contains(t, string(ics), "DTSTART;VALUE=DATE:20240229")
}

func TestBuildCalendar_Empty(t *testing.T) {
	ics, err := engine.BuildCalendar(nil, time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(ics))
}
