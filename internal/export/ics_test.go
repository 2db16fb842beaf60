package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomical/internal/eventid"
	"gomical/internal/model"
)

func TestBuildICS_AllDayEvents(t *testing.T) {
	out, err := BuildICS("Garbage schedule", []model.CalendarEvent{
		{Date: "2026-04-01", Title: "Burnable", Description: "before 8am"},
		{Date: "2026-04-03", Title: "Plastic"},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "END:VCALENDAR")
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "X-WR-CALNAME:Garbage schedule")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))

	assert.Contains(t, out, "SUMMARY:Burnable")
	assert.Contains(t, out, "DESCRIPTION:before 8am")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20260401")
	// DTEND is exclusive for all-day events.
	assert.Contains(t, out, "DTEND;VALUE=DATE:20260402")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20260403")
}

func TestBuildICS_StableUIDs(t *testing.T) {
	events := []model.CalendarEvent{{Date: "2026-04-01", Title: "Burnable"}}

	first, err := BuildICS("", events)
	require.NoError(t, err)
	second, err := BuildICS("", events)
	require.NoError(t, err)

	uid := "UID:" + eventid.ComputeKey("2026-04-01", "Burnable") + "@gomical"
	assert.Contains(t, first, uid)
	assert.Contains(t, second, uid)
}

func TestBuildICS_RejectsBadInput(t *testing.T) {
	_, err := BuildICS("", []model.CalendarEvent{{Date: "April 1st", Title: "Burnable"}})
	assert.Error(t, err)

	_, err = BuildICS("", []model.CalendarEvent{{Date: "2026-04-01"}})
	assert.Error(t, err)
}

func TestBuildICS_EmptyInput(t *testing.T) {
	out, err := BuildICS("", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
