// Package export renders extracted events as an iCalendar feed so a
// parsed schedule can be imported into any calendar client directly,
// without the hosted calendar integration.
package export

import (
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"gomical/internal/eventid"
	"gomical/internal/model"
)

const (
	productID = "-//gomical//schedule export//EN"
	uidDomain = "gomical"

	dateLayout = "2006-01-02"
)

// BuildICS serializes events into a VCALENDAR of all-day VEVENTs.
// calName becomes X-WR-CALNAME when non-empty. Event UIDs reuse the
// content-addressed key, so repeated exports of the same schedule
// produce the same UIDs and importing clients dedupe instead of
// duplicating.
func BuildICS(calName string, events []model.CalendarEvent) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if calName != "" {
		cal.SetXWRCalName(calName)
	}

	now := time.Now().UTC()

	for _, ev := range events {
		start, err := time.Parse(dateLayout, ev.Date)
		if err != nil {
			return "", fmt.Errorf("event %q: bad date %q: %w", ev.Title, ev.Date, err)
		}
		if ev.Title == "" {
			return "", errors.New("event with empty title")
		}

		uid := fmt.Sprintf("%s@%s", eventid.ComputeKey(ev.Date, ev.Title), uidDomain)

		ve := cal.AddEvent(uid)
		ve.SetDtStampTime(now)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		// All-day events: DTEND is exclusive, so a one-day event ends on
		// the following date.
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(start.AddDate(0, 0, 1))
	}

	return cal.Serialize(), nil
}
