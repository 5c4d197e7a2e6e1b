package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

const productID = "-//monthcal//Month Calendar//EN"

// Export serializes events as a VCALENDAR. Times are placed on each event's
// day in loc; events with a bad date are left out.
//
// DTEND always lies after DTSTART: a 00:00-00:00 event is written as an
// all-day DATE pair, an end before the start falls on the next day, and a
// zero-length timed event gets no DTEND.
func Export(events []model.Event, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		start, err := ev.Start.On(ev.Date, loc)
		if err != nil {
			appLog.Warn("ics export skipped event", "id", ev.ID, "date", ev.Date)
			continue
		}
		end, _ := ev.End.On(ev.Date, loc)

		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetSummary(ev.Title)
		switch {
		case ev.Start == 0 && ev.End == 0:
			ve.SetAllDayStartAt(start)
			ve.SetAllDayEndAt(start.AddDate(0, 0, 1))
		case ev.End == ev.Start:
			ve.SetStartAt(start)
		default:
			if ev.End < ev.Start {
				end = end.AddDate(0, 0, 1)
			}
			ve.SetStartAt(start)
			ve.SetEndAt(end)
		}
	}

	return cal.Serialize()
}
