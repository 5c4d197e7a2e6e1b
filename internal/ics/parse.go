package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/go-ap/errors"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// Parse turns the VEVENTs of an ICS payload into events keyed by their start
// day in loc.
//
//   - SUMMARY becomes the title, UID the event ID.
//   - DTSTART gives the day and start time, DTEND the end time. An all-day
//     event (VALUE=DATE or no time part) runs 00:00-00:00.
//   - RRULE is ignored: only the first occurrence is kept.
//   - A VEVENT without a usable DTSTART is skipped; the rest still parse.
func Parse(body []byte, loc *time.Location) ([]model.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.Newf("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Annotatef(err, "ics parse failed")
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve, loc)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "uid", ve.Id(), "reason", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	var out model.Event
	out.ID = ve.Id()

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}

	start, allDay, err := propTime(ve, ical.ComponentPropertyDtStart, loc)
	if err != nil {
		return out, err
	}
	out.Date = model.KeyFor(start)
	if !allDay {
		out.Start = model.ClockOf(start)
		if end, _, err := propTime(ve, ical.ComponentPropertyDtEnd, loc); err == nil {
			out.End = model.ClockOf(end)
		} else {
			out.End = out.Start
		}
	}

	if ve.GetProperty(ical.ComponentPropertyRrule) != nil {
		appLog.Debug("ics recurrence ignored", "uid", out.ID, "date", out.Date)
	}
	return out, nil
}

// propTime reads a DATE or DATE-TIME property and converts it into loc.
// UTC and TZID forms keep their instant; floating times are read in loc.
func propTime(ve *ical.VEvent, prop ical.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	p := ve.GetProperty(prop)
	if p == nil || strings.TrimSpace(p.Value) == "" {
		return time.Time{}, false, errors.Newf("missing %s", prop)
	}
	val := strings.TrimSpace(p.Value)

	if isDateValue(p.ICalParameters, val) {
		t, err := time.ParseInLocation("20060102", val, loc)
		if err != nil {
			return time.Time{}, false, errors.Annotatef(err, "bad %s date", prop)
		}
		return t, true, nil
	}

	if strings.HasSuffix(val, "Z") {
		t, err := time.Parse("20060102T150405Z", val)
		if err != nil {
			return time.Time{}, false, errors.Annotatef(err, "bad %s", prop)
		}
		return t.In(loc), false, nil
	}

	if tzs, ok := p.ICalParameters[string(ical.ParameterTzid)]; ok && len(tzs) > 0 {
		if zone, err := time.LoadLocation(tzs[0]); err == nil {
			t, err := time.ParseInLocation("20060102T150405", val, zone)
			if err != nil {
				return time.Time{}, false, errors.Annotatef(err, "bad %s", prop)
			}
			return t.In(loc), false, nil
		}
		appLog.Debug("ics unknown TZID, reading as floating time", "tzid", tzs[0])
	}

	t, err := time.ParseInLocation("20060102T150405", val, loc)
	if err != nil {
		return time.Time{}, false, errors.Annotatef(err, "bad %s", prop)
	}
	return t, false, nil
}

func isDateValue(params map[string][]string, val string) bool {
	if vs, ok := params[string(ical.ParameterValue)]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(val, "T")
}
