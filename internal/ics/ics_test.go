package ics

import (
	"strings"
	"testing"
	"time"

	"monthcal/internal/model"
)

var plusTwo = time.FixedZone("Plus2", 2*3600)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup-1\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"DTSTART:20240305T070000Z\r\n" +
	"DTEND:20240305T071500Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday-1\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Holiday\r\n" +
	"DTSTART;VALUE=DATE:20240306\r\n" +
	"DTEND;VALUE=DATE:20240307\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:late-1\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Late call\r\n" +
	"DTSTART:20240306T230000Z\r\n" +
	"DTEND:20240306T233000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:broken-1\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:No start\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParse(t *testing.T) {
	events, err := Parse([]byte(sampleICS), plusTwo)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events (broken one skipped), got %d: %v", len(events), events)
	}

	standup := events[0]
	if standup.ID != "standup-1" || standup.Title != "Standup" || standup.Date != "2024-03-05" {
		t.Errorf("Unexpected standup %+v", standup)
	}
	if standup.Start.String() != "09:00" || standup.End.String() != "09:15" {
		t.Errorf("Expected 09:00-09:15 local, got %s-%s", standup.Start, standup.End)
	}

	holiday := events[1]
	if holiday.Date != "2024-03-06" || holiday.Start != 0 || holiday.End != 0 {
		t.Errorf("Expected all-day holiday on 2024-03-06, got %+v", holiday)
	}

	// 23:00Z is 01:00 on the next local day.
	late := events[2]
	if late.Date != "2024-03-07" || late.Start.String() != "01:00" {
		t.Errorf("Expected late call on 2024-03-07 01:00, got %+v", late)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(nil, plusTwo); err == nil {
		t.Error("Expected error for empty body")
	}
}

func TestExportRoundTrip(t *testing.T) {
	events := []model.Event{
		{ID: "a", Title: "Standup", Date: "2024-05-01", Start: 9 * 60, End: 9*60 + 15},
		{ID: "b", Title: "Review", Date: "2024-05-02", Start: 14 * 60, End: 15 * 60},
		{ID: "c", Title: "Broken", Date: "bad"},
	}
	out := Export(events, plusTwo, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VEVENT", "SUMMARY:Standup", "UID:a", "PRODID:" + productID} {
		if !strings.Contains(out, want) {
			t.Errorf("Export output missing %q", want)
		}
	}
	if strings.Contains(out, "SUMMARY:Broken") {
		t.Error("Expected event with bad date to be skipped")
	}

	back, err := Parse([]byte(out), plusTwo)
	if err != nil {
		t.Fatalf("Parse of exported calendar failed: %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("Expected 2 events back, got %d", len(back))
	}
	for i, ev := range back {
		if ev.ID != events[i].ID || ev.Title != events[i].Title || ev.Date != events[i].Date ||
			ev.Start != events[i].Start || ev.End != events[i].End {
			t.Errorf("Round trip mismatch: got %+v, want %+v", ev, events[i])
		}
	}
}

func TestExportKeepsEndAfterStart(t *testing.T) {
	events := []model.Event{
		{ID: "night", Title: "Night shift", Date: "2024-05-01", Start: 22 * 60, End: 60},
		{ID: "day", Title: "Holiday", Date: "2024-05-02"},
		{ID: "mark", Title: "Reminder", Date: "2024-05-03", Start: 8 * 60, End: 8 * 60},
	}
	out := Export(events, time.UTC, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"DTSTART:20240501T220000Z",
		"DTEND:20240502T010000Z",
		"DTSTART;VALUE=DATE:20240502",
		"DTEND;VALUE=DATE:20240503",
		"DTSTART:20240503T080000Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Export output missing %q:\n%s", want, out)
		}
	}
	for _, bad := range []string{"DTEND:20240501T010000Z", "DTEND:20240503T080000Z"} {
		if strings.Contains(out, bad) {
			t.Errorf("Export output has DTEND not after DTSTART: %q", bad)
		}
	}

	back, err := Parse([]byte(out), time.UTC)
	if err != nil {
		t.Fatalf("Parse of exported calendar failed: %v", err)
	}
	if len(back) != 3 {
		t.Fatalf("Expected 3 events back, got %d", len(back))
	}
	for i, ev := range back {
		if ev.Date != events[i].Date || ev.Start != events[i].Start || ev.End != events[i].End {
			t.Errorf("Round trip mismatch: got %+v, want %+v", ev, events[i])
		}
	}
}
