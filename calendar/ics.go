// file: calendar/ics.go
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"climb-calendar/models"
)

// ICSProductID identifies the calendars we export.
const ICSProductID = "-//climb-calendar//Competitions//EN"

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// icsWriter keeps the first write error so the export can be written straight
// through and checked once.
type icsWriter struct {
	w   io.Writer
	err error
}

func (iw *icsWriter) line(format string, args ...any) {
	if iw.err != nil {
		return
	}
	_, iw.err = fmt.Fprintf(iw.w, format+"\r\n", args...)
}

// WriteICS writes items as all-day events of one calendar.
func WriteICS(w io.Writer, name string, items []models.Item, now time.Time) error {
	iw := &icsWriter{w: w}
	stamp := now.UTC().Format("20060102T150405Z")

	iw.line("BEGIN:VCALENDAR")
	iw.line("VERSION:2.0")
	iw.line("PRODID:%s", ICSProductID)
	iw.line("X-WR-CALNAME:%s", icsEscaper.Replace(name))
	iw.line("CALSCALE:GREGORIAN")

	for _, it := range items {
		start, end := StartDay(it), ExclusiveEnd(it)

		iw.line("BEGIN:VEVENT")
		iw.line("UID:%s-%s@climb-calendar", it.Kind, it.ID())
		iw.line("DTSTAMP:%s", stamp)
		iw.line("DTSTART;VALUE=DATE:%s", start.Format("20060102"))
		iw.line("DTEND;VALUE=DATE:%s", end.Format("20060102"))
		iw.line("SUMMARY:%s", icsEscaper.Replace(it.Title()))
		if cats := icsCategories(it); cats != "" {
			iw.line("CATEGORIES:%s", cats)
		}
		iw.line("END:VEVENT")
	}

	iw.line("END:VCALENDAR")
	return iw.err
}

func icsCategories(it models.Item) string {
	if it.Kind != models.KindCompetition {
		if it.UserEvent.Type != "" {
			return icsEscaper.Replace(it.UserEvent.Type)
		}
		return ""
	}
	parts := make([]string, 0, len(it.Competition.Type)+len(it.Competition.Category))
	for _, t := range it.Competition.Type {
		parts = append(parts, string(t))
	}
	for _, c := range it.Competition.Category {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ",")
}
