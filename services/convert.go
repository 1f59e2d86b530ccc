// file: services/convert.go
package services

import (
	"fmt"
	"time"

	"climb-calendar/calendar"
	"climb-calendar/logger"
	"climb-calendar/models"
	"climb-calendar/store"
)

// Dates are written as the submitted calendar day at noon UTC. The store
// keeps only the instant, so the submitter's offset must not reach it.

func competitionData(c models.CompetitionNew) store.Data {
	types := make([]any, 0, len(c.Type))
	for _, t := range c.Type {
		types = append(types, string(t))
	}
	cats := make([]any, 0, len(c.Category))
	for _, cat := range c.Category {
		cats = append(cats, string(cat))
	}
	return store.Data{
		"name":          c.Name,
		"date":          calendar.DayOf(c.Date),
		"dateDuration":  c.DateDuration,
		"balkan":        c.Balkan,
		"international": c.International,
		"type":          types,
		"category":      cats,
	}
}

func userEventData(e models.UserEventNew) store.Data {
	d := store.Data{
		"name":         e.Name,
		"date":         calendar.DayOf(e.Date),
		"dateDuration": e.DateDuration,
	}
	if e.Type != "" {
		d["type"] = e.Type
	}
	return d
}

func parseCompetition(doc store.Document) (models.Competition, error) {
	date, err := asTime(doc.Data["date"])
	if err != nil {
		return models.Competition{}, err
	}
	c := models.Competition{ID: doc.ID, CompetitionNew: models.CompetitionNew{
		Name:          asString(doc.Data["name"]),
		Date:          calendar.DayOf(date),
		DateDuration:  asInt(doc.Data["dateDuration"]),
		Balkan:        asBool(doc.Data["balkan"]),
		International: asBool(doc.Data["international"]),
	}}
	for _, s := range asStrings(doc.Data["type"]) {
		c.Type = append(c.Type, models.CompetitionType(s))
	}
	for _, s := range asStrings(doc.Data["category"]) {
		c.Category = append(c.Category, models.Category(s))
	}
	return c, nil
}

func parseUserEvent(doc store.Document) (models.UserEvent, error) {
	date, err := asTime(doc.Data["date"])
	if err != nil {
		return models.UserEvent{}, err
	}
	return models.UserEvent{ID: doc.ID, UserEventNew: models.UserEventNew{
		Name:         asString(doc.Data["name"]),
		Date:         calendar.DayOf(date),
		DateDuration: asInt(doc.Data["dateDuration"]),
		Type:         asString(doc.Data["type"]),
	}}, nil
}

// parseCompetitions skips documents that cannot be read rather than
// dropping the whole snapshot.
func parseCompetitions(docs []store.Document) (any, error) {
	out := make([]models.Competition, 0, len(docs))
	for _, d := range docs {
		c, err := parseCompetition(d)
		if err != nil {
			logger.Warn.Printf("[parseCompetitions] skipping %s: %v", d.ID, err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func parseUserEvents(docs []store.Document) (any, error) {
	out := make([]models.UserEvent, 0, len(docs))
	for _, d := range docs {
		e, err := parseUserEvent(d)
		if err != nil {
			logger.Warn.Printf("[parseUserEvents] skipping %s: %v", d.ID, err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if len(t) == len(calendar.ISODate) {
			return calendar.ParseDay(t)
		}
		return time.Parse(time.RFC3339, t)
	default:
		return time.Time{}, fmt.Errorf("date has unexpected type %T", v)
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asStrings(v any) []string {
	switch xs := v.(type) {
	case []string:
		return xs
	case []any:
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		// older documents stored a single type as a plain string
		return []string{xs}
	default:
		return nil
	}
}
