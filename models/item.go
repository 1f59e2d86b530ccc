// file: models/item.go
package models

import (
	"fmt"
	"time"
)

// ItemKind discriminates the variants an Item may hold.
type ItemKind int

const (
	KindCompetition ItemKind = iota + 1
	KindUserEvent
)

func (k ItemKind) String() string {
	switch k {
	case KindCompetition:
		return "competition"
	case KindUserEvent:
		return "userEvent"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k ItemKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (k *ItemKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "competition":
		*k = KindCompetition
	case "userEvent":
		*k = KindUserEvent
	default:
		return fmt.Errorf("unknown item kind %q", b)
	}
	return nil
}

// Item is a dated calendar entry: exactly one of Competition or UserEvent
// is set, as named by Kind.
type Item struct {
	Kind        ItemKind     `json:"kind"`
	Competition *Competition `json:"competition,omitempty"`
	UserEvent   *UserEvent   `json:"userEvent,omitempty"`
}

func CompetitionItem(c Competition) Item {
	return Item{Kind: KindCompetition, Competition: &c}
}

func UserEventItem(e UserEvent) Item {
	return Item{Kind: KindUserEvent, UserEvent: &e}
}

// CompetitionItems wraps each competition as an Item.
func CompetitionItems(cs []Competition) []Item {
	items := make([]Item, 0, len(cs))
	for _, c := range cs {
		items = append(items, CompetitionItem(c))
	}
	return items
}

// UserEventItems wraps each personal event as an Item.
func UserEventItems(es []UserEvent) []Item {
	items := make([]Item, 0, len(es))
	for _, e := range es {
		items = append(items, UserEventItem(e))
	}
	return items
}

func (i Item) ID() string {
	switch i.Kind {
	case KindCompetition:
		return i.Competition.ID
	case KindUserEvent:
		return i.UserEvent.ID
	}
	return ""
}

func (i Item) Title() string {
	switch i.Kind {
	case KindCompetition:
		return i.Competition.Name
	case KindUserEvent:
		return i.UserEvent.Name
	}
	return ""
}

// Start is the first day of the item.
func (i Item) Start() time.Time {
	switch i.Kind {
	case KindCompetition:
		return i.Competition.Date
	case KindUserEvent:
		return i.UserEvent.Date
	}
	return time.Time{}
}

// Duration is the number of days the item spans, never less than one.
func (i Item) Duration() int {
	d := 0
	switch i.Kind {
	case KindCompetition:
		d = i.Competition.DateDuration
	case KindUserEvent:
		d = i.UserEvent.DateDuration
	}
	if d < DateDurationMin {
		return DateDurationMin
	}
	return d
}

// Color is the presentation hint for the item.
func (i Item) Color() string {
	if i.Kind == KindCompetition {
		return ColorForCompetition(*i.Competition)
	}
	return "purple"
}
