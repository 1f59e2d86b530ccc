// file: models/color.go
package models

const defaultColor = "grey"

var typeColors = map[CompetitionType]string{
	TypeBoulder: "red",
	TypeLead:    "green",
	TypeSpeed:   "blue",
}

var categoryColors = map[Category]string{
	CategoryU8:     "red",
	CategoryU10:    "yellow",
	CategoryU12:    "blue",
	CategoryU14:    "green",
	CategoryYouthA: "brown",
	CategoryYouthB: "black",
}

// ColorForType returns the colour associated with a discipline.
func ColorForType(t CompetitionType) string {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return defaultColor
}

// ColorForCategory returns the colour associated with an age group.
func ColorForCategory(cat Category) string {
	if c, ok := categoryColors[cat]; ok {
		return c
	}
	return defaultColor
}

// ColorForCompetition uses the first listed discipline.
func ColorForCompetition(c Competition) string {
	if len(c.Type) == 0 {
		return defaultColor
	}
	return ColorForType(c.Type[0])
}
