package models

import "time"

// NoUserID is the sentinel for "no user": unassigned readings and the
// cleared selected-user setting both use it.
const NoUserID int64 = -1

// Weight units a profile can display in. The stored weight is always kg.
const (
	UnitKg = iota
	UnitLb
	UnitSt
)

// Gender values as stored on the profile.
const (
	GenderMale = iota
	GenderFemale
)

var unitLabels = [...]string{"kg", "lb", "st"}

// User models a scale profile. Measurements reference a user by id.
type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Birthday      time.Time `json:"birthday"`
	BodyHeight    float32   `json:"bodyHeight"` // cm
	ScaleUnit     int       `json:"scaleUnit"`
	Gender        int       `json:"gender"`
	InitialWeight float32   `json:"initialWeight"` // kg
	GoalWeight    float32   `json:"goalWeight"`
	GoalDate      time.Time `json:"goalDate"`
}

// UnitLabel returns the display label for the profile's weight unit.
func (u User) UnitLabel() string {
	if u.ScaleUnit < 0 || u.ScaleUnit >= len(unitLabels) {
		return unitLabels[UnitKg]
	}
	return unitLabels[u.ScaleUnit]
}

// ConvertedWeight converts a kg weight into the profile's display unit.
func (u User) ConvertedWeight(kg float32) float32 {
	switch u.ScaleUnit {
	case UnitLb:
		return kg * 2.2046
	case UnitSt:
		return kg * 0.157473
	default:
		return kg
	}
}

// AgeAt returns the user's age in whole years at the given time.
func (u User) AgeAt(t time.Time) int {
	age := t.Year() - u.Birthday.Year()
	if t.YearDay() < u.Birthday.YearDay() {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
