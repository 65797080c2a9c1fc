package models

import "time"

// Measurement is one body-composition reading. The (UserID, MeasuredAt)
// pair is unique per user; the store never holds two readings for the same
// user at the same instant.
type Measurement struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	MeasuredAt time.Time `json:"measuredAt"`
	Weight     float32   `json:"weight"` // kg
	Fat        float32   `json:"fat"`    // percent
	Water      float32   `json:"water"`  // percent
	Muscle     float32   `json:"muscle"` // percent
	LBW        float32   `json:"lbw"`    // lean body weight, kg
	Bone       float32   `json:"bone"`   // kg
	Waist      float32   `json:"waist"`  // cm
	Hip        float32   `json:"hip"`    // cm
	Comment    string    `json:"comment"`
}
