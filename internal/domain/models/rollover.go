package models

import "time"

// RolloverState tracks how far a month close progressed. The marker is
// written before the archive/reset pair and completed after, so a crash
// between the two writes is detectable on the next startup instead of
// leaving ambiguous state.
type RolloverState string

const (
	RolloverStarted   RolloverState = "started"
	RolloverCompleted RolloverState = "completed"
)

// RolloverMarker is the durable recovery record for one month close.
type RolloverMarker struct {
	Period      string        `bson:"_id" json:"period"`
	NextPeriod  string        `bson:"next_period" json:"next_period"`
	State       RolloverState `bson:"state" json:"state"`
	StartedAt   time.Time     `bson:"started_at" json:"started_at"`
	CompletedAt time.Time     `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}
