package models

import "time"

// CallStatus is the lifecycle state of a call session.
type CallStatus string

const (
	CallInitiated CallStatus = "INITIATED"
	CallAnswered  CallStatus = "ANSWERED"
	CallEnded     CallStatus = "ENDED"
	CallRejected  CallStatus = "REJECTED"
)

// Terminal reports whether the status permits no further transitions.
func (s CallStatus) Terminal() bool {
	return s == CallEnded || s == CallRejected
}

// Call is a two-party session scoped to one channel. DurationSeconds is derived
// on the transition into ENDED and is zero for calls that were never answered.
type Call struct {
	ID              int        `db:"id" json:"id"`
	ChannelID       int        `db:"channel_id" json:"channel_id"`
	CallerID        int        `db:"caller_id" json:"caller_id"`
	ReceiverID      int        `db:"receiver_id" json:"receiver_id"`
	IsVideo         bool       `db:"is_video" json:"is_video"`
	Status          CallStatus `db:"status" json:"status"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	DurationSeconds int        `db:"duration_seconds" json:"duration_seconds"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Participant reports whether the user is the caller or receiver.
func (c Call) Participant(userID int) bool {
	return c.CallerID == userID || c.ReceiverID == userID
}

// Counterpart returns the other party of the call.
func (c Call) Counterpart(userID int) int {
	if c.CallerID == userID {
		return c.ReceiverID
	}
	return c.CallerID
}
