package models

import "time"

// Notification is a per-recipient record derived from a channel or call event.
// EventKey is stable per (source event, recipient) so reprocessing an event
// cannot create duplicates. Read state only ever moves false -> true.
type Notification struct {
	ID         int64      `db:"id" json:"id"`
	ResidentID int        `db:"resident_id" json:"resident_id"`
	BuildingID *int       `db:"building_id" json:"building_id,omitempty"`
	EventKey   string     `db:"event_key" json:"-"`
	Payload    string     `db:"payload" json:"payload"`
	IsRead     bool       `db:"is_read" json:"is_read"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ReadAt     *time.Time `db:"read_at" json:"read_at,omitempty"`
}
