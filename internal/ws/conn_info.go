package ws

import "time"

// ConnInfo is the metadata kept per live connection for lifecycle events and
// error reporting.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
