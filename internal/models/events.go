package models

import "encoding/json"

// Channel event types pushed to subscribers.
const (
	EventMessage        = "message"
	EventMessageEdited  = "message_edited"
	EventMessageDeleted = "message_deleted"
	EventTyping         = "typing"
	EventMemberAdded    = "member_added"
	EventMemberRemoved  = "member_removed"
	EventChannelClosed  = "channel_closed"
)

// User event types delivered to a single user's socket.
const (
	EventCallIncoming = "call_incoming"
	EventCallAnswered = "call_answered"
	EventCallRejected = "call_rejected"
	EventCallEnded    = "call_ended"
	EventSignal       = "signal"
	EventNotification = "notification"
)

// ChannelEvent is broadcast to every live subscriber of a channel.
type ChannelEvent struct {
	Type      string   `json:"type"`
	ChannelID int      `json:"channel_id"`
	Message   *Message `json:"message,omitempty"`
	MessageID int64    `json:"message_id,omitempty"`
	UserID    int      `json:"user_id,omitempty"`
}

// UserEvent is delivered to one user's live connections.
type UserEvent struct {
	Type         string          `json:"type"`
	From         int             `json:"from,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Call         *Call           `json:"call,omitempty"`
	Notification *Notification   `json:"notification,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// SignalFrame is an opaque signaling payload relayed verbatim between the two
// peers of a call. Only Type and To are inspected.
type SignalFrame struct {
	Type string          `json:"type"`
	To   int             `json:"to"`
	Data json.RawMessage `json:"data"`
}
