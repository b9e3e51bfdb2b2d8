package models

import "time"

// MessageType classifies message content.
type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageImage  MessageType = "IMAGE"
	MessageFile   MessageType = "FILE"
	MessageAudio  MessageType = "AUDIO"
	MessageVideo  MessageType = "VIDEO"
	MessageSystem MessageType = "SYSTEM"
	MessageCall   MessageType = "CALL"
)

// MediaTypes are the message types served by the media listing.
var MediaTypes = map[MessageType]bool{
	MessageImage: true,
	MessageFile:  true,
	MessageAudio: true,
	MessageVideo: true,
}

// Message is an ordered unit of content inside a channel. The ordering key is
// (created_at, id); edits mutate content only, deletes are soft.
type Message struct {
	ID           int64       `db:"id" json:"id"`
	ChannelID    int         `db:"channel_id" json:"channel_id"`
	SenderID     int         `db:"sender_id" json:"sender_id"`
	Content      string      `db:"content" json:"content"`
	Type         MessageType `db:"type" json:"type"`
	ReplyToID    *int64      `db:"reply_to_id" json:"reply_to_id,omitempty"`
	AttachmentID *string     `db:"attachment_id" json:"attachment_id,omitempty"`
	CallID       *int        `db:"call_id" json:"call_id,omitempty"`
	Edited       bool        `db:"edited" json:"edited"`
	Deleted      bool        `db:"deleted" json:"-"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}
