package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"comms-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, channel_id, sender_id, content, type, reply_to_id, attachment_id, call_id,
    edited, deleted, created_at, updated_at`

// MessageRepository defines persistence for the append-only message log.
type MessageRepository interface {
	Insert(ctx context.Context, msg models.Message) (models.Message, error)
	Get(ctx context.Context, messageID int64) (models.Message, error)
	UpdateContent(ctx context.Context, messageID int64, content string) (models.Message, error)
	SoftDelete(ctx context.Context, messageID int64) error
	Page(ctx context.Context, channelID int, before int64, limit int) ([]models.Message, error)
	MediaPage(ctx context.Context, channelID int, mediaType models.MessageType, before int64, limit int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert appends a message to the channel log.
func (r *MessageRepo) Insert(ctx context.Context, msg models.Message) (models.Message, error) {
	var created models.Message
	err := r.db.GetContext(ctx, &created,
		`INSERT INTO messages (channel_id, sender_id, content, type, reply_to_id, attachment_id, call_id)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING `+messageColumns,
		msg.ChannelID, msg.SenderID, msg.Content, msg.Type, msg.ReplyToID, msg.AttachmentID, msg.CallID)
	return created, err
}

// Get retrieves a single message, soft-deleted or not.
func (r *MessageRepo) Get(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateContent replaces the content and flags the message as edited. The id
// and created_at never change.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID int64, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`UPDATE messages SET content=$2, edited=TRUE, updated_at=NOW()
         WHERE id=$1 AND deleted = FALSE
         RETURNING `+messageColumns,
		messageID, content)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDelete hides a message from listings while retaining the row.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET deleted = TRUE, updated_at = NOW() WHERE id=$1 AND deleted = FALSE`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Page lists messages in descending (created_at, id) order. A zero cursor
// starts from the newest message; otherwise listing resumes strictly before
// the cursor message.
func (r *MessageRepo) Page(ctx context.Context, channelID int, before int64, limit int) ([]models.Message, error) {
	var msgs []models.Message
	if before == 0 {
		err := r.db.SelectContext(ctx, &msgs,
			`SELECT `+messageColumns+` FROM messages
             WHERE channel_id=$1 AND deleted = FALSE
             ORDER BY created_at DESC, id DESC LIMIT $2`,
			channelID, limit)
		return msgs, err
	}
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE channel_id=$1 AND deleted = FALSE
           AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id=$2)
         ORDER BY created_at DESC, id DESC LIMIT $3`,
		channelID, before, limit)
	return msgs, err
}

// MediaPage lists media messages of one type with the same ordering and cursor
// semantics as Page.
func (r *MessageRepo) MediaPage(ctx context.Context, channelID int, mediaType models.MessageType, before int64, limit int) ([]models.Message, error) {
	var msgs []models.Message
	if before == 0 {
		err := r.db.SelectContext(ctx, &msgs,
			`SELECT `+messageColumns+` FROM messages
             WHERE channel_id=$1 AND type=$2 AND deleted = FALSE
             ORDER BY created_at DESC, id DESC LIMIT $3`,
			channelID, mediaType, limit)
		return msgs, err
	}
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE channel_id=$1 AND type=$2 AND deleted = FALSE
           AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id=$3)
         ORDER BY created_at DESC, id DESC LIMIT $4`,
		channelID, mediaType, before, limit)
	return msgs, err
}
