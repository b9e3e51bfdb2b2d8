package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"comms-service/internal/models"
)

var ErrChannelNotFound = errors.New("channel not found")

const channelColumns = `id, kind, building_id, group_id, creator_id, peer_low_id, peer_high_id,
    active, private, closed, created_at, updated_at`

// ChannelRepository abstracts channel persistence.
type ChannelRepository interface {
	CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error)
	GetChannel(ctx context.Context, channelID int) (models.Channel, error)
	ListChannelsForUser(ctx context.Context, userID int) ([]models.Channel, error)
	CloseChannel(ctx context.Context, channelID int) error
	FindActiveOneToOne(ctx context.Context, lowID, highID int, buildingID *int) (models.Channel, error)
	InsertOneToOne(ctx context.Context, lowID, highID int, buildingID *int, creatorID int) (models.Channel, bool, error)
	FindActiveBuildingChannel(ctx context.Context, buildingID int) (models.Channel, error)
	InsertBuildingChannel(ctx context.Context, buildingID, creatorID int) (models.Channel, bool, error)
	ListResidents(ctx context.Context, buildingID int) ([]int, error)
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// CreateChannel persists a new channel of any kind.
func (r *ChannelRepo) CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error) {
	var created models.Channel
	err := r.db.GetContext(ctx, &created,
		`INSERT INTO channels (kind, building_id, group_id, creator_id, peer_low_id, peer_high_id, private)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING `+channelColumns,
		ch.Kind, ch.BuildingID, ch.GroupID, ch.CreatorID, ch.PeerLowID, ch.PeerHighID, ch.Private)
	return created, err
}

// GetChannel fetches a channel by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// ListChannelsForUser returns active channels the user actively belongs to.
func (r *ChannelRepo) ListChannelsForUser(ctx context.Context, userID int) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.SelectContext(ctx, &channels,
		`SELECT c.id, c.kind, c.building_id, c.group_id, c.creator_id, c.peer_low_id, c.peer_high_id,
                c.active, c.private, c.closed, c.created_at, c.updated_at
         FROM channels c
         INNER JOIN channel_members m ON m.channel_id = c.id
         WHERE m.user_id=$1 AND m.active AND c.active
         ORDER BY c.created_at DESC`, userID)
	return channels, err
}

// CloseChannel logically closes a channel; rows are never deleted.
func (r *ChannelRepo) CloseChannel(ctx context.Context, channelID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE channels SET active = FALSE, closed = TRUE, updated_at = NOW() WHERE id=$1 AND active`, channelID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// FindActiveOneToOne looks up the active direct channel for an ordered pair.
func (r *ChannelRepo) FindActiveOneToOne(ctx context.Context, lowID, highID int, buildingID *int) (models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch,
		`SELECT `+channelColumns+` FROM channels
         WHERE kind='ONE_TO_ONE' AND active AND peer_low_id=$1 AND peer_high_id=$2
           AND COALESCE(building_id, 0) = COALESCE($3, 0)`,
		lowID, highID, buildingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// InsertOneToOne inserts the direct channel for a pair. The partial unique
// index is the arbiter, so concurrent callers collapse onto a single row: the
// loser observes no returned row and reports created=false.
func (r *ChannelRepo) InsertOneToOne(ctx context.Context, lowID, highID int, buildingID *int, creatorID int) (models.Channel, bool, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch,
		`INSERT INTO channels (kind, building_id, creator_id, peer_low_id, peer_high_id, private)
         VALUES ('ONE_TO_ONE', $1, $2, $3, $4, TRUE)
         ON CONFLICT (peer_low_id, peer_high_id, COALESCE(building_id, 0))
             WHERE kind = 'ONE_TO_ONE' AND active
             DO NOTHING
         RETURNING `+channelColumns,
		buildingID, creatorID, lowID, highID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, false, nil
	}
	if err != nil {
		return models.Channel{}, false, err
	}
	return ch, true, nil
}

// FindActiveBuildingChannel looks up the building-wide channel.
func (r *ChannelRepo) FindActiveBuildingChannel(ctx context.Context, buildingID int) (models.Channel, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch,
		`SELECT `+channelColumns+` FROM channels WHERE kind='BUILDING' AND active AND building_id=$1`, buildingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// InsertBuildingChannel inserts the building-wide channel, racing safely on the
// partial unique index like InsertOneToOne.
func (r *ChannelRepo) InsertBuildingChannel(ctx context.Context, buildingID, creatorID int) (models.Channel, bool, error) {
	var ch models.Channel
	err := r.db.GetContext(ctx, &ch,
		`INSERT INTO channels (kind, building_id, creator_id)
         VALUES ('BUILDING', $1, $2)
         ON CONFLICT (building_id) WHERE kind = 'BUILDING' AND active DO NOTHING
         RETURNING `+channelColumns,
		buildingID, creatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, false, nil
	}
	if err != nil {
		return models.Channel{}, false, err
	}
	return ch, true, nil
}

// ListResidents returns the user ids registered to a building. The table is
// written by the resident-profile service; this side only reads it.
func (r *ChannelRepo) ListResidents(ctx context.Context, buildingID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM building_residents WHERE building_id=$1 ORDER BY user_id`, buildingID)
	return ids, err
}
