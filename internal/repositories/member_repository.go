package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"comms-service/internal/models"
)

var ErrMemberNotFound = errors.New("member not found")

const memberColumns = `channel_id, user_id, role, can_write, active, joined_at, left_at`

// MembershipRepository abstracts the channel roster. Rows are mutated only by
// the membership directory; leaving a channel deactivates the row but keeps it.
type MembershipRepository interface {
	UpsertMember(ctx context.Context, channelID, userID int, role models.MemberRole, canWrite bool) (models.Membership, error)
	GetMember(ctx context.Context, channelID, userID int) (models.Membership, error)
	ListActiveMembers(ctx context.Context, channelID int) ([]models.Membership, error)
	ListActiveMemberIDs(ctx context.Context, channelID int) ([]int, error)
	CountActiveByRole(ctx context.Context, channelID int, role models.MemberRole) (int, error)
	SetRole(ctx context.Context, channelID, userID int, role models.MemberRole) error
	SetCanWrite(ctx context.Context, channelID, userID int, canWrite bool) error
	DeactivateMember(ctx context.Context, channelID, userID int) error
}

// MemberRepo is a sqlx implementation of MembershipRepository.
type MemberRepo struct {
	db *sqlx.DB
}

// NewMemberRepo constructs a MemberRepo.
func NewMemberRepo(db *sqlx.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

// UpsertMember adds a user to the roster or reactivates a retained row from an
// earlier membership, resetting role and write permission.
func (r *MemberRepo) UpsertMember(ctx context.Context, channelID, userID int, role models.MemberRole, canWrite bool) (models.Membership, error) {
	var m models.Membership
	err := r.db.GetContext(ctx, &m,
		`INSERT INTO channel_members (channel_id, user_id, role, can_write)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (channel_id, user_id) DO UPDATE
             SET role = EXCLUDED.role, can_write = EXCLUDED.can_write,
                 active = TRUE, left_at = NULL
         RETURNING `+memberColumns,
		channelID, userID, role, canWrite)
	return m, err
}

// GetMember fetches a single roster row, active or not.
func (r *MemberRepo) GetMember(ctx context.Context, channelID, userID int) (models.Membership, error) {
	var m models.Membership
	err := r.db.GetContext(ctx, &m,
		`SELECT `+memberColumns+` FROM channel_members WHERE channel_id=$1 AND user_id=$2`,
		channelID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, ErrMemberNotFound
	}
	return m, err
}

// ListActiveMembers returns the active roster of a channel.
func (r *MemberRepo) ListActiveMembers(ctx context.Context, channelID int) ([]models.Membership, error) {
	var members []models.Membership
	err := r.db.SelectContext(ctx, &members,
		`SELECT `+memberColumns+` FROM channel_members WHERE channel_id=$1 AND active ORDER BY joined_at`,
		channelID)
	return members, err
}

// ListActiveMemberIDs returns only the user ids of the active roster.
func (r *MemberRepo) ListActiveMemberIDs(ctx context.Context, channelID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM channel_members WHERE channel_id=$1 AND active ORDER BY user_id`, channelID)
	return ids, err
}

// CountActiveByRole counts active members holding the given role.
func (r *MemberRepo) CountActiveByRole(ctx context.Context, channelID int, role models.MemberRole) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM channel_members WHERE channel_id=$1 AND active AND role=$2`,
		channelID, role)
	return count, err
}

// SetRole updates the role of an active member.
func (r *MemberRepo) SetRole(ctx context.Context, channelID, userID int, role models.MemberRole) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE channel_members SET role=$3 WHERE channel_id=$1 AND user_id=$2 AND active`,
		channelID, userID, role)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetCanWrite toggles the write permission of an active member.
func (r *MemberRepo) SetCanWrite(ctx context.Context, channelID, userID int, canWrite bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE channel_members SET can_write=$3 WHERE channel_id=$1 AND user_id=$2 AND active`,
		channelID, userID, canWrite)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeactivateMember removes a user from delivery while retaining the row.
func (r *MemberRepo) DeactivateMember(ctx context.Context, channelID, userID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE channel_members SET active = FALSE, left_at = NOW() WHERE channel_id=$1 AND user_id=$2 AND active`,
		channelID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMemberNotFound
	}
	return nil
}
