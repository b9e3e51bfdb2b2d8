package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"comms-service/internal/models"
)

var ErrCallNotFound = errors.New("call not found")

const callColumns = `id, channel_id, caller_id, receiver_id, is_video, status, started_at, ended_at,
    duration_seconds, created_at, updated_at`

// CallRepository defines persistence for call sessions.
type CallRepository interface {
	Insert(ctx context.Context, call models.Call) (models.Call, error)
	Get(ctx context.Context, callID int) (models.Call, error)
	UpdateState(ctx context.Context, call models.Call) (models.Call, error)
	FindActiveByPair(ctx context.Context, callerID, receiverID int) (models.Call, error)
}

// CallRepo is a sqlx implementation of CallRepository.
type CallRepo struct {
	db *sqlx.DB
}

// NewCallRepo constructs a CallRepo.
func NewCallRepo(db *sqlx.DB) *CallRepo {
	return &CallRepo{db: db}
}

// Insert persists a freshly initiated call. The partial unique index
// arbitrates concurrent starts for the same pair: the loser's unique
// violation surfaces as the same invalid-state error the sequential
// pre-check returns.
func (r *CallRepo) Insert(ctx context.Context, call models.Call) (models.Call, error) {
	var created models.Call
	err := r.db.GetContext(ctx, &created,
		`INSERT INTO calls (channel_id, caller_id, receiver_id, is_video, status)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+callColumns,
		call.ChannelID, call.CallerID, call.ReceiverID, call.IsVideo, call.Status)
	if uniqueViolation(err) {
		return models.Call{}, fmt.Errorf("%w: a live call already exists for the pair", models.ErrInvalidCallState)
	}
	return created, err
}

func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

// Get fetches a call by id.
func (r *CallRepo) Get(ctx context.Context, callID int) (models.Call, error) {
	var call models.Call
	err := r.db.GetContext(ctx, &call, `SELECT `+callColumns+` FROM calls WHERE id=$1`, callID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Call{}, ErrCallNotFound
	}
	return call, err
}

// UpdateState persists the outcome of a lifecycle transition.
func (r *CallRepo) UpdateState(ctx context.Context, call models.Call) (models.Call, error) {
	var updated models.Call
	err := r.db.GetContext(ctx, &updated,
		`UPDATE calls SET status=$2, started_at=$3, ended_at=$4, duration_seconds=$5, updated_at=NOW()
         WHERE id=$1
         RETURNING `+callColumns,
		call.ID, call.Status, call.StartedAt, call.EndedAt, call.DurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Call{}, ErrCallNotFound
	}
	return updated, err
}

// FindActiveByPair returns the live call between two users, if any.
func (r *CallRepo) FindActiveByPair(ctx context.Context, callerID, receiverID int) (models.Call, error) {
	var call models.Call
	err := r.db.GetContext(ctx, &call,
		`SELECT `+callColumns+` FROM calls
         WHERE caller_id=$1 AND receiver_id=$2 AND status IN ('INITIATED', 'ANSWERED')`,
		callerID, receiverID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Call{}, ErrCallNotFound
	}
	return call, err
}
