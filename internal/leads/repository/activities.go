package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Activity is one immutable entry in a lead's ledger. Rows are only ever
// inserted; there is no update path and no updated_at column.
type Activity struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	UserID       *uuid.UUID
	ActivityType string
	Description  *string
	ExtraData    map[string]any
	CreatedAt    time.Time
}

type CreateActivityParams struct {
	LeadID       uuid.UUID
	UserID       *uuid.UUID
	ActivityType string
	Description  *string
	ExtraData    map[string]any
}

const activitySelectCols = `
	id, lead_id, user_id, activity_type, description, extra_data, created_at`

// activityQuerier is satisfied by both *pgxpool.Pool and pgx.Tx so appends
// can join a surrounding transaction.
type activityQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func appendActivityTx(ctx context.Context, q activityQuerier, params CreateActivityParams) (Activity, error) {
	extraJSON, err := marshalMetadata(params.ExtraData)
	if err != nil {
		return Activity{}, err
	}

	row := q.QueryRow(ctx, `
		INSERT INTO lead_activities (lead_id, user_id, activity_type, description, extra_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING`+activitySelectCols+`
	`, params.LeadID, params.UserID, params.ActivityType, params.Description, extraJSON)

	activity, err := scanActivity(row)
	if err != nil {
		return Activity{}, err
	}
	// Assign directly from params, no JSON roundtrip needed.
	activity.ExtraData = params.ExtraData
	return activity, nil
}

// AppendActivity inserts a new ledger entry with a server-assigned timestamp.
func (r *Repository) AppendActivity(ctx context.Context, params CreateActivityParams) (Activity, error) {
	return appendActivityTx(ctx, r.pool, params)
}

func scanActivity(s leadRowScanner) (Activity, error) {
	var activity Activity
	var rawExtra []byte
	if err := s.Scan(
		&activity.ID,
		&activity.LeadID,
		&activity.UserID,
		&activity.ActivityType,
		&activity.Description,
		&rawExtra,
		&activity.CreatedAt,
	); err != nil {
		return Activity{}, err
	}
	if len(rawExtra) > 0 {
		_ = json.Unmarshal(rawExtra, &activity.ExtraData)
	}
	return activity, nil
}

// ListActivities returns every ledger entry for a lead in creation order.
// The id tiebreak keeps the order stable when timestamps collide.
func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+activitySelectCols+`
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, activity)
	}
	return items, rows.Err()
}
