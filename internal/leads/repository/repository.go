package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	UserID     uuid.UUID
	Name       string
	Email      *string
	Phone      *string
	Source     string
	Status     string
	Score      int
	ExtraData  map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const leadSelectCols = `
	id, property_id, user_id, name, email, phone, source, status, score, extra_data, created_at, updated_at`

// leadRowScanner is satisfied by pgx.Rows and pgx.Row so that scanLead can be
// shared between single-row and multi-row queries.
type leadRowScanner interface {
	Scan(dest ...any) error
}

// scanLead populates a Lead from a standard SELECT row. Column order must
// match leadSelectCols.
func scanLead(s leadRowScanner) (Lead, error) {
	var lead Lead
	var rawExtra []byte
	if err := s.Scan(
		&lead.ID,
		&lead.PropertyID,
		&lead.UserID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Source,
		&lead.Status,
		&lead.Score,
		&rawExtra,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return Lead{}, err
	}
	if len(rawExtra) > 0 {
		_ = json.Unmarshal(rawExtra, &lead.ExtraData)
	}
	return lead, nil
}

type CreateLeadParams struct {
	PropertyID uuid.UUID
	UserID     uuid.UUID
	Name       string
	Email      *string
	Phone      *string
	Source     string
	Status     string
	ExtraData  map[string]any

	// InitialActivityDescription seeds the first status_change ledger entry,
	// written in the same transaction as the lead row.
	InitialActivityDescription string
	InitialActivityMetadata    map[string]any
}

// Create inserts a lead together with its creation activity. Both writes
// commit atomically so a lead never exists without its first ledger entry.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	extraJSON, err := marshalMetadata(params.ExtraData)
	if err != nil {
		return Lead{}, err
	}
	activityJSON, err := marshalMetadata(params.InitialActivityMetadata)
	if err != nil {
		return Lead{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	var lead Lead
	row := tx.QueryRow(ctx, `
		INSERT INTO leads (property_id, user_id, name, email, phone, source, status, score, extra_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
		RETURNING`+leadSelectCols+`
	`, params.PropertyID, params.UserID, params.Name, params.Email, params.Phone, params.Source, params.Status, extraJSON)
	lead, err = scanLead(row)
	if err != nil {
		return Lead{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, user_id, activity_type, description, extra_data)
		VALUES ($1, $2, 'status_change', $3, $4)
	`, lead.ID, params.UserID, params.InitialActivityDescription, activityJSON)
	if err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	lead.ExtraData = params.ExtraData
	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadSelectCols+`
		FROM leads WHERE id = $1
	`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

type ListLeadsParams struct {
	PropertyID *uuid.UUID
	UserID     *uuid.UUID
	Status     *string
	Source     *string
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// List returns leads newest first, applying only the provided filters.
func (r *Repository) List(ctx context.Context, params ListLeadsParams) ([]Lead, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	addFilter := func(clause string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf(clause, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.PropertyID != nil {
		addFilter("property_id = $%d", *params.PropertyID)
	}
	if params.UserID != nil {
		addFilter("user_id = $%d", *params.UserID)
	}
	if params.Status != nil {
		addFilter("status = $%d", *params.Status)
	}
	if params.Source != nil {
		addFilter("source = $%d", *params.Source)
	}
	if strings.TrimSpace(params.Search) != "" {
		pattern := "%" + strings.TrimSpace(params.Search) + "%"
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, pattern)
		argIdx++
	}
	if params.DateFrom != nil {
		addFilter("created_at >= $%d", *params.DateFrom)
	}
	if params.DateTo != nil {
		addFilter("created_at <= $%d", *params.DateTo)
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT`+leadSelectCols+`
		FROM leads
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(whereClauses, " AND "), argIdx, argIdx+1)
	args = append(args, limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	return items, rows.Err()
}

type UpdateLeadParams struct {
	Name      *string
	Email     *string
	Phone     *string
	Source    *string
	Status    *string
	Score     *int
	ExtraData map[string]any
	// ExtraDataSet distinguishes "clear the map" from "leave it alone".
	ExtraDataSet bool

	// StatusActivity, when non-nil, is appended in the same transaction as
	// the field update. Populated by the service when the status actually
	// changed value.
	StatusActivity *CreateActivityParams
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// Update applies a partial update. When params.StatusActivity is set, the
// ledger append commits atomically with the lead row so a status change is
// never recorded without its audit entry.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	fields := []struct {
		enabled bool
		column  string
		value   interface{}
	}{
		{params.Name != nil, "name", derefString(params.Name)},
		{params.Email != nil, "email", params.Email},
		{params.Phone != nil, "phone", params.Phone},
		{params.Source != nil, "source", derefString(params.Source)},
		{params.Status != nil, "status", derefString(params.Status)},
		{params.Score != nil, "score", params.Score},
	}

	for _, field := range fields {
		if !field.enabled {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field.column, argIdx))
		args = append(args, field.value)
		argIdx++
	}

	if params.ExtraDataSet {
		extraJSON, err := marshalMetadata(params.ExtraData)
		if err != nil {
			return Lead{}, err
		}
		setClauses = append(setClauses, fmt.Sprintf("extra_data = $%d", argIdx))
		args = append(args, extraJSON)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $%d
		RETURNING`+leadSelectCols+`
	`, strings.Join(setClauses, ", "), argIdx)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	lead, err := scanLead(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}

	if params.StatusActivity != nil {
		if _, err := appendActivityTx(ctx, tx, *params.StatusActivity); err != nil {
			return Lead{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// UpdateScore persists a recomputed score without touching the ledger.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score int) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET score = $2, updated_at = now()
		WHERE id = $1
		RETURNING`+leadSelectCols+`
	`, id, score)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// Delete removes the lead; the lead_activities cascade clears its ledger.
// Returns false when the id is unknown so callers can decide severity.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	return json.Marshal(metadata)
}
