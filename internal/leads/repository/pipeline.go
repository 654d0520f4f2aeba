package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PipelineFilter scopes aggregation to an owner and/or property.
type PipelineFilter struct {
	PropertyID *uuid.UUID
	UserID     *uuid.UUID
}

// PipelineAggregates holds the raw rollup a single stats pass produces.
// Zero-filling per-status counts for the full enum happens in the service,
// which owns the closed status set.
type PipelineAggregates struct {
	TotalLeads     int
	ConvertedLeads int
	AverageScore   float64
	StatusCounts   map[string]int
	SourceCounts   map[string]int
}

// GetPipelineAggregates computes the read-side rollup in two grouped scans.
func (r *Repository) GetPipelineAggregates(ctx context.Context, filter PipelineFilter) (PipelineAggregates, error) {
	where, args := pipelineWhere(filter)

	aggregates := PipelineAggregates{
		StatusCounts: make(map[string]int),
		SourceCounts: make(map[string]int),
	}

	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('lease', 'move_in')),
			COALESCE(AVG(score), 0)
		FROM leads
		WHERE %s
	`, where), args...).Scan(
		&aggregates.TotalLeads,
		&aggregates.ConvertedLeads,
		&aggregates.AverageScore,
	)
	if err != nil {
		return PipelineAggregates{}, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT status, source, COUNT(*)
		FROM leads
		WHERE %s
		GROUP BY status, source
	`, where), args...)
	if err != nil {
		return PipelineAggregates{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var status, source string
		var count int
		if err := rows.Scan(&status, &source, &count); err != nil {
			return PipelineAggregates{}, err
		}
		aggregates.StatusCounts[status] += count
		aggregates.SourceCounts[source] += count
	}
	if err := rows.Err(); err != nil {
		return PipelineAggregates{}, err
	}

	return aggregates, nil
}

func pipelineWhere(filter PipelineFilter) (string, []interface{}) {
	clauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.PropertyID != nil {
		clauses = append(clauses, fmt.Sprintf("property_id = $%d", argIdx))
		args = append(args, *filter.PropertyID)
		argIdx++
	}
	if filter.UserID != nil {
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
	}

	return strings.Join(clauses, " AND "), args
}
