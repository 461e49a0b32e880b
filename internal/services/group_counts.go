package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/collegeerp/backend/internal/models"
)

// groupCounts runs a "SELECT key, COUNT(*) ... GROUP BY key" query.
func groupCounts(ctx context.Context, db *sql.DB, query string, args ...any) ([]models.GroupCount, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []models.GroupCount{}
	for rows.Next() {
		var g models.GroupCount
		if err := rows.Scan(&g.ID, &g.Count); err != nil {
			return nil, fmt.Errorf("scan group count: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
