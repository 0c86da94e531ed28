package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citizenvoice/engagement-server/internal/models"
)

// complaintStats aggregates the per-node statistics shared by the
// organization, district and sector statistics endpoints: status
// breakdown, a 30-day submission series, and resolution times in days.
// scopeColumn is one of the internal complaint FK column names, never
// user input.
func complaintStats(ctx context.Context, db *pgxpool.Pool, scopeColumn string, nodeID uuid.UUID) ([]models.StatusCount, []models.DailyCount, models.ResolutionStats, error) {
	var byStatus []models.StatusCount
	rows, err := db.Query(ctx, `
		SELECT status, COUNT(*) FROM complaints
		WHERE `+scopeColumn+` = $1
		GROUP BY status ORDER BY COUNT(*) DESC
	`, nodeID)
	if err != nil {
		return nil, nil, models.ResolutionStats{}, fmt.Errorf("complaints by status: %w", err)
	}
	for rows.Next() {
		var sc models.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			continue
		}
		byStatus = append(byStatus, sc)
	}
	rows.Close()

	var overTime []models.DailyCount
	rows, err = db.Query(ctx, `
		SELECT TO_CHAR(created_at, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM complaints
		WHERE `+scopeColumn+` = $1 AND created_at > NOW() - INTERVAL '30 days'
		GROUP BY day ORDER BY day
	`, nodeID)
	if err != nil {
		return nil, nil, models.ResolutionStats{}, fmt.Errorf("complaints over time: %w", err)
	}
	for rows.Next() {
		var dc models.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			continue
		}
		overTime = append(overTime, dc)
	}
	rows.Close()

	var res models.ResolutionStats
	err = db.QueryRow(ctx, `
		SELECT COALESCE(AVG(days), 0), COALESCE(MIN(days), 0), COALESCE(MAX(days), 0)
		FROM (
			SELECT EXTRACT(EPOCH FROM resolved_at - created_at) / 86400 AS days
			FROM complaints
			WHERE `+scopeColumn+` = $1 AND status = 'resolved' AND resolved_at IS NOT NULL
		) t
	`, nodeID).Scan(&res.AvgDays, &res.MinDays, &res.MaxDays)
	if err != nil {
		return nil, nil, models.ResolutionStats{}, fmt.Errorf("resolution stats: %w", err)
	}

	return byStatus, overTime, res, nil
}
