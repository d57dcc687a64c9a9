// Package reportstats loads human-report counts from the moderation
// database and attaches them to entity records before scoring. Reports
// are grouped by moderation status; only approved and pending reports
// influence the risk score.
package reportstats

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lvonguyen/scamforge/internal/entity"
)

// Moderation status ids in the report table.
const (
	statusPending  = 1
	statusApproved = 2
	statusRejected = 3
)

// Key identifies an entity in the report table: the canonical value plus
// the numeric type id.
type Key struct {
	Value  string
	TypeID int
}

// Loader fetches report counts for every reported entity.
type Loader interface {
	Load(ctx context.Context) (map[Key]entity.ReportStats, error)
}

// DB is the query surface needed from a pgx pool or connection.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DBLoader reads report counts with a single grouped scan.
type DBLoader struct {
	db DB
}

// NewDBLoader creates a loader over a pgx pool or connection.
func NewDBLoader(db DB) *DBLoader {
	return &DBLoader{db: db}
}

const loadQuery = `
SELECT info_value, type_id, status_id, COUNT(*)
FROM report
GROUP BY info_value, type_id, status_id`

// Load returns per-entity report counts grouped by moderation status.
func (l *DBLoader) Load(ctx context.Context) (map[Key]entity.ReportStats, error) {
	rows, err := l.db.Query(ctx, loadQuery)
	if err != nil {
		return nil, fmt.Errorf("query report stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Key]entity.ReportStats)
	for rows.Next() {
		var (
			value    string
			typeID   int
			statusID int
			count    int
		)
		if err := rows.Scan(&value, &typeID, &statusID, &count); err != nil {
			return nil, fmt.Errorf("scan report stats row: %w", err)
		}

		key := Key{Value: value, TypeID: typeID}
		s := stats[key]
		switch statusID {
		case statusPending:
			s.Pending += count
		case statusApproved:
			s.Approved += count
		case statusRejected:
			s.Rejected += count
		}
		stats[key] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report stats: %w", err)
	}
	return stats, nil
}

// Attach copies report counts onto matching records and mirrors the
// actionable count into the evidence bag for the report scorer. Records
// without reports are left untouched.
func Attach(records []*entity.Record, stats map[Key]entity.ReportStats) {
	if len(stats) == 0 {
		return
	}
	for _, r := range records {
		s, ok := stats[Key{Value: r.Value, TypeID: r.Type.ID()}]
		if !ok {
			continue
		}
		r.ReportStats = s
		if count := s.Approved + s.Pending; count > 0 {
			r.EnsureEvidence()["report_count"] = count
		}
	}
}
