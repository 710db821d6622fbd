package database

import (
	"context"
	"fmt"
	"time"

	"simbay/internal/audit"
)

// RecordAudit appends one entry to the audit log.
func (db *DB) RecordAudit(ctx context.Context, e *audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO audit_log (action, booking_id, member_id, club_id, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Action, e.BookingID, e.MemberID, e.ClubID, e.Detail, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("audit insert id: %w", err)
	}
	return nil
}

// ListAudit returns audit entries created within [from, to], oldest
// first.
func (db *DB) ListAudit(ctx context.Context, from, to time.Time) ([]audit.Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, action, booking_id, member_id, club_id, detail, created_at
		 FROM audit_log
		 WHERE created_at >= ? AND created_at <= ?
		 ORDER BY created_at`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.BookingID, &e.MemberID, &e.ClubID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
