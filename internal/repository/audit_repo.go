// Package repository persists a local audit trail of dispatched
// reminders, independent of the externally owned Log worksheet.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ReminderSend is one dispatched reminder.
type ReminderSend struct {
	ID         int64     `json:"id"`
	TenantName string    `json:"tenant_name"`
	BillMonth  string    `json:"bill_month"`
	Email      string    `json:"email"`
	SentOn     string    `json:"sent_on"`
	FollowUp   bool      `json:"follow_up"`
	PDFPath    string    `json:"pdf_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditRepository stores and lists reminder sends.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Record inserts one dispatched reminder.
func (r *AuditRepository) Record(ctx context.Context, send ReminderSend) error {
	query := `
		INSERT INTO reminder_sends (tenant_name, bill_month, email, sent_on, follow_up, pdf_path)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		send.TenantName, send.BillMonth, send.Email, send.SentOn, send.FollowUp, send.PDFPath)
	if err != nil {
		return fmt.Errorf("failed to insert reminder send: %w", err)
	}

	id, _ := res.LastInsertId()
	r.logger.Debug("Recorded reminder send",
		zap.Int64("id", id),
		zap.String("tenant", send.TenantName),
		zap.String("sent_on", send.SentOn))
	return nil
}

// ListRecent returns the most recent sends, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]ReminderSend, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, tenant_name, bill_month, email, sent_on, follow_up, pdf_path, created_at
		FROM reminder_sends
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder sends: %w", err)
	}
	defer rows.Close()

	var sends []ReminderSend
	for rows.Next() {
		var s ReminderSend
		if err := rows.Scan(&s.ID, &s.TenantName, &s.BillMonth, &s.Email,
			&s.SentOn, &s.FollowUp, &s.PDFPath, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder send: %w", err)
		}
		sends = append(sends, s)
	}
	return sends, rows.Err()
}
