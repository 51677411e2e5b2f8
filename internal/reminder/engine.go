// Package reminder decides which tenants are due a reminder and runs
// the render-send-mark sweep over the record snapshot.
package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rentdesk/rent-reminder/internal/models"
	"github.com/rentdesk/rent-reminder/internal/repository"
	"github.com/rentdesk/rent-reminder/internal/sheet"
)

// Reminder windows, in days relative to the due date. These are exact
// matches: a record is eligible only on precisely these offsets, so the
// sweep must run daily to catch every window. A missed run permanently
// skips that window for that record; there is no catch-up.
const (
	weekAheadDays   = 7
	dayAheadDays    = 1
	followUpOverdue = 3
)

// SkipReason explains why a record was not eligible.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipPaid          SkipReason = "already paid"
	SkipBadDueDate    SkipReason = "unparseable due date"
	SkipOutsideWindow SkipReason = "no reminder window matched"
	SkipAlreadySent   SkipReason = "already sent today"
)

// Decision is the outcome of evaluating one record for one day.
type Decision struct {
	Eligible bool
	FollowUp bool
	Reason   SkipReason
	Err      error
}

// Evaluate decides whether a record is due a reminder today.
//
// The stored due date carries no year and is always interpreted in
// today's calendar year; bills predating the current year are a known
// limitation, not silently corrected.
func Evaluate(rec models.TenantRecord, today time.Time) Decision {
	if rec.IsPaid() {
		return Decision{Reason: SkipPaid}
	}

	today = dateOnly(today)
	due, err := models.ParseDueDate(rec.DueDate, today.Year())
	if err != nil {
		return Decision{Reason: SkipBadDueDate, Err: err}
	}

	daysBefore := daysBetween(today, due)
	daysFrom := daysBetween(due, today)

	if daysBefore != weekAheadDays && daysBefore != dayAheadDays && daysFrom != followUpOverdue {
		return Decision{Reason: SkipOutsideWindow}
	}

	if rec.SentToday(today) {
		return Decision{Reason: SkipAlreadySent}
	}

	return Decision{Eligible: true, FollowUp: daysFrom == followUpOverdue}
}

// Renderer produces the invoice PDF for a record.
type Renderer interface {
	Render(rec models.TenantRecord) (string, error)
}

// Notifier delivers the reminder with the invoice attached.
type Notifier interface {
	Send(ctx context.Context, rec models.TenantRecord, pdfPath string, followUp bool) error
}

// Auditor records dispatched reminders locally. May be nil.
type Auditor interface {
	Record(ctx context.Context, send repository.ReminderSend) error
}

// Report summarises one sweep for the operator.
type Report struct {
	Processed int      `json:"processed"`
	Sent      int      `json:"sent"`
	Skipped   int      `json:"skipped"`
	Warnings  []string `json:"warnings"`
}

// Engine runs the reminder sweep: evaluate every record in snapshot
// order, render and send for the eligible ones, then mark sent_on.
type Engine struct {
	store    sheet.Store
	renderer Renderer
	notifier Notifier
	audit    Auditor
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates a reminder engine. audit may be nil.
func NewEngine(store sheet.Store, renderer Renderer, notifier Notifier, audit Auditor, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		renderer: renderer,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes the full record set strictly sequentially. Every
// per-record failure is isolated: it is logged, reported as a warning,
// and the sweep continues with the next record. Only a failed snapshot
// fetch aborts the sweep.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	today := dateOnly(e.now())
	report := Report{}

	records, err := e.store.FetchAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to fetch records: %w", err)
	}

	e.logger.Info("Starting reminder sweep",
		zap.Int("records", len(records)),
		zap.String("today", today.Format(models.ISODate)))

	for _, rec := range records {
		report.Processed++

		d := Evaluate(rec, today)
		if !d.Eligible {
			report.Skipped++
			if d.Reason == SkipBadDueDate {
				warning := fmt.Sprintf("%s: %s", rec.TenantName, d.Err)
				report.Warnings = append(report.Warnings, warning)
				e.logger.Warn("Skipping record with bad due date",
					zap.String("tenant", rec.TenantName),
					zap.String("due_date", rec.DueDate),
					zap.Error(d.Err))
			} else {
				e.logger.Debug("Record not eligible",
					zap.String("tenant", rec.TenantName),
					zap.String("reason", string(d.Reason)))
			}
			continue
		}

		if err := e.process(ctx, rec, today, d.FollowUp); err != nil {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("failed for %s: %s", rec.TenantName, err))
			e.logger.Warn("Reminder failed for record",
				zap.String("tenant", rec.TenantName),
				zap.Error(err))
			continue
		}
		report.Sent++
	}

	e.logger.Info("Reminder sweep finished",
		zap.Int("processed", report.Processed),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("warnings", len(report.Warnings)))

	return report, nil
}

// process renders, sends, and marks one eligible record. sent_on is
// written only after a successful send, so a delivery failure leaves
// the record eligible for a later run the same day.
func (e *Engine) process(ctx context.Context, rec models.TenantRecord, today time.Time, followUp bool) error {
	pdfPath, err := e.renderer.Render(rec)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := e.notifier.Send(ctx, rec, pdfPath, followUp); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	sentOn := today.Format(models.ISODate)
	if err := e.store.UpdateField(ctx, rec.Key(), models.ColSentOn, sentOn); err != nil {
		return fmt.Errorf("mark sent_on: %w", err)
	}

	if e.audit != nil {
		send := repository.ReminderSend{
			TenantName: rec.TenantName,
			BillMonth:  rec.BillMonth,
			Email:      rec.Email,
			SentOn:     sentOn,
			FollowUp:   followUp,
			PDFPath:    pdfPath,
		}
		if err := e.audit.Record(ctx, send); err != nil {
			// The reminder itself succeeded; the local audit trail is
			// secondary.
			e.logger.Warn("Failed to record reminder in audit log",
				zap.String("tenant", rec.TenantName),
				zap.Error(err))
		}
	}

	e.logger.Info("Reminder dispatched",
		zap.String("tenant", rec.TenantName),
		zap.String("sent_on", sentOn),
		zap.Bool("follow_up", followUp))
	return nil
}

// dateOnly truncates a time to its calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole calendar days from a to b; negative
// when b is before a.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
