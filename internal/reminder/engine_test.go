package reminder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rentdesk/rent-reminder/internal/models"
	"github.com/rentdesk/rent-reminder/internal/repository"
)

// today for all decision tests: 2025-03-10
var today = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func TestEvaluate_Windows(t *testing.T) {
	tests := []struct {
		name     string
		dueDate  string
		eligible bool
		followUp bool
	}{
		{"seven days ahead", "17/03", true, false},
		{"one day ahead", "11/03", true, false},
		{"three days overdue", "07/03", true, true},
		{"due today", "10/03", false, false},
		{"two days ahead", "12/03", false, false},
		{"four days ahead", "14/03", false, false},
		{"six days ahead", "16/03", false, false},
		{"eight days ahead", "18/03", false, false},
		{"two days overdue", "08/03", false, false},
		{"four days overdue", "06/03", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := models.TenantRecord{
				TenantName: "Asha Verma",
				DueDate:    tt.dueDate,
				Paid:       "UNPAID",
			}

			d := Evaluate(rec, today)

			assert.Equal(t, tt.eligible, d.Eligible)
			assert.Equal(t, tt.followUp, d.FollowUp)
		})
	}
}

func TestEvaluate_PaidAlwaysSkips(t *testing.T) {
	// Eligible by date in every case; the paid state must win.
	for _, paid := range []string{"PAID", "paid", " Paid ", "PAID  "} {
		t.Run(fmt.Sprintf("paid=%q", paid), func(t *testing.T) {
			rec := models.TenantRecord{
				TenantName: "Asha Verma",
				DueDate:    "17/03",
				Paid:       paid,
			}

			d := Evaluate(rec, today)

			assert.False(t, d.Eligible)
			assert.Equal(t, SkipPaid, d.Reason)
		})
	}
}

func TestEvaluate_BadDueDate(t *testing.T) {
	rec := models.TenantRecord{
		TenantName: "Asha Verma",
		DueDate:    "not a date",
		Paid:       "UNPAID",
	}

	d := Evaluate(rec, today)

	assert.False(t, d.Eligible)
	assert.Equal(t, SkipBadDueDate, d.Reason)
	assert.Error(t, d.Err)
}

func TestEvaluate_Idempotency(t *testing.T) {
	t.Run("sent today skips", func(t *testing.T) {
		rec := models.TenantRecord{
			TenantName: "Asha Verma",
			DueDate:    "17/03",
			Paid:       "UNPAID",
			SentOn:     "2025-03-10",
		}

		d := Evaluate(rec, today)

		assert.False(t, d.Eligible)
		assert.Equal(t, SkipAlreadySent, d.Reason)
	})

	t.Run("sent yesterday stays eligible", func(t *testing.T) {
		rec := models.TenantRecord{
			TenantName: "Asha Verma",
			DueDate:    "17/03",
			Paid:       "UNPAID",
			SentOn:     "2025-03-09",
		}

		d := Evaluate(rec, today)

		assert.True(t, d.Eligible)
	})
}

func TestEvaluate_YearCoercion(t *testing.T) {
	// A due date written with an older year is still interpreted in
	// the current calendar year.
	rec := models.TenantRecord{
		TenantName: "Asha Verma",
		DueDate:    "17/03/2023",
		Paid:       "UNPAID",
	}

	d := Evaluate(rec, today)

	assert.True(t, d.Eligible)
	assert.False(t, d.FollowUp)
}

// --- sweep fakes ---

type fakeStore struct {
	records  []models.TenantRecord
	updates  []string // "<tenant>|<column>|<value>"
	fetchErr error
	writeErr error
}

func (s *fakeStore) FetchAll(ctx context.Context) ([]models.TenantRecord, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]models.TenantRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *fakeStore) UpdateField(ctx context.Context, key models.RecordKey, column, value string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.updates = append(s.updates, fmt.Sprintf("%s|%s|%s", key.TenantName, column, value))
	for i := range s.records {
		if s.records[i].Key() == key {
			switch column {
			case models.ColSentOn:
				s.records[i].SentOn = value
			case models.ColPaid:
				s.records[i].Paid = value
			}
			return nil
		}
	}
	return fmt.Errorf("record not found")
}

func (s *fakeStore) LogEntries(ctx context.Context) ([]models.LogEntry, error) {
	return nil, nil
}

type fakeRenderer struct {
	failFor  map[string]bool
	rendered []string
}

func (r *fakeRenderer) Render(rec models.TenantRecord) (string, error) {
	if r.failFor[rec.TenantName] {
		return "", fmt.Errorf("render blew up")
	}
	r.rendered = append(r.rendered, rec.TenantName)
	return "/tmp/receipts/2025-03/Rent_Bill_" + rec.TenantName + ".pdf", nil
}

type fakeNotifier struct {
	failFor   map[string]bool
	sent      []string
	followUps map[string]bool
}

func (n *fakeNotifier) Send(ctx context.Context, rec models.TenantRecord, pdfPath string, followUp bool) error {
	if n.failFor[rec.TenantName] {
		return fmt.Errorf("smtp said no")
	}
	if n.followUps == nil {
		n.followUps = make(map[string]bool)
	}
	n.sent = append(n.sent, rec.TenantName)
	n.followUps[rec.TenantName] = followUp
	return nil
}

type fakeAuditor struct {
	sends []repository.ReminderSend
}

func (a *fakeAuditor) Record(ctx context.Context, send repository.ReminderSend) error {
	a.sends = append(a.sends, send)
	return nil
}

func newTestEngine(store *fakeStore, renderer *fakeRenderer, notifier *fakeNotifier, audit Auditor) *Engine {
	logger := zap.NewNop()
	e := NewEngine(store, renderer, notifier, audit, logger)
	e.now = func() time.Time { return today }
	return e
}

func record(name, due, paid, sentOn string) models.TenantRecord {
	return models.TenantRecord{
		TenantName: name,
		Email:      name + "@example.com",
		BillMonth:  "March 2025",
		DueDate:    due,
		RentAmount: "12500",
		Paid:       paid,
		SentOn:     sentOn,
	}
}

func TestEngineRun_SendsAndMarks(t *testing.T) {
	store := &fakeStore{records: []models.TenantRecord{
		record("Asha Verma", "17/03", "UNPAID", ""),   // 7 ahead
		record("Ravi Kumar", "07/03", "UNPAID", ""),   // 3 overdue
		record("Meena Iyer", "10/03", "UNPAID", ""),   // due today, no window
		record("Sunil Shah", "17/03", "PAID", ""),     // settled
	}}
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}
	audit := &fakeAuditor{}
	engine := newTestEngine(store, renderer, notifier, audit)

	report, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 2, report.Skipped)
	assert.Empty(t, report.Warnings)

	assert.Equal(t, []string{"Asha Verma", "Ravi Kumar"}, notifier.sent)
	assert.False(t, notifier.followUps["Asha Verma"])
	assert.True(t, notifier.followUps["Ravi Kumar"])

	// Round trip: re-fetched records carry today's ISO date.
	records, err := store.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", records[0].SentOn)
	assert.Equal(t, "2025-03-10", records[1].SentOn)
	assert.Empty(t, records[2].SentOn)

	// Audit trail mirrors the sends.
	require.Len(t, audit.sends, 2)
	assert.Equal(t, "Ravi Kumar", audit.sends[1].TenantName)
	assert.True(t, audit.sends[1].FollowUp)
}

func TestEngineRun_FailOpen(t *testing.T) {
	store := &fakeStore{records: []models.TenantRecord{
		record("Asha Verma", "17/03", "UNPAID", ""),
		record("Ravi Kumar", "17/03", "UNPAID", ""),
		record("Meena Iyer", "17/03", "UNPAID", ""),
	}}
	renderer := &fakeRenderer{failFor: map[string]bool{"Ravi Kumar": true}}
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, renderer, notifier, nil)

	report, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "Ravi Kumar")

	// Records after the failing one were still processed.
	assert.Equal(t, []string{"Asha Verma", "Meena Iyer"}, notifier.sent)

	// The failed record was not marked sent.
	records, _ := store.FetchAll(context.Background())
	assert.Empty(t, records[1].SentOn)
	assert.Equal(t, "2025-03-10", records[2].SentOn)
}

func TestEngineRun_SendFailureDoesNotMark(t *testing.T) {
	store := &fakeStore{records: []models.TenantRecord{
		record("Asha Verma", "17/03", "UNPAID", ""),
	}}
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{failFor: map[string]bool{"Asha Verma": true}}
	engine := newTestEngine(store, renderer, notifier, nil)

	report, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	require.Len(t, report.Warnings, 1)
	assert.Empty(t, store.updates)
}

func TestEngineRun_MarkFailureIsWarned(t *testing.T) {
	store := &fakeStore{
		records: []models.TenantRecord{
			record("Asha Verma", "17/03", "UNPAID", ""),
			record("Ravi Kumar", "17/03", "UNPAID", ""),
		},
		writeErr: fmt.Errorf("sheet write rejected"),
	}
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, renderer, notifier, nil)

	report, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 0, report.Sent)
	require.Len(t, report.Warnings, 2)
	assert.Contains(t, report.Warnings[0], "Asha Verma")
	assert.Contains(t, report.Warnings[1], "Ravi Kumar")

	// Both notifications were still attempted; the sweep did not abort.
	assert.Equal(t, []string{"Asha Verma", "Ravi Kumar"}, notifier.sent)

	// No record carries a sent_on marker.
	records, _ := store.FetchAll(context.Background())
	assert.Empty(t, records[0].SentOn)
	assert.Empty(t, records[1].SentOn)
}

func TestEngineRun_SecondRunIsIdempotent(t *testing.T) {
	store := &fakeStore{records: []models.TenantRecord{
		record("Asha Verma", "17/03", "UNPAID", ""),
	}}
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, renderer, notifier, nil)

	first, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sent)

	second, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Sent)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, notifier.sent, 1)
}

func TestEngineRun_BadDueDateIsWarnedAndSkipped(t *testing.T) {
	store := &fakeStore{records: []models.TenantRecord{
		record("Asha Verma", "garbage", "UNPAID", ""),
		record("Ravi Kumar", "17/03", "UNPAID", ""),
	}}
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, renderer, notifier, nil)

	report, err := engine.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "Asha Verma")
}

func TestEngineRun_FetchFailureAborts(t *testing.T) {
	store := &fakeStore{fetchErr: fmt.Errorf("sheet unreachable")}
	engine := newTestEngine(store, &fakeRenderer{}, &fakeNotifier{}, nil)

	_, err := engine.Run(context.Background())

	assert.Error(t, err)
}
