package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column names of the RentBills worksheet. The header row is matched
// against these; unknown columns are ignored and missing ones read as
// empty strings.
const (
	ColTenantName = "tenant_name"
	ColEmail      = "email"
	ColBillMonth  = "bill_month"
	ColDueDate    = "due_date"
	ColRentAmount = "rent_amount"
	ColNotes      = "notes"
	ColPaid       = "paid"
	ColSentOn     = "sent_on"
)

// ISODate is the format of the sent_on idempotency marker.
const ISODate = "2006-01-02"

// TenantRecord is one row of the RentBills worksheet.
type TenantRecord struct {
	TenantName string
	Email      string
	BillMonth  string
	DueDate    string
	RentAmount string
	Notes      string
	Paid       string
	SentOn     string

	// Row is the 1-based sheet row this record was fetched from
	// (row 1 is the header, so data rows start at 2). Informational
	// only: writes re-resolve the position by key.
	Row int
}

// Key identifies the record for targeted writes.
func (r TenantRecord) Key() RecordKey {
	return RecordKey{TenantName: r.TenantName, BillMonth: r.BillMonth}
}

// IsPaid reports whether the paid cell marks this record settled.
// Comparison is trimmed and case-insensitive; anything that is not
// PAID counts as unpaid.
func (r TenantRecord) IsPaid() bool {
	return strings.EqualFold(strings.TrimSpace(r.Paid), "PAID")
}

// PaidStatus returns the normalized payment state, PAID or UNPAID.
func (r TenantRecord) PaidStatus() string {
	if r.IsPaid() {
		return "PAID"
	}
	return "UNPAID"
}

// SentToday reports whether a reminder was already dispatched for this
// record on the given day.
func (r TenantRecord) SentToday(today time.Time) bool {
	return strings.TrimSpace(r.SentOn) == today.Format(ISODate)
}

// AmountDecimal parses the rent amount for aggregation. The amount is
// displayed verbatim everywhere else; this is best-effort only and
// reports ok=false for anything that does not parse.
func (r TenantRecord) AmountDecimal() (decimal.Decimal, bool) {
	s := strings.TrimSpace(r.RentAmount)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// RecordKey addresses a record by its composite identity. tenant_name
// alone is not guaranteed unique, so the bill month is part of the key.
type RecordKey struct {
	TenantName string
	BillMonth  string
}

func (k RecordKey) String() string {
	return k.TenantName + " / " + k.BillMonth
}

// dueDateLayouts are tried in order when parsing due dates. The stored
// value is day-first and usually carries no year.
var dueDateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2/1",
	"2-1",
	"2 January 2006",
	"2 January",
	"2 Jan 2006",
	"2 Jan",
}

// ParseDueDate parses a day-first due date string and coerces the year
// to the given one. The stored due date carries no reliable year, so it
// is always interpreted as falling in the supplied (current) calendar
// year, even for bills issued in an earlier year.
func ParseDueDate(s string, year int) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty due date")
	}
	for _, layout := range dueDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		coerced := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// Feb 29 coerced into a non-leap year would normalize to Mar 1;
		// treat that as unparseable rather than shifting the due date.
		if coerced.Month() != t.Month() || coerced.Day() != t.Day() {
			return time.Time{}, fmt.Errorf("due date %q does not exist in %d", s, year)
		}
		return coerced, nil
	}
	return time.Time{}, fmt.Errorf("unparseable due date %q", s)
}

// ParseBillMonth parses a human-readable month label such as
// "March 2025".
func ParseBillMonth(s string) (time.Time, error) {
	t, err := time.Parse("January 2006", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable bill month %q: %w", s, err)
	}
	return t, nil
}

// LogEntry is one row of the external Log worksheet. The schema is
// owned externally, so cells are kept as-is.
type LogEntry []string
