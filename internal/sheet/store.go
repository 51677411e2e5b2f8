// Package sheet implements the record store adapter over the tenant
// spreadsheet. Two backends exist: the Google Sheets API (the store the
// rest of the organisation edits) and a local Excel workbook for
// offline operation and tests. Both share the same worksheet layout:
// row 1 is the header, data starts at row 2.
package sheet

import (
	"context"
	"errors"
	"strings"

	"github.com/rentdesk/rent-reminder/internal/models"
)

// ErrRecordNotFound is returned when a record key cannot be resolved to
// a row at write time.
var ErrRecordNotFound = errors.New("record not found")

// ErrColumnNotFound is returned when the header row is missing the
// column a write targets.
var ErrColumnNotFound = errors.New("column not found")

// Store reads and writes tenant records.
//
// FetchAll returns a full snapshot of the RentBills worksheet in sheet
// order. UpdateField writes a single cell, resolving the record key to
// a row position immediately before the write so that external
// reordering between an earlier fetch and the write cannot redirect it.
// There is still no cross-process transaction: a concurrent edit
// between resolve and write can race, and that is accepted.
type Store interface {
	FetchAll(ctx context.Context) ([]models.TenantRecord, error)
	UpdateField(ctx context.Context, key models.RecordKey, column, value string) error
	LogEntries(ctx context.Context) ([]models.LogEntry, error)
}

// headerIndex maps normalized header names to their 0-based column
// positions.
func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

// cellAt reads a cell from a row, tolerating short rows.
func cellAt(row []string, i int, ok bool) string {
	if !ok || i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// recordFromRow builds a TenantRecord from one data row. Field reads
// are best-effort: missing columns come back empty.
func recordFromRow(idx map[string]int, row []string, sheetRow int) models.TenantRecord {
	get := func(col string) string {
		i, ok := idx[col]
		return cellAt(row, i, ok)
	}
	return models.TenantRecord{
		TenantName: get(models.ColTenantName),
		Email:      get(models.ColEmail),
		BillMonth:  get(models.ColBillMonth),
		DueDate:    get(models.ColDueDate),
		RentAmount: get(models.ColRentAmount),
		Notes:      get(models.ColNotes),
		Paid:       get(models.ColPaid),
		SentOn:     get(models.ColSentOn),
		Row:        sheetRow,
	}
}

// recordsFromRows converts a full worksheet snapshot (header included)
// into tenant records.
func recordsFromRows(rows [][]string) []models.TenantRecord {
	if len(rows) == 0 {
		return nil
	}
	idx := headerIndex(rows[0])
	records := make([]models.TenantRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		records = append(records, recordFromRow(idx, row, i+2))
	}
	return records
}

// resolveCell locates the cell for (key, column) in a snapshot. It
// returns the 1-based sheet row and 0-based column index. The first
// row matching the full composite key wins; duplicates beyond that are
// a data problem the caller may want to log.
func resolveCell(rows [][]string, key models.RecordKey, column string) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, ErrRecordNotFound
	}
	idx := headerIndex(rows[0])
	col, ok := idx[column]
	if !ok {
		return 0, 0, ErrColumnNotFound
	}
	nameCol, nameOK := idx[models.ColTenantName]
	monthCol, monthOK := idx[models.ColBillMonth]
	if !nameOK {
		return 0, 0, ErrColumnNotFound
	}
	for i, row := range rows[1:] {
		if strings.TrimSpace(cellAt(row, nameCol, true)) != strings.TrimSpace(key.TenantName) {
			continue
		}
		if monthOK && strings.TrimSpace(cellAt(row, monthCol, true)) != strings.TrimSpace(key.BillMonth) {
			continue
		}
		return i + 2, col, nil
	}
	return 0, 0, ErrRecordNotFound
}

// logFromRows drops the header row and returns the remaining rows in
// sheet order (oldest first). Presentation reverses them.
func logFromRows(rows [][]string) []models.LogEntry {
	if len(rows) <= 1 {
		return nil
	}
	entries := make([]models.LogEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		entries = append(entries, models.LogEntry(row))
	}
	return entries
}
