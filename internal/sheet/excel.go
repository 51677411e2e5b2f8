package sheet

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/rentdesk/rent-reminder/internal/models"
)

// ExcelStore is the Store implementation backed by a local .xlsx
// workbook with the same layout as the remote spreadsheet. The file is
// reopened per operation so external edits between interactions are
// picked up, mirroring the remote backend's snapshot semantics.
type ExcelStore struct {
	path         string
	worksheet    string
	logWorksheet string
	logger       *zap.Logger
}

// ExcelConfig holds local workbook configuration
type ExcelConfig struct {
	Path         string
	Worksheet    string
	LogWorksheet string
}

// NewExcelStore creates a store over a local workbook file.
func NewExcelStore(cfg ExcelConfig, logger *zap.Logger) *ExcelStore {
	return &ExcelStore{
		path:         cfg.Path,
		worksheet:    cfg.Worksheet,
		logWorksheet: cfg.LogWorksheet,
		logger:       logger,
	}
}

// FetchAll returns a full snapshot of the RentBills worksheet.
func (s *ExcelStore) FetchAll(ctx context.Context) ([]models.TenantRecord, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.worksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", s.worksheet, err)
	}
	return recordsFromRows(rows), nil
}

// UpdateField writes a single cell, resolving the key to a row position
// against the current workbook contents immediately before the write.
func (s *ExcelStore) UpdateField(ctx context.Context, key models.RecordKey, column, value string) error {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.worksheet)
	if err != nil {
		return fmt.Errorf("failed to read worksheet %s: %w", s.worksheet, err)
	}

	rowNum, colIdx, err := resolveCell(rows, key, column)
	if err != nil {
		return fmt.Errorf("failed to resolve %s for %s: %w", column, key, err)
	}

	cell, err := excelize.CoordinatesToCellName(colIdx+1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to build cell name: %w", err)
	}

	if err := f.SetCellValue(s.worksheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	s.logger.Debug("Updated cell",
		zap.String("cell", cell),
		zap.String("column", column),
		zap.String("key", key.String()))
	return nil
}

// LogEntries returns the rows of the Log worksheet, oldest first and
// without the header row.
func (s *ExcelStore) LogEntries(ctx context.Context) ([]models.LogEntry, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.logWorksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read log worksheet %s: %w", s.logWorksheet, err)
	}
	return logFromRows(rows), nil
}
