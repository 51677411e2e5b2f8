package sheet

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/rentdesk/rent-reminder/internal/models"
)

// GoogleStore is the Store implementation backed by the Google Sheets
// API using service-account credentials.
type GoogleStore struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
	logWorksheet  string
	logger        *zap.Logger
}

// GoogleConfig holds Google Sheets access configuration
type GoogleConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	Worksheet       string
	LogWorksheet    string
}

// NewGoogleStore creates a store talking to the Google Sheets API.
func NewGoogleStore(ctx context.Context, cfg GoogleConfig, logger *zap.Logger) (*GoogleStore, error) {
	creds, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	logger.Info("Google Sheets store initialized",
		zap.String("spreadsheet_id", cfg.SpreadsheetID),
		zap.String("worksheet", cfg.Worksheet))

	return &GoogleStore{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		worksheet:     cfg.Worksheet,
		logWorksheet:  cfg.LogWorksheet,
		logger:        logger,
	}, nil
}

// FetchAll returns a full snapshot of the RentBills worksheet.
func (s *GoogleStore) FetchAll(ctx context.Context) ([]models.TenantRecord, error) {
	rows, err := s.fetchRows(ctx, s.worksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	return recordsFromRows(rows), nil
}

// UpdateField writes a single cell, resolving the key to a row position
// against a fresh snapshot immediately before the write.
func (s *GoogleStore) UpdateField(ctx context.Context, key models.RecordKey, column, value string) error {
	rows, err := s.fetchRows(ctx, s.worksheet)
	if err != nil {
		return fmt.Errorf("failed to fetch records for update: %w", err)
	}

	rowNum, colIdx, err := resolveCell(rows, key, column)
	if err != nil {
		return fmt.Errorf("failed to resolve %s for %s: %w", column, key, err)
	}

	a1 := fmt.Sprintf("%s!%s%d", s.worksheet, columnLetter(colIdx), rowNum)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, a1, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update cell %s: %w", a1, err)
	}

	s.logger.Debug("Updated cell",
		zap.String("range", a1),
		zap.String("column", column),
		zap.String("key", key.String()))
	return nil
}

// LogEntries returns the rows of the external Log worksheet, oldest
// first and without the header row.
func (s *GoogleStore) LogEntries(ctx context.Context) ([]models.LogEntry, error) {
	rows, err := s.fetchRows(ctx, s.logWorksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch log sheet: %w", err)
	}
	return logFromRows(rows), nil
}

// fetchRows reads a whole worksheet as strings.
func (s *GoogleStore) fetchRows(ctx context.Context, worksheet string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, worksheet).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, cellString(v))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// cellString converts an API cell value to its string form.
func cellString(v interface{}) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	case nil:
		return ""
	default:
		return fmt.Sprint(c)
	}
}

// columnLetter converts a 0-based column index to A1 letters.
func columnLetter(i int) string {
	letters := ""
	for i >= 0 {
		letters = string(rune('A'+i%26)) + letters
		i = i/26 - 1
	}
	return letters
}
