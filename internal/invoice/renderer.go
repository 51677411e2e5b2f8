// Package invoice renders rent invoices as PDF files with
// deterministic paths keyed by tenant and bill month.
package invoice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/rentdesk/rent-reminder/internal/models"
)

// Renderer generates invoice PDFs under a receipts root, one
// subdirectory per year-month.
type Renderer struct {
	outputDir   string
	companyName string
	logger      *zap.Logger
}

// NewRenderer creates a new invoice renderer.
func NewRenderer(outputDir, companyName string, logger *zap.Logger) *Renderer {
	return &Renderer{
		outputDir:   outputDir,
		companyName: companyName,
		logger:      logger,
	}
}

// PathFor is the single source of truth for invoice paths; the
// renderer and the download probe both go through it so a written file
// can always be found again. The year-month directory comes from the
// record's bill month ("March 2025" -> 2025-03); when the bill month
// does not parse, the given wall-clock time is used instead.
func (r *Renderer) PathFor(rec models.TenantRecord, now time.Time) string {
	yearMonth := now.Format("2006-01")
	if t, err := models.ParseBillMonth(rec.BillMonth); err == nil {
		yearMonth = t.Format("2006-01")
	}
	name := fmt.Sprintf("Rent_Bill_%s_%s.pdf",
		sanitize(rec.TenantName), sanitize(rec.BillMonth))
	return filepath.Join(r.outputDir, yearMonth, name)
}

// InvoicePath returns the canonical path for a record's invoice,
// whether or not it has been rendered yet.
func (r *Renderer) InvoicePath(rec models.TenantRecord) string {
	return r.PathFor(rec, time.Now())
}

// Render writes the invoice PDF for a record and returns its path.
// Rendering is idempotent: the same record overwrites the same path.
func (r *Renderer) Render(rec models.TenantRecord) (string, error) {
	path := r.InvoicePath(rec)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create receipts directory: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, r.companyName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, fmt.Sprintf("RENT INVOICE - %s", rec.BillMonth), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	// Recipient block
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(25, 8, "To:", "", 0, "L", false, 0, "")
	pdf.CellFormat(100, 8, rec.TenantName, "", 1, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Email:", "", 0, "L", false, 0, "")
	pdf.CellFormat(100, 8, rec.Email, "", 1, "L", false, 0, "")
	pdf.Ln(8)

	// Line item table: one row, amount rendered verbatim
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(80, 8, "Description", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, "Due Date", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, "Amount (INR)", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(80, 8, "Monthly Rent", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, rec.DueDate, "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, fmt.Sprintf("Rs. %s", rec.RentAmount), "", 1, "L", false, 0, "")

	// Notes block
	pdf.Ln(10)
	pdf.MultiCell(190, 8, fmt.Sprintf("Notes: %s", rec.Notes), "", "L", false)

	// Footer
	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(190, 8, "Please pay before the due date. Thank you!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write invoice PDF: %w", err)
	}

	r.logger.Info("Invoice rendered",
		zap.String("tenant", rec.TenantName),
		zap.String("bill_month", rec.BillMonth),
		zap.String("path", path))

	return path, nil
}

// sanitize makes a record field safe as a path component: spaces become
// underscores and path separators are stripped.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "\\", "")
	return s
}
