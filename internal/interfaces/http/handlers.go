package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rentdesk/rent-reminder/internal/models"
	"github.com/rentdesk/rent-reminder/internal/reminder"
	"github.com/rentdesk/rent-reminder/internal/repository"
	"github.com/rentdesk/rent-reminder/internal/sheet"
)

// SweepRunner triggers a reminder sweep.
type SweepRunner interface {
	Run(ctx context.Context) (reminder.Report, error)
}

// InvoiceLocator resolves the canonical invoice path for a record.
type InvoiceLocator interface {
	InvoicePath(rec models.TenantRecord) string
}

// AuditLister lists locally recorded reminder sends. May be nil.
type AuditLister interface {
	ListRecent(ctx context.Context, limit int) ([]repository.ReminderSend, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	store    sheet.Store
	invoices InvoiceLocator
	engine   SweepRunner
	audit    AuditLister
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance. audit may be nil.
func NewHandlers(store sheet.Store, invoices InvoiceLocator, engine SweepRunner, audit AuditLister, logger *zap.Logger) *Handlers {
	return &Handlers{
		store:    store,
		invoices: invoices,
		engine:   engine,
		audit:    audit,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// TenantResponse represents one tenant row in API responses
type TenantResponse struct {
	TenantName       string `json:"tenant_name"`
	Email            string `json:"email"`
	BillMonth        string `json:"bill_month"`
	DueDate          string `json:"due_date"`
	RentAmount       string `json:"rent_amount"`
	Notes            string `json:"notes"`
	Status           string `json:"status"`
	SentOn           string `json:"sent_on,omitempty"`
	InvoiceAvailable bool   `json:"invoice_available"`
}

// SummaryResponse represents the paid/unpaid summary
type SummaryResponse struct {
	Total       int      `json:"total"`
	Paid        int      `json:"paid"`
	Unpaid      int      `json:"unpaid"`
	Months      []string `json:"months"`
	Outstanding string   `json:"outstanding"`
}

// LogResponse represents the external reminder log, latest-first. When
// the log sheet is unavailable the section degrades to an empty list
// with a warning instead of failing the request.
type LogResponse struct {
	Entries []models.LogEntry `json:"entries"`
	Warning string            `json:"warning,omitempty"`
}

// TogglePaidRequest marks a record paid or unpaid
type TogglePaidRequest struct {
	TenantName string `json:"tenant_name" binding:"required"`
	BillMonth  string `json:"bill_month" binding:"required"`
	Paid       string `json:"paid" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":  "healthy",
			"service": "rent-reminder",
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ListTenants handles GET /api/tenants. Each request fetches a fresh
// snapshot; month and status filters are applied in order.
func (h *Handlers) ListTenants(c *gin.Context) {
	month := c.Query("month")
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))

	records, err := h.store.FetchAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve tenant records",
		})
		return
	}

	var tenants []TenantResponse
	for _, rec := range records {
		if month != "" && month != "All" && rec.BillMonth != month {
			continue
		}
		if status != "" && status != "ALL" && rec.PaidStatus() != status {
			continue
		}

		path := h.invoices.InvoicePath(rec)
		_, statErr := os.Stat(path)

		tenants = append(tenants, TenantResponse{
			TenantName:       rec.TenantName,
			Email:            rec.Email,
			BillMonth:        rec.BillMonth,
			DueDate:          rec.DueDate,
			RentAmount:       rec.RentAmount,
			Notes:            rec.Notes,
			Status:           rec.PaidStatus(),
			SentOn:           rec.SentOn,
			InvoiceAvailable: statErr == nil,
		})
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: tenants})
}

// Summary handles GET /api/summary
func (h *Handlers) Summary(c *gin.Context) {
	records, err := h.store.FetchAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch records for summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve tenant records",
		})
		return
	}

	summary := SummaryResponse{Total: len(records)}
	months := make(map[string]bool)
	outstanding := decimal.Zero

	for _, rec := range records {
		if rec.BillMonth != "" {
			months[rec.BillMonth] = true
		}
		if rec.IsPaid() {
			summary.Paid++
			continue
		}
		summary.Unpaid++
		// Best-effort: unparseable amounts are excluded from the total
		// but still counted as unpaid.
		if amount, ok := rec.AmountDecimal(); ok {
			outstanding = outstanding.Add(amount)
		}
	}

	for m := range months {
		summary.Months = append(summary.Months, m)
	}
	sort.Strings(summary.Months)
	summary.Outstanding = outstanding.String()

	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// TogglePaid handles POST /api/tenants/paid with a single targeted
// cell write.
func (h *Handlers) TogglePaid(c *gin.Context) {
	var req TogglePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "tenant_name, bill_month and paid are required",
		})
		return
	}

	value := strings.ToUpper(strings.TrimSpace(req.Paid))
	if value != "PAID" && value != "UNPAID" {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "paid must be PAID or UNPAID",
		})
		return
	}

	key := models.RecordKey{TenantName: req.TenantName, BillMonth: req.BillMonth}
	if err := h.store.UpdateField(c.Request.Context(), key, models.ColPaid, value); err != nil {
		if errors.Is(err, sheet.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, Response{
				Success: false,
				Error:   "tenant record not found",
			})
			return
		}
		h.logger.Error("Failed to update paid state",
			zap.String("key", key.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to update record",
		})
		return
	}

	h.logger.Info("Paid state updated",
		zap.String("key", key.String()),
		zap.String("paid", value))
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"paid": value}})
}

// DownloadInvoice handles GET /api/tenants/invoice. The invoice is
// offered whenever the file exists at its canonical path, independent
// of whether a reminder was ever sent.
func (h *Handlers) DownloadInvoice(c *gin.Context) {
	rec := models.TenantRecord{
		TenantName: c.Query("tenant_name"),
		BillMonth:  c.Query("bill_month"),
	}
	if rec.TenantName == "" || rec.BillMonth == "" {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "tenant_name and bill_month are required",
		})
		return
	}

	path := h.invoices.InvoicePath(rec)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "invoice not available",
		})
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

// RunReminders handles POST /api/reminders/run. The sweep is
// synchronous and sequential; the response carries the per-record
// warnings it collected.
func (h *Handlers) RunReminders(c *gin.Context) {
	report, err := h.engine.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("Reminder sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "reminder sweep failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// ReminderLog handles GET /api/log
func (h *Handlers) ReminderLog(c *gin.Context) {
	entries, err := h.store.LogEntries(c.Request.Context())
	if err != nil {
		h.logger.Warn("Log sheet unavailable", zap.Error(err))
		c.JSON(http.StatusOK, Response{
			Success: true,
			Data:    LogResponse{Entries: []models.LogEntry{}, Warning: "log sheet not found"},
		})
		return
	}

	// Latest first
	reversed := make([]models.LogEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		reversed = append(reversed, entries[i])
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: LogResponse{Entries: reversed}})
}

// History handles GET /api/history
func (h *Handlers) History(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusOK, Response{Success: true, Data: []repository.ReminderSend{}})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	sends, err := h.audit.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list reminder history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve history",
		})
		return
	}
	if sends == nil {
		sends = []repository.ReminderSend{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: sends})
}
