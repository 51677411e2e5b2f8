package invoice

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rentdesk/rent-reminder/internal/models"
)

func testRecord() models.TenantRecord {
	return models.TenantRecord{
		TenantName: "Asha Verma",
		Email:      "asha@example.com",
		BillMonth:  "March 2025",
		DueDate:    "17/03",
		RentAmount: "12500",
		Notes:      "Includes water charges",
	}
}

func TestRenderer_PathFor(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	r := NewRenderer("/tmp/receipts", "Sharma Properties", logger)
	now := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	t.Run("year-month comes from the bill month", func(t *testing.T) {
		path := r.PathFor(testRecord(), now)

		assert.Equal(t,
			filepath.Join("/tmp/receipts", "2025-03", "Rent_Bill_Asha_Verma_March_2025.pdf"),
			path)
	})

	t.Run("falls back to wall clock for unparseable bill month", func(t *testing.T) {
		rec := testRecord()
		rec.BillMonth = "Q1"

		path := r.PathFor(rec, now)

		assert.Equal(t,
			filepath.Join("/tmp/receipts", "2026-01", "Rent_Bill_Asha_Verma_Q1.pdf"),
			path)
	})

	t.Run("strips path separators from fields", func(t *testing.T) {
		rec := testRecord()
		rec.TenantName = "../evil/name"

		path := r.PathFor(rec, now)

		assert.NotContains(t, filepath.Base(path), "/")
		assert.NotContains(t, path, "..")
	})
}

func TestRenderer_Render(t *testing.T) {
	tempDir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	r := NewRenderer(tempDir, "Sharma Properties", logger)

	t.Run("writes the PDF at the canonical path", func(t *testing.T) {
		path, err := r.Render(testRecord())

		require.NoError(t, err)
		assert.Equal(t, r.InvoicePath(testRecord()), path)
		assert.FileExists(t, path)
	})

	t.Run("produces a readable one-page document", func(t *testing.T) {
		path, err := r.Render(testRecord())
		require.NoError(t, err)

		doc, err := fitz.New(path)
		require.NoError(t, err)
		defer doc.Close()

		assert.Equal(t, 1, doc.NumPage())

		text, err := doc.Text(0)
		require.NoError(t, err)
		assert.Contains(t, text, "Sharma Properties")
		assert.Contains(t, text, "Asha Verma")
		assert.Contains(t, text, "Monthly Rent")
		assert.Contains(t, text, "Rs. 12500")
		assert.Contains(t, text, "Includes water charges")
	})

	t.Run("re-rendering overwrites the same file", func(t *testing.T) {
		first, err := r.Render(testRecord())
		require.NoError(t, err)
		info1, err := os.Stat(first)
		require.NoError(t, err)

		second, err := r.Render(testRecord())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		info2, err := os.Stat(second)
		require.NoError(t, err)
		assert.False(t, info2.ModTime().Before(info1.ModTime()))
	})
}
