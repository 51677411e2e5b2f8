// Command send-reminders runs one reminder sweep and exits. The
// eligibility windows are exact day offsets, so this is meant to run
// from cron once a day.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rentdesk/rent-reminder/internal/config"
	"github.com/rentdesk/rent-reminder/internal/email"
	"github.com/rentdesk/rent-reminder/internal/invoice"
	"github.com/rentdesk/rent-reminder/internal/reminder"
	"github.com/rentdesk/rent-reminder/internal/repository"
	"github.com/rentdesk/rent-reminder/internal/sheet"
	"github.com/rentdesk/rent-reminder/pkg/database"
	"github.com/rentdesk/rent-reminder/pkg/utils"
)

func main() {
	configPath := "configs/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	var store sheet.Store
	if cfg.Sheets.Backend == "excel" {
		store = sheet.NewExcelStore(sheet.ExcelConfig{
			Path:         cfg.Sheets.ExcelPath,
			Worksheet:    cfg.Sheets.Worksheet,
			LogWorksheet: cfg.Sheets.LogWorksheet,
		}, logger)
	} else {
		store, err = sheet.NewGoogleStore(ctx, sheet.GoogleConfig{
			CredentialsFile: cfg.Sheets.CredentialsFile,
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Worksheet:       cfg.Sheets.Worksheet,
			LogWorksheet:    cfg.Sheets.LogWorksheet,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize record store", zap.Error(err))
		}
	}

	renderer := invoice.NewRenderer(cfg.Invoice.OutputDir, cfg.Invoice.CompanyName, logger)
	sender := email.NewSender(email.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		SenderName: cfg.Invoice.CompanyName,
	}, logger)
	auditRepo := repository.NewAuditRepository(db.DB, logger)

	engine := reminder.NewEngine(store, renderer, sender, auditRepo, logger)

	report, err := engine.Run(ctx)
	if err != nil {
		logger.Fatal("Reminder sweep failed", zap.Error(err))
	}

	fmt.Printf("processed=%d sent=%d skipped=%d warnings=%d\n",
		report.Processed, report.Sent, report.Skipped, len(report.Warnings))
	for _, w := range report.Warnings {
		fmt.Println("warning:", w)
	}
}
