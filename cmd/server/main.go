package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rentdesk/rent-reminder/internal/config"
	"github.com/rentdesk/rent-reminder/internal/email"
	httpapi "github.com/rentdesk/rent-reminder/internal/interfaces/http"
	"github.com/rentdesk/rent-reminder/internal/invoice"
	"github.com/rentdesk/rent-reminder/internal/reminder"
	"github.com/rentdesk/rent-reminder/internal/repository"
	"github.com/rentdesk/rent-reminder/internal/sheet"
	"github.com/rentdesk/rent-reminder/pkg/database"
	"github.com/rentdesk/rent-reminder/pkg/utils"
)

func main() {
	cfg, err := config.Load(configPath())
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

	logger.Info("Starting rent reminder admin server",
		zap.Int("port", cfg.Server.Port),
		zap.String("sheets_backend", cfg.Sheets.Backend))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize record store", zap.Error(err))
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

	handlers := httpapi.NewHandlers(store, renderer, engine, auditRepo, logger)
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		AdminPassword: cfg.Server.AdminPassword,
	}, handlers, logger)

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newStore selects the record store backend.
func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (sheet.Store, error) {
	switch cfg.Sheets.Backend {
	case "excel":
		return sheet.NewExcelStore(sheet.ExcelConfig{
			Path:         cfg.Sheets.ExcelPath,
			Worksheet:    cfg.Sheets.Worksheet,
			LogWorksheet: cfg.Sheets.LogWorksheet,
		}, logger), nil
	default:
		return sheet.NewGoogleStore(ctx, sheet.GoogleConfig{
			CredentialsFile: cfg.Sheets.CredentialsFile,
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Worksheet:       cfg.Sheets.Worksheet,
			LogWorksheet:    cfg.Sheets.LogWorksheet,
		}, logger)
	}
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config.yaml"
}
