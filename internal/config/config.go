package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Invoice  InvoiceConfig  `mapstructure:"invoice"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// SheetsConfig holds record store configuration. Backend selects the
// implementation: "google" talks to the Google Sheets API, "excel"
// operates on a local workbook file.
type SheetsConfig struct {
	Backend         string `mapstructure:"backend"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Worksheet       string `mapstructure:"worksheet"`
	LogWorksheet    string `mapstructure:"log_worksheet"`
	ExcelPath       string `mapstructure:"excel_path"`
}

// InvoiceConfig holds invoice rendering configuration
type InvoiceConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	CompanyName string `mapstructure:"company_name"`
}

// SMTPConfig holds outbound email configuration
type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	SenderName string `mapstructure:"sender_name"`
}

// DatabaseConfig holds the local audit database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// A local .env file is optional; real deployments set the
	// variables directly.
	_ = gotenv.Load()

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Sheets defaults
	viper.SetDefault("sheets.backend", "google")
	viper.SetDefault("sheets.worksheet", "RentBills")
	viper.SetDefault("sheets.log_worksheet", "Log")

	// Invoice defaults
	viper.SetDefault("invoice.output_dir", "receipts")

	// SMTP defaults
	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 465)

	// Database defaults
	viper.SetDefault("database.path", "data/rent-reminder.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("server.admin_password", "ADMIN_PASSWORD")
	viper.BindEnv("sheets.spreadsheet_id", "SPREADSHEET_ID")
	viper.BindEnv("sheets.credentials_file", "GOOGLE_CREDS_FILE")
	viper.BindEnv("smtp.username", "EMAIL")
	viper.BindEnv("smtp.password", "EMAIL_PASS")
	viper.BindEnv("invoice.company_name", "COMPANY_NAME")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.AdminPassword == "" {
		return fmt.Errorf("server.admin_password is required")
	}

	switch c.Sheets.Backend {
	case "google":
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets.spreadsheet_id is required for the google backend")
		}
		if c.Sheets.CredentialsFile == "" {
			return fmt.Errorf("sheets.credentials_file is required for the google backend")
		}
	case "excel":
		if c.Sheets.ExcelPath == "" {
			return fmt.Errorf("sheets.excel_path is required for the excel backend")
		}
	default:
		return fmt.Errorf("sheets.backend must be google or excel, got %q", c.Sheets.Backend)
	}

	if c.SMTP.Username == "" {
		return fmt.Errorf("smtp.username is required")
	}
	if c.SMTP.Password == "" {
		return fmt.Errorf("smtp.password is required")
	}

	if c.Invoice.CompanyName == "" {
		return fmt.Errorf("invoice.company_name is required")
	}

	return nil
}
