package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/atlas-finance/wisebook/internal/accounts"
	"github.com/atlas-finance/wisebook/internal/importer"
)

// FileName is the config file at the root of a ledger directory.
const FileName = "wisebook.yaml"

// Config represents the top-level wisebook.yaml configuration.
type Config struct {
	Business BusinessConfig `yaml:"business"`
	Import   ImportConfig   `yaml:"import"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Git      GitConfig      `yaml:"git"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name        string `yaml:"name"`
	Country     string `yaml:"country"`      // ISO 3166 alpha-2, e.g. "CI"
	ChartSystem string `yaml:"chart_system"` // "syscohada" or "syscohada_minimal"
}

// ImportConfig controls parsing, balancing and duplicate policy.
type ImportConfig struct {
	Currency             string           `yaml:"currency"`
	BalanceTolerance     int64            `yaml:"balance_tolerance"`    // minor units
	AutoBalanceCeiling   int64            `yaml:"auto_balance_ceiling"` // minor units, 0 disables
	DuplicateStrict      bool             `yaml:"duplicate_strict"`
	AccountWarningPolicy string           `yaml:"account_warning_policy"` // warn | ignore
	SuspenseAccount      string           `yaml:"suspense_account"`
	AllowSubAccounts     bool             `yaml:"allow_sub_accounts"`
	Workers              int              `yaml:"workers"` // 0 means GOMAXPROCS
	DecimalSeparator     string           `yaml:"decimal_separator"`
	ThousandsSeparator   string           `yaml:"thousands_separator,omitempty"`
	DateLayouts          []string         `yaml:"date_layouts,omitempty"`
	Delimiter            string           `yaml:"delimiter,omitempty"` // empty sniffs the first line
	Encoding             string           `yaml:"encoding,omitempty"`
	Sheet                string           `yaml:"sheet,omitempty"`
	Mapping              importer.Mapping `yaml:"mapping"`
}

// DatabaseConfig selects the PostgreSQL ledger. An empty URL keeps the file ledger.
type DatabaseConfig struct {
	URL  string `yaml:"url,omitempty"`
	Node int64  `yaml:"node"` // snowflake node for entry IDs
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	MaxUploadSize int64  `yaml:"max_upload_size"` // bytes
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a wisebook.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:        businessName,
			Country:     "CI",
			ChartSystem: "syscohada",
		},
		Import: ImportConfig{
			Currency:             "XOF",
			AccountWarningPolicy: string(accounts.WarnOnSide),
			SuspenseAccount:      accounts.SuspenseAccount,
			AllowSubAccounts:     true,
			DecimalSeparator:     ".",
			Mapping:              importer.DefaultMapping(),
		},
		Database: DatabaseConfig{
			Node: 1,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			MaxUploadSize: 32 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "WiseBook Import",
			AuthorEmail: "import@wisebook.local",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	im := c.Import

	if strings.TrimSpace(im.Currency) == "" {
		errs = append(errs, errors.New("import.currency is required"))
	}
	if im.BalanceTolerance < 0 {
		errs = append(errs, errors.New("import.balance_tolerance must not be negative"))
	}
	if im.AutoBalanceCeiling < 0 {
		errs = append(errs, errors.New("import.auto_balance_ceiling must not be negative"))
	}
	switch accounts.WarningPolicy(im.AccountWarningPolicy) {
	case accounts.WarnOnSide, accounts.IgnoreOnSide:
	default:
		errs = append(errs, fmt.Errorf("import.account_warning_policy %q must be warn or ignore", im.AccountWarningPolicy))
	}
	if im.SuspenseAccount == "" || strings.Trim(im.SuspenseAccount, "0123456789") != "" {
		errs = append(errs, fmt.Errorf("import.suspense_account %q must be a numeric account code", im.SuspenseAccount))
	}
	if im.Workers < 0 {
		errs = append(errs, errors.New("import.workers must not be negative"))
	}
	if im.DecimalSeparator != "." && im.DecimalSeparator != "," {
		errs = append(errs, fmt.Errorf("import.decimal_separator %q must be . or ,", im.DecimalSeparator))
	}
	if im.ThousandsSeparator != "" && im.ThousandsSeparator == im.DecimalSeparator {
		errs = append(errs, errors.New("import.thousands_separator must differ from the decimal separator"))
	}
	if len([]rune(im.ThousandsSeparator)) > 1 || len([]rune(im.Delimiter)) > 1 {
		errs = append(errs, errors.New("import separators and delimiter must be a single character"))
	}
	switch strings.ToLower(im.Encoding) {
	case "", "utf-8", "utf8", "iso-8859-1", "latin1", "windows-1252", "cp1252":
	default:
		errs = append(errs, fmt.Errorf("import.encoding %q is not supported", im.Encoding))
	}
	if im.Mapping.Account == "" || im.Mapping.Date == "" {
		errs = append(errs, errors.New("import.mapping needs account and date columns"))
	}
	if im.Mapping.Amount == "" && im.Mapping.Debit == "" && im.Mapping.Credit == "" {
		errs = append(errs, errors.New("import.mapping needs debit/credit columns or an amount column"))
	}
	if c.Database.Node < 0 || c.Database.Node > 1023 {
		errs = append(errs, fmt.Errorf("database.node %d out of range 0-1023", c.Database.Node))
	}
	return errors.Join(errs...)
}
