package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WISEBOOK_DATABASE_URL.
const EnvPrefix = "WISEBOOK"

// ApplyEnv overrides cfg from the environment, after loading <root>/.env when present.
// Keys mirror the YAML paths with dots replaced by underscores.
func ApplyEnv(cfg *Config, root string) error {
	_ = godotenv.Load(filepath.Join(root, ".env"))

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	strs := map[string]*string{
		"business.name":                 &cfg.Business.Name,
		"import.currency":               &cfg.Import.Currency,
		"import.account_warning_policy": &cfg.Import.AccountWarningPolicy,
		"import.suspense_account":       &cfg.Import.SuspenseAccount,
		"import.encoding":               &cfg.Import.Encoding,
		"database.url":                  &cfg.Database.URL,
		"server.addr":                   &cfg.Server.Addr,
		"log.level":                     &cfg.Log.Level,
		"log.format":                    &cfg.Log.Format,
	}
	for key, dst := range strs {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	bools := map[string]*bool{
		"import.duplicate_strict":   &cfg.Import.DuplicateStrict,
		"import.allow_sub_accounts": &cfg.Import.AllowSubAccounts,
		"git.auto_commit":           &cfg.Git.AutoCommit,
	}
	for key, dst := range bools {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	if err := v.BindEnv("import.workers"); err != nil {
		return fmt.Errorf("binding import.workers: %w", err)
	}
	if v.IsSet("import.workers") {
		cfg.Import.Workers = v.GetInt("import.workers")
	}

	ints := map[string]*int64{
		"import.balance_tolerance":    &cfg.Import.BalanceTolerance,
		"import.auto_balance_ceiling": &cfg.Import.AutoBalanceCeiling,
	}
	for key, dst := range ints {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
		if !v.IsSet(key) {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v.GetString(key)), 10, 64)
		if err != nil {
			return fmt.Errorf("%s_%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), err)
		}
		*dst = n
	}
	return nil
}
