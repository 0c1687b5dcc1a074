package config

import (
	"github.com/atlas-finance/wisebook/internal/accounts"
	"github.com/atlas-finance/wisebook/internal/importer"
	"github.com/atlas-finance/wisebook/internal/money"
	"github.com/atlas-finance/wisebook/internal/pipeline"
)

// PipelineOptions converts the import settings into orchestrator options.
func (c *Config) PipelineOptions() pipeline.Options {
	im := c.Import
	format := money.Format{Decimal: firstRune(im.DecimalSeparator, '.'), Thousands: firstRune(im.ThousandsSeparator, 0)}
	return pipeline.Options{
		Parse: importer.Options{
			Mapping:     im.Mapping,
			DateLayouts: im.DateLayouts,
			Format:      format,
			Currency:    im.Currency,
			Workers:     im.Workers,
		},
		BalanceTolerance:     im.BalanceTolerance,
		AutoBalanceCeiling:   im.AutoBalanceCeiling,
		DuplicateStrict:      im.DuplicateStrict,
		AccountWarningPolicy: accounts.WarningPolicy(im.AccountWarningPolicy),
		AllowSubAccounts:     im.AllowSubAccounts,
		SuspenseAccount:      im.SuspenseAccount,
	}
}

// Registry returns the decoders configured for imports.
func (c *Config) Registry() *importer.Registry {
	r := importer.NewRegistry()
	r.Register(&importer.CSVDecoder{Comma: firstRune(c.Import.Delimiter, 0), Encoding: c.Import.Encoding})
	r.Register(&importer.XLSXDecoder{Sheet: c.Import.Sheet, Decimal: firstRune(c.Import.DecimalSeparator, '.')})
	return r
}

func firstRune(s string, def rune) rune {
	for _, r := range s {
		return r
	}
	return def
}
