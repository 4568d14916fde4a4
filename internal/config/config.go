package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/larsfjeld/beanpost/internal/common"
	"github.com/larsfjeld/beanpost/internal/rules"
)

// DefaultStateDB is where the deduplication registry lives unless
// configured otherwise.
const DefaultStateDB = "~/.local/share/beanpost/registry.db"

// Config is the fully parsed application configuration.
type Config struct {
	Ledger         LedgerConfig
	Import         ImportConfig
	Classification ClassificationConfig
}

// LedgerConfig names the tracked account and its currency.
type LedgerConfig struct {
	Account  string
	Currency string
	StateDB  string
}

// ImportConfig controls the statement import pipeline.
type ImportConfig struct {
	SkipDeduplication bool
	BalanceAssertions bool
}

// ClassificationConfig holds the parsed classification rules.
type ClassificationConfig struct {
	DefaultAccount         string
	DefaultSplitPercentage *decimal.Decimal
	Rules                  []rules.TransactionPattern
}

// Raw file shapes. Monetary values are decoded as strings so the decimal
// representation written in the config file survives parsing exactly.
type fileConfig struct {
	Ledger         fileLedger         `mapstructure:"ledger"`
	Import         fileImport         `mapstructure:"import"`
	Classification fileClassification `mapstructure:"classification"`
}

type fileLedger struct {
	Account  string `mapstructure:"account"`
	Currency string `mapstructure:"currency"`
	StateDB  string `mapstructure:"state_db"`
}

type fileImport struct {
	SkipDeduplication bool `mapstructure:"skip_deduplication"`
	BalanceAssertions bool `mapstructure:"balance_assertions"`
}

type fileClassification struct {
	DefaultAccount         string     `mapstructure:"default_account"`
	DefaultSplitPercentage string     `mapstructure:"default_split_percentage"`
	Rules                  []fileRule `mapstructure:"rules"`
}

type fileRule struct {
	Narration       string            `mapstructure:"narration"`
	Regex           bool              `mapstructure:"regex"`
	CaseInsensitive bool              `mapstructure:"case_insensitive"`
	Amount          *fileAmount       `mapstructure:"amount"`
	Fields          map[string]string `mapstructure:"fields"`
	FieldsRegex     bool              `mapstructure:"fields_regex"`
	Account         string            `mapstructure:"account"`
	Splits          []fileSplit       `mapstructure:"splits"`
	SharedWith      []fileShared      `mapstructure:"shared_with"`
}

type fileAmount struct {
	Operator string `mapstructure:"operator"`
	Value    string `mapstructure:"value"`
	Value2   string `mapstructure:"value2"`
}

type fileSplit struct {
	Account    string `mapstructure:"account"`
	Percentage string `mapstructure:"percentage"`
}

type fileShared struct {
	Account       string `mapstructure:"account"`
	Percentage    string `mapstructure:"percentage"`
	OffsetAccount string `mapstructure:"offset_account"`
}

// Load parses the configuration held by the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	var raw fileConfig
	// WeaklyTypedInput lets bare YAML numbers decode into the string
	// fields used for exact decimal parsing.
	if err := v.Unmarshal(&raw, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrInvalidConfig, err)
	}

	if raw.Ledger.Account == "" {
		return nil, fmt.Errorf("%w: ledger.account is required", common.ErrMissingConfig)
	}

	cfg := &Config{
		Ledger: LedgerConfig{
			Account:  raw.Ledger.Account,
			Currency: strings.TrimSpace(raw.Ledger.Currency),
			StateDB:  ExpandPath(raw.Ledger.StateDB),
		},
		Import: ImportConfig(raw.Import),
	}
	if cfg.Ledger.StateDB == "" {
		cfg.Ledger.StateDB = ExpandPath(DefaultStateDB)
	}

	cfg.Classification.DefaultAccount = raw.Classification.DefaultAccount
	if s := strings.TrimSpace(raw.Classification.DefaultSplitPercentage); s != "" {
		pct, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid default_split_percentage %q", common.ErrInvalidConfig, s)
		}
		cfg.Classification.DefaultSplitPercentage = &pct
	}

	for i, r := range raw.Classification.Rules {
		p, err := buildPattern(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		cfg.Classification.Rules = append(cfg.Classification.Rules, p)
	}

	return cfg, nil
}

func buildPattern(r fileRule) (rules.TransactionPattern, error) {
	p := rules.TransactionPattern{
		Narration:       r.Narration,
		Regex:           r.Regex,
		CaseInsensitive: r.CaseInsensitive,
		Fields:          r.Fields,
		FieldsRegex:     r.FieldsRegex,
		Account:         r.Account,
	}

	if r.Amount != nil {
		cond := rules.AmountCondition{Operator: rules.AmountOperator(r.Amount.Operator)}
		v, err := parseDecimal(r.Amount.Value, "amount.value")
		if err != nil {
			return p, err
		}
		cond.Value = v
		if strings.TrimSpace(r.Amount.Value2) != "" {
			v2, err := parseDecimal(r.Amount.Value2, "amount.value2")
			if err != nil {
				return p, err
			}
			cond.Value2 = &v2
		}
		p.Amount = &cond
	}

	for _, s := range r.Splits {
		pct, err := parseDecimal(s.Percentage, "split percentage")
		if err != nil {
			return p, err
		}
		p.Splits = append(p.Splits, rules.AccountSplit{Account: s.Account, Percentage: pct})
	}

	for _, s := range r.SharedWith {
		pct, err := parseDecimal(s.Percentage, "shared percentage")
		if err != nil {
			return p, err
		}
		p.SharedWith = append(p.SharedWith, rules.SharedExpense{
			ReceivableAccount: s.Account,
			Percentage:        pct,
			OffsetAccount:     s.OffsetAccount,
		})
	}

	// Compiling here surfaces bad regexes at load time and applies the
	// shared-expense offset default.
	if err := p.Compile(); err != nil {
		return p, err
	}
	return p, nil
}

func parseDecimal(s, what string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: invalid %s %q", common.ErrInvalidConfig, what, s)
	}
	return d, nil
}
