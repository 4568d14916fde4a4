package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/larsfjeld/beanpost/internal/cli"
	"github.com/larsfjeld/beanpost/internal/config"
	"github.com/larsfjeld/beanpost/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the configured classification rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesCheckCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List classification rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle("Classification rules"))

			if len(cfg.Classification.Rules) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No rules configured."))
			}

			for i, rule := range cfg.Classification.Rules {
				fmt.Fprintf(out, "%3d. %s → %s\n",
					i+1,
					describePredicates(rule),
					describeDestination(rule))
			}

			if cfg.Classification.DefaultAccount != "" {
				line := fmt.Sprintf("default → %s", cfg.Classification.DefaultAccount)
				if pct := cfg.Classification.DefaultSplitPercentage; pct != nil {
					line += fmt.Sprintf(" (review split %s%%)", pct)
				}
				fmt.Fprintln(out, cli.SubtleStyle.Render(line))
			}

			return nil
		},
	}
}

func rulesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				fmt.Fprintln(out, cli.FormatError(err.Error()))
				return err
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
				"Configuration valid: %d rule(s) for %s",
				len(cfg.Classification.Rules),
				cli.AccountStyle.Render(cfg.Ledger.Account))))

			return nil
		},
	}
}

func describePredicates(rule rules.TransactionPattern) string {
	var parts []string

	if rule.Narration != "" {
		kind := "narration contains"
		if rule.Regex {
			kind = "narration matches"
		}
		parts = append(parts, fmt.Sprintf("%s %q", kind, rule.Narration))
	}
	if rule.Amount != nil {
		parts = append(parts, describeAmount(rule.Amount))
	}
	for name, sub := range rule.Fields {
		parts = append(parts, fmt.Sprintf("%s~%q", name, sub))
	}

	return strings.Join(parts, " and ")
}

func describeAmount(c *rules.AmountCondition) string {
	switch c.Operator {
	case rules.AmountLessThan:
		return fmt.Sprintf("amount < %s", c.Value)
	case rules.AmountLessEqual:
		return fmt.Sprintf("amount <= %s", c.Value)
	case rules.AmountGreaterThan:
		return fmt.Sprintf("amount > %s", c.Value)
	case rules.AmountGreaterEqual:
		return fmt.Sprintf("amount >= %s", c.Value)
	case rules.AmountEqual:
		return fmt.Sprintf("amount == %s", c.Value)
	case rules.AmountRange:
		return fmt.Sprintf("amount in [%s, %s]", c.Value, c.Value2)
	default:
		return string(c.Operator)
	}
}

func describeDestination(rule rules.TransactionPattern) string {
	var dest string
	if rule.Account != "" {
		dest = cli.AccountStyle.Render(rule.Account)
	} else {
		parts := make([]string, 0, len(rule.Splits))
		for _, s := range rule.Splits {
			parts = append(parts, fmt.Sprintf("%s %s%%", cli.AccountStyle.Render(s.Account), s.Percentage))
		}
		dest = strings.Join(parts, ", ")
	}

	for _, s := range rule.SharedWith {
		dest += fmt.Sprintf(", shared %s%% via %s", s.Percentage, cli.AccountStyle.Render(s.ReceivableAccount))
	}

	return dest
}
