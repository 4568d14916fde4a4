package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/larsfjeld/beanpost/internal/common"
	"github.com/larsfjeld/beanpost/internal/config"
	"github.com/larsfjeld/beanpost/internal/engine"
	"github.com/larsfjeld/beanpost/internal/ledger"
	"github.com/larsfjeld/beanpost/internal/model"
	"github.com/larsfjeld/beanpost/internal/ofx"
	"github.com/larsfjeld/beanpost/internal/storage"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Extract ledger entries from OFX/QBO statement files",
		Long: `Extract transactions from OFX or QBO files exported from your bank,
classify them against the configured rules and print beancount-style
directives on stdout.

Examples:
  # Extract a single statement
  beanpost extract ~/Downloads/activity.qbo

  # Extract everything in a directory
  beanpost extract ~/Downloads/amex/*.qbo

  # Preview without recording imported transaction ids
  beanpost extract --dry-run ~/Downloads/activity.qbo`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Extract without recording imported ids")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return common.NewUserError("configuration error", err)
	}

	files, err := expandFileArgs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to extract")
	}

	var registry *storage.Registry
	if !cfg.Import.SkipDeduplication {
		registry, err = storage.OpenRegistry(cfg.Ledger.StateDB)
		if err != nil {
			return err
		}
		defer func() { _ = registry.Close() }()
	}

	finalizer, err := engine.NewFinalizer(engine.FinalizerConfig{
		Patterns:               cfg.Classification.Rules,
		DefaultAccount:         cfg.Classification.DefaultAccount,
		DefaultSplitPercentage: cfg.Classification.DefaultSplitPercentage,
	})
	if err != nil {
		return err
	}

	slog.Info("Extracting statements",
		"file_count", len(files),
		"rule_count", len(cfg.Classification.Rules),
		"dry_run", dryRun)

	parser := ofx.NewParser(cfg.Ledger.Account, cfg.Ledger.Currency)
	renderer := ledger.NewRenderer()
	bar := newExtractProgressBar(len(files))

	var extracted, duplicates int
	out := cmd.OutOrStdout()

	for _, path := range files {
		stmt, err := parseStatementFile(ctx, parser, path)
		if err != nil {
			common.LogError(err, "Failed to parse statement", common.Fields{"file": path})
			_ = bar.Add(1)
			continue
		}

		var imported []string
		for _, txn := range stmt.Transactions {
			if registry != nil {
				seen, err := registry.Seen(ctx, txn.ID)
				if err != nil {
					return err
				}
				if seen {
					common.LogDebug("Skipping duplicate transaction", common.Fields{"id": txn.ID})
					duplicates++
					continue
				}
			}

			finalized := finalizer.Finalize(txn)
			if finalized == nil {
				continue
			}

			fmt.Fprintln(out, renderer.Transaction(*finalized))
			imported = append(imported, txn.ID)
			extracted++
		}

		if cfg.Import.BalanceAssertions && stmt.Balance != nil && !stmt.BalanceDate.IsZero() {
			fmt.Fprintln(out, renderer.Balance(cfg.Ledger.Account, *stmt.Balance, stmt.Currency, stmt.BalanceDate))
		}

		if registry != nil && !dryRun {
			if err := registry.MarkImported(ctx, stmt.AccountID, imported...); err != nil {
				return err
			}
		}

		_ = bar.Add(1)
	}

	attrs := []any{"extracted", extracted, "duplicates_skipped", duplicates}
	if registry != nil {
		if total, err := registry.Count(ctx); err == nil {
			attrs = append(attrs, "registry_total", total)
		}
	}
	slog.Info("Extraction complete", attrs...)

	return nil
}

// expandFileArgs expands glob patterns and collects all statement files.
func expandFileArgs(args []string) ([]string, error) {
	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			files = append(files, matches...)
		}
	}
	return files, nil
}

func parseStatementFile(ctx context.Context, parser *ofx.Parser, path string) (*model.Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	parsed, err := parser.ParseFile(ctx, f)
	if err != nil {
		return nil, err
	}
	return parsed, nil
}

func newExtractProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Extracting statements...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
