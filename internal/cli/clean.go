// clean.go implements the "planet clean" command for pruning the upload ledger.
package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/planet-dev/planet/internal/ledger"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Prune old upload records",
	Long: `Remove old entries from the upload ledger (.planet/uploads.db).

By default, removes uploads older than the configured max_age_days (default 30).
Use --keep to keep only the N most recent uploads instead.
Use --dry-run to preview what would be removed.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

var (
	keepFlag   int
	dryRunFlag bool
)

func init() {
	cleanCmd.Flags().IntVar(&keepFlag, "keep", 0, "Keep only the last N uploads (0 = use age-based cleanup)")
	cleanCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview what would be removed without deleting")
}

func runClean(cmd *cobra.Command, args []string) error {
	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openLedger(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	var pruned []ledger.Upload
	if keepFlag > 0 {
		pruned, err = store.PruneKeepRecent(keepFlag, dryRunFlag)
	} else {
		maxAge := cfg.Ledger.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 30
		}
		pruned, err = store.PruneByAge(maxAge, dryRunFlag)
	}
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if len(pruned) == 0 {
		fmt.Println("No uploads to clean up.")
		return nil
	}

	verb := "Removed"
	if dryRunFlag {
		verb = "Would remove"
	}

	for _, u := range pruned {
		fmt.Printf("  %s %s (%s)\n", verb, u.Filename, humanize.Time(u.CreatedAt))
	}
	fmt.Printf("%s %d upload(s).\n", verb, len(pruned))

	return nil
}
