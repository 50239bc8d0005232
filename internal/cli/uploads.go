// uploads.go implements the "planet uploads" command listing the ledger.
package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List past upload attempts",
	Long: `List upload attempts recorded in .planet/uploads.db, newest first.
The ledger records what was sent to the server, never conversations.`,
	Args: cobra.NoArgs,
	RunE: runUploads,
}

var uploadsLimitFlag int

func init() {
	uploadsCmd.Flags().IntVarP(&uploadsLimitFlag, "limit", "n", 20, "Show at most N uploads (0 = all)")
}

func runUploads(cmd *cobra.Command, args []string) error {
	dir, _, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openLedger(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	uploads, err := store.List(uploadsLimitFlag)
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		fmt.Println("No uploads recorded.")
		return nil
	}

	for _, u := range uploads {
		outcome := "ok"
		if u.Failed {
			outcome = "failed: " + u.Detail
		}
		fmt.Printf("  %-14s  %-30s  %8s  %s\n",
			humanize.Time(u.CreatedAt), u.Filename, humanize.Bytes(uint64(u.Size)), outcome)
	}
	return nil
}
