// inspect.go implements the "planet inspect" command.
package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/planet-dev/planet/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.pdf>",
	Short: "Check a PDF locally before uploading it",
	Long: `Report a PDF's size, page count and whether it has extractable text.
Scanned PDFs without a text layer usually answer poorly.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	report, err := inspect.File(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", report.Name)
	fmt.Printf("  size   %s\n", humanize.Bytes(uint64(report.Size)))
	fmt.Printf("  pages  %d\n", report.Pages)
	if report.HasText {
		fmt.Printf("  text   yes (%q)\n", report.Preview)
	} else {
		fmt.Println("  text   none found; answers may be empty")
	}
	return nil
}
