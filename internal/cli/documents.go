// documents.go implements the "planet documents" command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List documents on the server",
	Args:    cobra.NoArgs,
	RunE:    runDocuments,
}

func runDocuments(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	docs, err := client.Documents(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("No documents on server.")
		return nil
	}
	for _, d := range docs {
		fmt.Printf("  %3d  %s\n", d.ID, d.Filename)
	}
	return nil
}
