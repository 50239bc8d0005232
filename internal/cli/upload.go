// upload.go implements the "planet upload" command.
package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/planet-dev/planet/internal/session"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF to the server",
	Long: `Upload a PDF so it can be questioned later with
"planet ask --document <name>" or "planet chat --document <name>".
The file keeps its base name on the server.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	doc, err := session.DocumentFromFile(args[0])
	if err != nil {
		return err
	}

	rt, err := newRuntime(cmd.Context(), runtimeOptions{noSeed: true})
	if err != nil {
		return err
	}
	defer rt.close()

	name, err := rt.ctrl.UploadDocument(cmd.Context(), doc)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("Uploaded %s (%s)\n", name, humanize.Bytes(uint64(doc.Size)))
	return nil
}
