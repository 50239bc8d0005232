// ask.go implements the "planet ask" command for one-shot questions.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/planet-dev/planet/internal/session"
)

var askCmd = &cobra.Command{
	Use:   "ask [flags] <question>",
	Short: "Ask one question about a document",
	Long: `Ask a single question and print the answer.

With --file the PDF is uploaded first and the question is asked about it.
With --document the question is asked about a file already on the server.
With neither, the question is sent unbound and the server decides.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askFileFlag     string
	askDocumentFlag string
)

func init() {
	askCmd.Flags().StringVarP(&askFileFlag, "file", "f", "", "Upload this PDF first, then ask about it")
	askCmd.Flags().StringVarP(&askDocumentFlag, "document", "d", "", "Ask about a document already on the server")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askFileFlag != "" && askDocumentFlag != "" {
		return errors.New("--file and --document are mutually exclusive")
	}
	question := strings.Join(args, " ")

	var doc *session.Document
	if askFileFlag != "" {
		var err error
		doc, err = session.DocumentFromFile(askFileFlag)
		if err != nil {
			return err
		}
	}

	rt, err := newRuntime(cmd.Context(), runtimeOptions{noSeed: true, binding: askDocumentFlag})
	if err != nil {
		return err
	}
	defer rt.close()

	if doc != nil {
		if _, err := rt.ctrl.UploadDocument(cmd.Context(), doc); err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
	}

	answer, err := rt.ctrl.AskQuestion(cmd.Context(), question)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}
