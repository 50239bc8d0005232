// chat.go implements "planet chat" and the full-screen chat started by the
// bare "planet" command.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/planet-dev/planet/internal/repl"
	"github.com/planet-dev/planet/internal/tui"
	"github.com/planet-dev/planet/internal/tui/app"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat line by line in the terminal",
	Long: `Start a plain, line-oriented chat. Each line is a question about the
bound document. Commands: /upload <file.pdf>, /docs, /quit.

Use --document to start bound to a file the server already holds.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var chatDocumentFlag string

func init() {
	chatCmd.Flags().StringVar(&chatDocumentFlag, "document", "", "Start bound to a document already on the server")
}

func runChat(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context(), runtimeOptions{binding: chatDocumentFlag})
	if err != nil {
		return err
	}
	defer rt.close()

	r := repl.New(rt.ctrl, rt.client, os.Stdin, os.Stdout)
	if !tui.IsTTY() {
		r.SetPrompt("")
	}
	return r.Run(cmd.Context())
}

func runTUI(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := newRuntime(ctx, runtimeOptions{quiet: true})
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := rt.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	a := app.New(ctx, rt.ctrl, rt.client, app.Options{
		Dir:      rt.dir,
		Markdown: rt.cfg.Chat.RenderMarkdown,
	})
	p := tui.NewProgram(a)
	go app.Forward(ctx, p, events)

	_, err = p.Run()
	return err
}
