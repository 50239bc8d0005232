// Package repl is the line-oriented front end: every line is a question,
// except for slash commands. It is used by `planet chat` and whenever no
// terminal is attached.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/planet-dev/planet/internal/remote"
	"github.com/planet-dev/planet/internal/session"
)

// DocumentLister lists the documents the server holds.
type DocumentLister interface {
	Documents(ctx context.Context) ([]remote.DocumentInfo, error)
}

// REPL reads intents from in and prints the conversation to out.
type REPL struct {
	ctrl   *session.Controller
	docs   DocumentLister
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

// New creates a REPL driving ctrl. docs may be nil, which disables /docs.
func New(ctrl *session.Controller, docs DocumentLister, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		ctrl:   ctrl,
		docs:   docs,
		in:     bufio.NewReader(in),
		out:    out,
		prompt: "> ",
	}
}

// SetPrompt changes the input prompt; an empty prompt suits piped input.
func (r *REPL) SetPrompt(p string) {
	r.prompt = p
}

// Run prints the seeded conversation, then handles lines until /quit, end
// of input, or ctx ends. Failed operations are printed and the loop goes on.
func (r *REPL) Run(ctx context.Context) error {
	r.printHistory()
	r.println("Commands: /upload <file.pdf>, /docs, /quit")

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.out, r.prompt)

		line, err := r.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
			return nil
		}
		if eof {
			return nil
		}
	}
}

// handle runs one input line and reports whether the loop should stop.
func (r *REPL) handle(ctx context.Context, line string) bool {
	switch {
	case line == "":
		return false

	case line == "/quit" || line == "/exit":
		return true

	case line == "/help":
		r.println("Commands: /upload <file.pdf>, /docs, /quit. Anything else is a question.")

	case line == "/docs":
		r.listDocuments(ctx)

	case line == "/upload" || strings.HasPrefix(line, "/upload "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/upload"))
		if path == "" {
			r.println("usage: /upload <file.pdf>")
			return false
		}
		r.upload(ctx, path)

	case strings.HasPrefix(line, "/"):
		r.printf("unknown command %s\n", strings.Fields(line)[0])

	default:
		r.ask(ctx, line)
	}
	return false
}

func (r *REPL) upload(ctx context.Context, path string) {
	doc, err := session.DocumentFromFile(path)
	if err != nil {
		r.printf("error: %v\n", err)
		return
	}

	r.printf("uploading %s (%s)...\n", doc.Name, humanize.Bytes(uint64(doc.Size)))
	name, err := r.ctrl.UploadDocument(ctx, doc)
	if err != nil {
		r.printf("upload failed: %v\n", err)
		return
	}
	r.printf("bound to %s\n", name)
}

func (r *REPL) ask(ctx context.Context, question string) {
	answer, err := r.ctrl.AskQuestion(ctx, question)
	if err != nil {
		if session.IsValidation(err) {
			return
		}
		r.printf("error: %v\n", err)
		return
	}
	r.printf("planet: %s\n", answer)
}

func (r *REPL) listDocuments(ctx context.Context) {
	if r.docs == nil {
		r.println("document listing unavailable")
		return
	}
	docs, err := r.docs.Documents(ctx)
	if err != nil {
		r.printf("error: %v\n", err)
		return
	}
	if len(docs) == 0 {
		r.println("no documents on server")
		return
	}
	bound := r.ctrl.Snapshot().Binding
	for _, d := range docs {
		marker := " "
		if d.Filename == bound {
			marker = "*"
		}
		r.printf("%s %3d  %s\n", marker, d.ID, d.Filename)
	}
}

func (r *REPL) printHistory() {
	for _, m := range r.ctrl.Snapshot().Messages {
		switch m.Role {
		case session.RoleUser:
			r.printf("you: %s\n", m.Text)
		default:
			r.printf("planet: %s\n", m.Text)
		}
	}
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *REPL) println(s string) {
	fmt.Fprintln(r.out, s)
}
