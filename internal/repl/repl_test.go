package repl

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planet-dev/planet/internal/remote"
	"github.com/planet-dev/planet/internal/session"
	"github.com/planet-dev/planet/internal/testutil"
)

type stubRemote struct {
	ingested []string
	asked    []string
	binding  []string
	askErr   error
}

func (s *stubRemote) Ingest(ctx context.Context, name string, content io.Reader) error {
	s.ingested = append(s.ingested, name)
	return nil
}

func (s *stubRemote) Answer(ctx context.Context, filename, question string) (string, error) {
	s.asked = append(s.asked, question)
	s.binding = append(s.binding, filename)
	if s.askErr != nil {
		return "", s.askErr
	}
	return "answer to " + question, nil
}

type stubLister []remote.DocumentInfo

func (s stubLister) Documents(ctx context.Context) ([]remote.DocumentInfo, error) {
	return s, nil
}

func run(t *testing.T, r *stubRemote, docs DocumentLister, input string) (string, *session.Controller) {
	t.Helper()
	ctrl := session.NewController(session.NewState([]session.Message{{Role: session.RoleAssistant, Text: "hello"}}), r)
	var out bytes.Buffer
	rp := New(ctrl, docs, strings.NewReader(input), &out)
	rp.SetPrompt("")
	require.NoError(t, rp.Run(context.Background()))
	return out.String(), ctrl
}

func TestREPLUploadThenAsk(t *testing.T) {
	path := filepath.Join(testutil.TempProject(t, testutil.Documents("demo.pdf")), "demo.pdf")

	r := &stubRemote{}
	out, ctrl := run(t, r, nil, "/upload "+path+"\nWhat is it?\n/quit\nnever asked\n")

	assert.Contains(t, out, "planet: hello")
	assert.Contains(t, out, "bound to demo.pdf")
	assert.Contains(t, out, "planet: answer to What is it?")
	assert.Equal(t, []string{"demo.pdf"}, r.ingested)
	assert.Equal(t, []string{"What is it?"}, r.asked)
	assert.Equal(t, []string{"demo.pdf"}, r.binding)
	assert.Len(t, ctrl.Snapshot().Messages, 3)
}

func TestREPLBlankLinesAreNotQuestions(t *testing.T) {
	r := &stubRemote{}
	_, ctrl := run(t, r, nil, "\n   \n")
	assert.Empty(t, r.asked)
	assert.Len(t, ctrl.Snapshot().Messages, 1)
}

func TestREPLAskFailureContinues(t *testing.T) {
	r := &stubRemote{askErr: &remote.StatusError{StatusCode: 404, Detail: "Document not found."}}
	out, ctrl := run(t, r, nil, "first\nsecond")

	assert.Equal(t, 2, strings.Count(out, "error: Document not found."))
	assert.Equal(t, []string{"first", "second"}, r.asked)
	assert.Equal(t, session.StatusFailed, ctrl.Snapshot().Ask)
}

func TestREPLDocs(t *testing.T) {
	out, _ := run(t, &stubRemote{}, stubLister{{ID: 1, Filename: "a.pdf"}, {ID: 2, Filename: "b.pdf"}}, "/docs\n")
	assert.Contains(t, out, "a.pdf")
	assert.Contains(t, out, "b.pdf")
}

func TestREPLUnknownCommandAndMissingPath(t *testing.T) {
	r := &stubRemote{}
	out, _ := run(t, r, nil, "/frobnicate\n/upload\n")
	assert.Contains(t, out, "unknown command /frobnicate")
	assert.Contains(t, out, "usage: /upload")
	assert.Empty(t, r.asked)
}
