package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planet-dev/planet/internal/remote"
)

// fakeRemote answers from canned values. When gate is non-nil, every call
// blocks until a value is received from it.
type fakeRemote struct {
	mu        sync.Mutex
	gate      chan struct{}
	ingestErr error
	answerErr error
	answers   map[string]string
	ingested  []string
	asked     []askCall
}

type askCall struct {
	filename string
	question string
}

func (f *fakeRemote) Ingest(ctx context.Context, name string, content io.Reader) error {
	if f.gate != nil {
		<-f.gate
	}
	_, _ = io.Copy(io.Discard, content)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, name)
	return f.ingestErr
}

func (f *fakeRemote) Answer(ctx context.Context, filename, question string) (string, error) {
	f.mu.Lock()
	f.asked = append(f.asked, askCall{filename: filename, question: question})
	f.mu.Unlock()

	if f.gate != nil {
		<-f.gate
	}
	if f.answerErr != nil {
		return "", f.answerErr
	}
	if a, ok := f.answers[question]; ok {
		return a, nil
	}
	return "answer to " + question, nil
}

func (f *fakeRemote) calls() []askCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]askCall, len(f.asked))
	copy(out, f.asked)
	return out
}

func doc(name string) *Document {
	return &Document{Name: name, Size: 3, Content: strings.NewReader("pdf")}
}

var greeting = []Message{
	{Role: RoleUser, Text: "explain like im 5"},
	{Role: RoleAssistant, Text: "..."},
}

func TestAskSequenceInterleavesQuestionsAndAnswers(t *testing.T) {
	fr := &fakeRemote{}
	c := NewController(NewState(nil), fr)
	ctx := context.Background()

	questions := []string{"first?", "second?", "third?"}
	for _, q := range questions {
		_, err := c.AskQuestion(ctx, q)
		require.NoError(t, err)
	}

	var want []Message
	for _, q := range questions {
		want = append(want,
			Message{Role: RoleUser, Text: q},
			Message{Role: RoleAssistant, Text: "answer to " + q},
		)
	}
	snap := c.Snapshot()
	assert.Equal(t, want, snap.Messages)
	assert.Equal(t, StatusIdle, snap.Ask)
}

func TestAskEmptyIsNoOp(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		t.Run(fmt.Sprintf("%q", text), func(t *testing.T) {
			fr := &fakeRemote{}
			c := NewController(NewState(greeting), fr)
			before := c.Snapshot()

			task, err := c.Ask(context.Background(), text)
			assert.Nil(t, task)
			assert.ErrorIs(t, err, ErrEmptyQuestion)
			assert.True(t, IsValidation(err))
			assert.Equal(t, before, c.Snapshot())
			assert.Empty(t, fr.calls())
		})
	}
}

func TestAskTrimsQuestion(t *testing.T) {
	fr := &fakeRemote{}
	c := NewController(NewState(nil), fr)

	_, err := c.AskQuestion(context.Background(), "  what is it?  \n")
	require.NoError(t, err)

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "what is it?", snap.Messages[0].Text)
	assert.Equal(t, "what is it?", fr.calls()[0].question)
}

func TestAskWhileInFlightIsRejected(t *testing.T) {
	fr := &fakeRemote{gate: make(chan struct{})}
	c := NewController(NewState(nil), fr)
	ctx := context.Background()

	first, err := c.Ask(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, StatusInFlight, c.Snapshot().Ask)

	second, err := c.Ask(ctx, "y")
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrAskBusy)

	snap := c.Snapshot()
	assert.Equal(t, []Message{{Role: RoleUser, Text: "x"}}, snap.Messages)

	fr.gate <- struct{}{}
	answer, err := first.Wait()
	require.NoError(t, err)
	assert.Equal(t, "answer to x", answer)

	calls := fr.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "x", calls[0].question)

	snap = c.Snapshot()
	assert.Equal(t, []Message{
		{Role: RoleUser, Text: "x"},
		{Role: RoleAssistant, Text: "answer to x"},
	}, snap.Messages)
	assert.Equal(t, StatusIdle, snap.Ask)
}

func TestConcurrentAsksAdmitExactlyOne(t *testing.T) {
	fr := &fakeRemote{gate: make(chan struct{})}
	c := NewController(NewState(nil), fr)

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var accepted []*Task[string]
	busy := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := c.Ask(context.Background(), fmt.Sprintf("q%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, ErrAskBusy)
				busy++
				return
			}
			accepted = append(accepted, task)
		}(i)
	}
	wg.Wait()

	require.Len(t, accepted, 1)
	assert.Equal(t, n-1, busy)
	assert.Len(t, c.Snapshot().Messages, 1)

	close(fr.gate)
	_, err := accepted[0].Wait()
	require.NoError(t, err)
}

func TestAskFailureKeepsUserMessage(t *testing.T) {
	fr := &fakeRemote{answerErr: &remote.StatusError{StatusCode: 404, Detail: "Document not found."}}
	c := NewController(NewState(nil), fr)
	ctx := context.Background()

	_, err := c.UploadDocument(ctx, doc("demo.pdf"))
	require.NoError(t, err)

	_, err = c.AskQuestion(ctx, "what is it?")
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindRemoteRejection, se.Kind)
	assert.Equal(t, "Document not found.", err.Error())
	assert.Equal(t, 404, se.Status)

	snap := c.Snapshot()
	assert.Equal(t, []Message{{Role: RoleUser, Text: "what is it?"}}, snap.Messages)
	assert.Equal(t, "demo.pdf", snap.Binding)
	assert.Equal(t, StatusFailed, snap.Ask)
}

func TestAskRecoversAfterFailure(t *testing.T) {
	fr := &fakeRemote{answerErr: errors.New("connection refused")}
	c := NewController(NewState(nil), fr)
	ctx := context.Background()

	_, err := c.AskQuestion(ctx, "one")
	require.Error(t, err)
	assert.Equal(t, StatusFailed, c.Snapshot().Ask)

	fr.answerErr = nil
	answer, err := c.AskQuestion(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, "answer to two", answer)

	snap := c.Snapshot()
	assert.Equal(t, StatusIdle, snap.Ask)
	assert.Equal(t, []Message{
		{Role: RoleUser, Text: "one"},
		{Role: RoleUser, Text: "two"},
		{Role: RoleAssistant, Text: "answer to two"},
	}, snap.Messages)
}

func TestTransportFailureUsesGenericDetail(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")
	fr := &fakeRemote{answerErr: cause}
	c := NewController(NewState(nil), fr)

	_, err := c.AskQuestion(context.Background(), "hello")
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindTransportFailure, se.Kind)
	assert.Equal(t, "network error", se.Error())
	assert.ErrorIs(t, err, cause)
}

func TestRejectionWithoutDetailFallsBackToStatusText(t *testing.T) {
	fr := &fakeRemote{answerErr: &remote.StatusError{StatusCode: 502}}
	c := NewController(NewState(nil), fr)

	_, err := c.AskQuestion(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, "Bad Gateway", err.Error())
}

func TestUnreadableAnswerIsNotTransportFailure(t *testing.T) {
	cause := &remote.ResponseError{StatusCode: 200, Err: errors.New("invalid character '<'")}
	fr := &fakeRemote{answerErr: cause}
	c := NewController(NewState(nil), fr)

	_, err := c.AskQuestion(context.Background(), "hello")
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindInvalidResponse, se.Kind)
	assert.Equal(t, 200, se.Status)
	assert.NotEqual(t, "network error", se.Error())
	assert.ErrorIs(t, err, cause)

	snap := c.Snapshot()
	assert.Equal(t, StatusFailed, snap.Ask)
	assert.Equal(t, []Message{{Role: RoleUser, Text: "hello"}}, snap.Messages)
}

func TestAskWithoutBindingStillSends(t *testing.T) {
	fr := &fakeRemote{answerErr: &remote.StatusError{StatusCode: 400, Detail: "please upload file"}}
	c := NewController(NewState(nil), fr)

	_, err := c.AskQuestion(context.Background(), "anything?")
	require.Error(t, err)
	calls := fr.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "", calls[0].filename)
	assert.Equal(t, "please upload file", err.Error())
}

func TestUploadFailureKeepsBinding(t *testing.T) {
	fr := &fakeRemote{}
	c := NewController(NewState(nil), fr)
	ctx := context.Background()

	_, err := c.UploadDocument(ctx, doc("first.pdf"))
	require.NoError(t, err)

	fr.ingestErr = &remote.StatusError{StatusCode: 400, Detail: "File with this name already exists in the database"}
	_, err = c.UploadDocument(ctx, doc("second.pdf"))
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, "first.pdf", snap.Binding)
	assert.Equal(t, StatusFailed, snap.Upload)
}

func TestUploadFileTooLarge(t *testing.T) {
	fr := &fakeRemote{ingestErr: &remote.StatusError{StatusCode: 413, Detail: "file too large"}}
	var mu sync.Mutex
	var failures []string
	n := NotifierFunc(func(e Event) {
		if e.Kind == EventUploadSettled && e.Failed {
			mu.Lock()
			failures = append(failures, e.Detail)
			mu.Unlock()
		}
	})
	c := NewController(NewState(nil), fr, WithNotifier(n))

	_, err := c.UploadDocument(context.Background(), doc("huge.pdf"))
	require.Error(t, err)
	assert.Equal(t, "file too large", err.Error())

	snap := c.Snapshot()
	assert.Equal(t, StatusFailed, snap.Upload)
	assert.False(t, snap.Bound())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"file too large"}, failures)
}

func TestUploadRebindsWithoutTouchingHistory(t *testing.T) {
	fr := &fakeRemote{}
	c := NewController(NewState(greeting), fr)
	ctx := context.Background()

	_, err := c.UploadDocument(ctx, doc("a.pdf"))
	require.NoError(t, err)
	_, err = c.AskQuestion(ctx, "q")
	require.NoError(t, err)
	_, err = c.UploadDocument(ctx, doc("b.pdf"))
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, "b.pdf", snap.Binding)
	assert.Len(t, snap.Messages, 4)
	assert.Equal(t, greeting, snap.Messages[:2])
}

func TestUploadWhileInFlightIsRejected(t *testing.T) {
	fr := &fakeRemote{gate: make(chan struct{})}
	c := NewController(NewState(nil), fr)

	first, err := c.Upload(context.Background(), doc("a.pdf"))
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), doc("b.pdf"))
	assert.ErrorIs(t, err, ErrUploadBusy)

	close(fr.gate)
	name, err := first.Wait()
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", name)
	assert.Equal(t, "a.pdf", c.Snapshot().Binding)
}

func TestUploadNilDocument(t *testing.T) {
	c := NewController(NewState(nil), &fakeRemote{})
	_, err := c.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, StatusIdle, c.Snapshot().Upload)
}

func TestUploadAndAskAreIndependent(t *testing.T) {
	fr := &fakeRemote{gate: make(chan struct{})}
	c := NewController(NewState(nil), fr)
	ctx := context.Background()

	ask, err := c.Ask(ctx, "pending question")
	require.NoError(t, err)
	upload, err := c.Upload(ctx, doc("demo.pdf"))
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StatusInFlight, snap.Ask)
	assert.Equal(t, StatusInFlight, snap.Upload)
	assert.True(t, snap.Busy())

	close(fr.gate)
	_, err = ask.Wait()
	require.NoError(t, err)
	_, err = upload.Wait()
	require.NoError(t, err)

	snap = c.Snapshot()
	assert.False(t, snap.Busy())
	assert.Equal(t, "demo.pdf", snap.Binding)
}

func TestDemoScenario(t *testing.T) {
	fr := &fakeRemote{answers: map[string]string{"what is it?": "A demo document."}}
	c := NewController(NewState(greeting), fr)
	ctx := context.Background()

	assert.False(t, c.Snapshot().Bound())

	bound, err := c.UploadDocument(ctx, doc("demo.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "demo.pdf", bound)
	assert.Equal(t, "demo.pdf", c.Snapshot().Binding)

	_, err = c.AskQuestion(ctx, "what is it?")
	require.NoError(t, err)

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 4)
	assert.Equal(t, Message{Role: RoleUser, Text: "what is it?"}, snap.Messages[2])
	assert.Equal(t, Message{Role: RoleAssistant, Text: "A demo document."}, snap.Messages[3])
	assert.Equal(t, askCall{filename: "demo.pdf", question: "what is it?"}, fr.calls()[0])
}

func TestAskClearsDraft(t *testing.T) {
	c := NewController(NewState(nil), &fakeRemote{})
	c.SetDraft("what is it?")
	assert.Equal(t, "what is it?", c.Snapshot().Draft)

	_, err := c.Ask(context.Background(), "what is it?")
	require.NoError(t, err)
	assert.Equal(t, "", c.Snapshot().Draft)
}

func TestRejectedAskKeepsDraft(t *testing.T) {
	c := NewController(NewState(nil), &fakeRemote{})
	c.SetDraft("   ")
	_, err := c.Ask(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Equal(t, "   ", c.Snapshot().Draft)
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewController(NewState(greeting), &fakeRemote{})
	snap := c.Snapshot()
	snap.Messages[0].Text = "changed"
	assert.Equal(t, "explain like im 5", c.Snapshot().Messages[0].Text)
}

func TestSeedIsCopied(t *testing.T) {
	seed := []Message{{Role: RoleUser, Text: "hi"}}
	st := NewState(seed)
	seed[0].Text = "changed"
	assert.Equal(t, "hi", st.Snapshot().Messages[0].Text)
}

func TestEventsAreSequenced(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	n := NotifierFunc(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	c := NewController(NewState(nil), &fakeRemote{}, WithNotifier(n))

	_, err := c.AskQuestion(context.Background(), "q")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	kinds := make([]EventKind, len(events))
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Seq)
		kinds[i] = e.Kind
	}
	assert.Equal(t, []EventKind{
		EventSessionStarted,
		EventMessageAppended,
		EventStatusChanged,
		EventMessageAppended,
		EventStatusChanged,
		EventAskSettled,
	}, kinds)
	assert.Equal(t, StatusInFlight, *events[2].Status)
	assert.Equal(t, StatusIdle, *events[4].Status)
}

func TestContextDeadlineIsTransportFailure(t *testing.T) {
	fr := &blockingRemote{}
	c := NewController(NewState(nil), fr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.AskQuestion(ctx, "slow?")
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindTransportFailure, se.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusFailed, c.Snapshot().Ask)
}

// blockingRemote waits for the context to end.
type blockingRemote struct{}

func (blockingRemote) Ingest(ctx context.Context, name string, content io.Reader) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingRemote) Answer(ctx context.Context, filename, question string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
