package session

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Remote is the server side of a session: one call to ingest a document,
// one to answer a question about it.
type Remote interface {
	Ingest(ctx context.Context, name string, content io.Reader) error
	Answer(ctx context.Context, filename, question string) (string, error)
}

// Controller is the only writer of a session's State. Upload and Ask
// validate synchronously, then run the network call on a Task.
type Controller struct {
	state    *State
	remote   Remote
	notifier Notifier
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets where committed events are sent.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// NewController binds state to remote and announces the session start.
func NewController(state *State, remote Remote, opts ...Option) *Controller {
	c := &Controller{
		state:  state,
		remote: remote,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publish(state.started())
	return c
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	return c.state.Snapshot()
}

// SetDraft records the text the user is composing.
func (c *Controller) SetDraft(text string) {
	c.state.setDraft(text)
}

// Upload sends doc to the server and, on success, binds the session to it.
// A failed upload leaves the previous binding in place. The returned task
// yields the new binding.
func (c *Controller) Upload(ctx context.Context, doc *Document) (*Task[string], error) {
	if doc == nil || doc.Name == "" || doc.Content == nil {
		return nil, ErrNoDocument
	}

	events, err := c.state.beginUpload()
	if err != nil {
		return nil, err
	}
	c.publish(events...)

	logger := log.With().Str("session", c.state.ID()).Str("document", doc.Name).Logger()
	logger.Debug().Int64("size", doc.Size).Msg("upload started")

	task := newTask[string]()
	go func() {
		start := time.Now()
		err := c.remote.Ingest(ctx, doc.Name, doc.Content)

		var failure *Error
		if err != nil {
			failure = normalize(OpUpload, err)
			logger.Warn().Err(err).Str("kind", failure.Kind.String()).Msg("upload failed")
		} else {
			logger.Info().Dur("took", time.Since(start)).Msg("document bound")
		}

		c.publish(c.state.settleUpload(doc, failure, time.Since(start))...)
		if failure != nil {
			task.settle("", failure)
			return
		}
		task.settle(doc.Name, nil)
	}()
	return task, nil
}

// Ask appends text as a user message and requests an answer for it. The
// question is sent even when no document is bound; the server decides
// whether that is an error. The returned task yields the answer.
func (c *Controller) Ask(ctx context.Context, text string) (*Task[string], error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	events, binding, err := c.state.beginAsk(question)
	if err != nil {
		return nil, err
	}
	c.publish(events...)

	logger := log.With().Str("session", c.state.ID()).Str("document", binding).Logger()
	logger.Debug().Int("chars", len(question)).Msg("question sent")

	task := newTask[string]()
	go func() {
		start := time.Now()
		answer, err := c.remote.Answer(ctx, binding, question)

		var failure *Error
		if err != nil {
			failure = normalize(OpAsk, err)
			logger.Warn().Err(err).Str("kind", failure.Kind.String()).Msg("question failed")
		} else {
			logger.Debug().Dur("took", time.Since(start)).Int("chars", len(answer)).Msg("answer received")
		}

		c.publish(c.state.settleAsk(answer, failure, time.Since(start))...)
		if failure != nil {
			task.settle("", failure)
			return
		}
		task.settle(answer, nil)
	}()
	return task, nil
}

// UploadDocument is Upload followed by Wait.
func (c *Controller) UploadDocument(ctx context.Context, doc *Document) (string, error) {
	task, err := c.Upload(ctx, doc)
	if err != nil {
		return "", err
	}
	return task.Wait()
}

// AskQuestion is Ask followed by Wait.
func (c *Controller) AskQuestion(ctx context.Context, text string) (string, error) {
	task, err := c.Ask(ctx, text)
	if err != nil {
		return "", err
	}
	return task.Wait()
}

func (c *Controller) publish(events ...Event) {
	if c.notifier == nil {
		return
	}
	for _, ev := range events {
		c.notifier.Notify(ev)
	}
}
