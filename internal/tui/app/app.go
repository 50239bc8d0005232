// Package app provides the main TUI application that wires the views to a
// session controller.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/planet-dev/planet/internal/remote"
	"github.com/planet-dev/planet/internal/session"
	"github.com/planet-dev/planet/internal/tui"
	"github.com/planet-dev/planet/internal/tui/views"
)

// DefaultBannerTTL is how long an error banner stays up.
const DefaultBannerTTL = 5 * time.Second

// DocumentLister lists the documents the server holds.
type DocumentLister interface {
	Documents(ctx context.Context) ([]remote.DocumentInfo, error)
	RefreshDocuments()
}

// Options configures an App.
type Options struct {
	// Dir is where the upload picker starts.
	Dir string
	// Markdown renders answers through glamour.
	Markdown bool
	// BannerTTL overrides DefaultBannerTTL.
	BannerTTL time.Duration
}

type overlay int

const (
	overlayNone overlay = iota
	overlayUpload
	overlayDocuments
)

// App is the main TUI application. It owns no session state; every render
// starts from a controller snapshot.
type App struct {
	ctx  context.Context
	ctrl *session.Controller
	docs DocumentLister
	opts Options

	chatView      views.ChatModel
	uploadView    views.UploadModel
	documentsView views.DocumentsModel
	overlay       overlay

	ctrlCPending bool
	errID        int
	width        int
	height       int
}

// New creates an App driving ctrl. ctx bounds every request the App starts.
func New(ctx context.Context, ctrl *session.Controller, docs DocumentLister, opts Options) *App {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.BannerTTL <= 0 {
		opts.BannerTTL = DefaultBannerTTL
	}

	const width, height = 80, 24
	return &App{
		ctx:      ctx,
		ctrl:     ctrl,
		docs:     docs,
		opts:     opts,
		chatView: views.NewChatModel(ctrl.Snapshot(), views.NewRenderer(opts.Markdown, width-8), width, height),
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the TUI.
func (a *App) Init() tea.Cmd {
	return a.chatView.Init()
}

// Update handles messages and updates the application state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.chatView, cmd = a.chatView.Update(msg)
		cmds = append(cmds, cmd)
		switch a.overlay {
		case overlayUpload:
			a.uploadView, cmd = a.uploadView.Update(msg)
			cmds = append(cmds, cmd)
		case overlayDocuments:
			a.documentsView, cmd = a.documentsView.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		if key.Matches(msg, tui.DefaultKeyMap.CtrlC) {
			if a.ctrlCPending {
				// Second press within timeout - exit
				return a, tea.Quit
			}
			a.ctrlCPending = true
			a.chatView.SetCtrlCPending(true)
			return a, tea.Tick(time.Second, func(t time.Time) tea.Msg {
				return tui.CtrlCResetMsg{}
			})
		}
		if a.overlay == overlayNone {
			switch {
			case key.Matches(msg, tui.DefaultKeyMap.Upload):
				return a.openUpload()
			case key.Matches(msg, tui.DefaultKeyMap.Documents):
				return a.openDocuments()
			}
		}

	case tui.CtrlCResetMsg:
		a.ctrlCPending = false
		a.chatView.SetCtrlCPending(false)
		return a, nil

	case tui.SessionEventMsg:
		return a, a.refresh()

	case tui.AskSettledMsg:
		cmd := a.refresh()
		if msg.Err != nil {
			return a, tea.Batch(cmd, a.showError(msg.Err))
		}
		return a, cmd

	case tui.UploadSettledMsg:
		cmd := a.refresh()
		if msg.Err != nil {
			return a, tea.Batch(cmd, a.showError(msg.Err))
		}
		return a, cmd

	case tui.ClearErrorMsg:
		if msg.ID == a.errID {
			a.chatView.ClearError()
		}
		return a, nil

	case tui.DocumentsLoadedMsg:
		if a.overlay == overlayDocuments {
			var cmd tea.Cmd
			a.documentsView, cmd = a.documentsView.Update(msg)
			return a, cmd
		}
		return a, nil

	case spinner.TickMsg:
		// Spinners ignore ticks carrying another spinner's ID.
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.chatView, cmd = a.chatView.Update(msg)
		cmds = append(cmds, cmd)
		if a.overlay == overlayDocuments {
			a.documentsView, cmd = a.documentsView.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case views.SendQuestionMsg:
		return a.ask(msg.Text)

	case views.UploadSelectedMsg:
		a.overlay = overlayNone
		return a.upload(msg.Path)

	case views.RefreshDocumentsMsg:
		a.docs.RefreshDocuments()
		return a, a.loadDocuments()

	case views.CloseOverlayMsg:
		a.overlay = overlayNone
		return a, nil
	}

	var cmd tea.Cmd
	switch a.overlay {
	case overlayUpload:
		a.uploadView, cmd = a.uploadView.Update(msg)
	case overlayDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	default:
		a.chatView, cmd = a.chatView.Update(msg)
		if _, ok := msg.(tea.KeyMsg); ok {
			a.ctrl.SetDraft(a.chatView.Value())
		}
	}
	return a, cmd
}

// View renders the current application state.
func (a *App) View() string {
	switch a.overlay {
	case overlayUpload:
		return a.uploadView.View()
	case overlayDocuments:
		return a.documentsView.View()
	default:
		return a.chatView.View()
	}
}

func (a *App) refresh() tea.Cmd {
	return a.chatView.SetSnapshot(a.ctrl.Snapshot())
}

// showError puts err in the banner and schedules its removal. A newer
// error keeps its own full display time.
func (a *App) showError(err error) tea.Cmd {
	a.errID++
	id := a.errID
	a.chatView.SetError(err.Error())
	return tea.Tick(a.opts.BannerTTL, func(time.Time) tea.Msg {
		return tui.ClearErrorMsg{ID: id}
	})
}

func (a *App) ask(text string) (tea.Model, tea.Cmd) {
	task, err := a.ctrl.Ask(a.ctx, text)
	if err != nil {
		// Empty and busy submissions are no-ops.
		log.Debug().Err(err).Msg("question not sent")
		if session.IsValidation(err) {
			return a, nil
		}
		return a, a.showError(err)
	}

	a.chatView.ResetInput()
	return a, tea.Batch(a.refresh(), func() tea.Msg {
		answer, err := task.Wait()
		return tui.AskSettledMsg{Answer: answer, Err: err}
	})
}

func (a *App) upload(path string) (tea.Model, tea.Cmd) {
	doc, err := session.DocumentFromFile(path)
	if err != nil {
		return a, a.showError(err)
	}

	task, err := a.ctrl.Upload(a.ctx, doc)
	if err != nil {
		if errors.Is(err, session.ErrUploadBusy) {
			return a, a.showError(err)
		}
		log.Debug().Err(err).Msg("upload not started")
		return a, nil
	}

	return a, tea.Batch(a.refresh(), func() tea.Msg {
		name, err := task.Wait()
		return tui.UploadSettledMsg{Document: name, Err: err}
	})
}

func (a *App) openUpload() (tea.Model, tea.Cmd) {
	if a.chatView.Snapshot().Busy() {
		return a, nil
	}
	a.overlay = overlayUpload
	a.uploadView = views.NewUploadModel(a.opts.Dir, a.width, a.height)
	return a, a.uploadView.Init()
}

func (a *App) openDocuments() (tea.Model, tea.Cmd) {
	a.overlay = overlayDocuments
	a.documentsView = views.NewDocumentsModel(a.chatView.Snapshot().Binding, a.width, a.height)
	return a, tea.Batch(a.documentsView.Init(), a.loadDocuments())
}

func (a *App) loadDocuments() tea.Cmd {
	ctx := a.ctx
	docs := a.docs
	return func() tea.Msg {
		list, err := docs.Documents(ctx)
		return tui.DocumentsLoadedMsg{Documents: list, Err: err}
	}
}
