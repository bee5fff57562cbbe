package tui

import (
	"context"
	"errors"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/tgrandin/locachat/internal/bus"
	"github.com/tgrandin/locachat/internal/chat"
	"github.com/tgrandin/locachat/internal/tui/views"
)

// App wires the terminal views to the conversation store and the send
// pipeline. All state mutation happens off the UI goroutine; views are
// repainted through QueueUpdateDraw in response to bus events.
type App struct {
	app        *tview.Application
	pages      *tview.Pages
	convList   *views.ConversationList
	thread     *views.Thread
	composer   *views.Composer
	createForm *views.CreateForm
	statusBar  *views.StatusBar

	store    *chat.Store
	pipeline *chat.Pipeline
	failed   *chat.FailedQueue
	bus      *bus.Bus
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()
}

// NewApp creates the TUI application.
func NewApp(store *chat.Store, pipeline *chat.Pipeline, failed *chat.FailedQueue, b *bus.Bus, logger *zap.Logger, selfID, profile string) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:        tview.NewApplication(),
		pages:      tview.NewPages(),
		convList:   views.NewConversationList(),
		thread:     views.NewThread(selfID),
		composer:   views.NewComposer(),
		createForm: views.NewCreateForm(),
		statusBar:  views.NewStatusBar(profile),
		store:      store,
		pipeline:   pipeline,
		failed:     failed,
		bus:        b,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	a.setupCallbacks()
	a.setupLayout()
	a.setupBindings()

	return a
}

func (a *App) setupLayout() {
	threadPage := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, true).
		AddItem(a.composer, 3, 0, false)

	a.pages.AddPage("conversations", a.convList, true, true)
	a.pages.AddPage("conversation", threadPage, true, false)
	a.pages.AddPage("create", a.createForm, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetFocus(a.convList)
}

func (a *App) setupCallbacks() {
	a.convList.SetOnSelect(a.openConversation)

	a.composer.SetOnSend(func(text string) {
		go func() {
			err := a.pipeline.Send(a.ctx, text)
			if errors.Is(err, chat.ErrEmptyContent) || errors.Is(err, chat.ErrNoActiveConversation) {
				a.app.QueueUpdateDraw(func() {
					a.statusBar.SetFlash(err.Error())
				})
			}
		}()
	})

	a.createForm.SetOnCreate(func(params chat.CreateParams) {
		go func() {
			if _, err := a.store.CreateConversation(a.ctx, params); err != nil {
				a.app.QueueUpdateDraw(func() {
					a.statusBar.SetFlash("create failed: " + err.Error())
				})
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.refresh()
				a.pages.SwitchToPage("conversation")
				a.app.SetFocus(a.composer.InputField)
			})
		}()
	})
	a.createForm.SetOnCancel(func() {
		a.pages.SwitchToPage("conversations")
		a.app.SetFocus(a.convList)
	})
}

func (a *App) setupBindings() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			switch currentPage {
			case "conversation", "create":
				a.pages.SwitchToPage("conversations")
				a.app.SetFocus(a.convList)
				return nil
			}
		}

		// The form owns its own navigation.
		if currentPage == "create" {
			return event
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'q':
				a.app.Stop()
				return nil
			case 'i':
				if currentPage == "conversation" {
					a.app.SetFocus(a.composer.InputField)
					return nil
				}
			case 'r':
				if currentPage == "conversation" {
					a.retrySelected()
					return nil
				}
			case 'n':
				if currentPage == "conversations" {
					a.createForm.Reset()
					a.pages.SwitchToPage("create")
					a.app.SetFocus(a.createForm)
					return nil
				}
			case 'l':
				go func() { _ = a.store.List(a.ctx) }()
				return nil
			}
		}

		return event
	})
}

func (a *App) openConversation(id string) {
	go func() {
		if err := a.store.Activate(a.ctx, id); err != nil {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.refresh()
			a.pages.SwitchToPage("conversation")
			a.app.SetFocus(a.thread)
		})
	}()
}

// retrySelected re-submits the failed message under the cursor.
func (a *App) retrySelected() {
	entry, ok := a.thread.SelectedEntry()
	if !ok || !entry.Failed {
		return
	}
	go func() { _ = a.pipeline.Retry(a.ctx, entry.Message) }()
}

// refresh repaints both tables from the store. Must be called from the UI
// goroutine.
func (a *App) refresh() {
	a.convList.Update(a.store.Conversations(), a.store.ActiveID())

	active := a.store.Active()
	if active == nil {
		a.thread.SetConversationTitle("")
		a.thread.Update(nil)
		return
	}
	title := active.Title
	if title == "" {
		title = active.ID
	}
	a.thread.SetConversationTitle(title)
	a.thread.Update(chat.Project(active, a.failed.ForConversation(active.ID)))
}

// RestoreDraft puts a failed fresh send's text back into the composer.
// Safe to call from any goroutine.
func (a *App) RestoreDraft(text string) {
	a.app.QueueUpdateDraw(func() {
		a.composer.RestoreDraft(text)
	})
}

func (a *App) handleEvent(evt bus.Event) {
	a.app.QueueUpdateDraw(func() {
		switch evt.Kind {
		case bus.KindConnectivityOnline:
			a.statusBar.SetOnline(true)
		case bus.KindConnectivityOffline:
			a.statusBar.SetOnline(false)
		case bus.KindErrorSurfaced:
			if msg, ok := evt.Payload.(string); ok {
				a.statusBar.SetFlash(msg)
			}
		case bus.KindComposeRestore:
			// Restoration goes through RestoreDraft directly; the event
			// only exists for observers.
		default:
			a.refresh()
		}
	})
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run() error {
	ch, unsub := a.bus.Subscribe("", 64)
	a.unsub = unsub

	go func() {
		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				a.handleEvent(evt)
			case <-a.ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = a.store.List(a.ctx)
		a.app.QueueUpdateDraw(a.refresh)
	}()

	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	if a.unsub != nil {
		a.unsub()
	}
	a.app.Stop()
}
