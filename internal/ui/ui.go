package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/common/version"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/shubhamrasal/kvui/internal/config"
	"github.com/shubhamrasal/kvui/internal/history"
	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/shubhamrasal/kvui/internal/pipeline"
	"github.com/shubhamrasal/kvui/internal/tree"
	"github.com/shubhamrasal/kvui/internal/ui/components"
	"github.com/shubhamrasal/kvui/internal/ui/mode"
)

const bucketRefreshInterval = 2 * time.Second

// bucketDescriber is implemented by sessions backed by a KV bucket
type bucketDescriber interface {
	BucketInfo() (*models.Bucket, error)
}

// connectionChecker is implemented by sessions with a network transport
type connectionChecker interface {
	IsConnected() bool
}

// UIManager manages the application UI
type UIManager struct {
	app      *tview.Application
	session  broker.Session
	pipeline *pipeline.Pipeline
	machine  *mode.Machine
	config   *config.Config
	logger   zerolog.Logger
	readOnly bool
	ctx      context.Context

	// UI components
	pages  *tview.Pages
	header *components.Header
	footer *components.Footer

	// Views
	topicsView   *TopicsView
	payloadView  *PayloadView
	historyView  *HistoryView
	describeView *DescribeView
	helpView     *HelpView

	// State
	bucket    *models.Bucket
	modalOpen bool
}

// NewUIManager creates a new UI manager
func NewUIManager(app *tview.Application, session broker.Session, pipe *pipeline.Pipeline, cfg *config.Config, readOnly bool, logger zerolog.Logger) *UIManager {
	machine := mode.New(pipe, tree.New())
	machine.SetReadOnly(readOnly)

	ui := &UIManager{
		app:      app,
		session:  session,
		pipeline: pipe,
		machine:  machine,
		config:   cfg,
		logger:   logger.With().Str("component", "ui").Logger(),
		readOnly: readOnly,
		ctx:      context.Background(),
		pages:    tview.NewPages(),
	}

	ui.initComponents()
	ui.setupPages()
	ui.setupKeybindings()

	return ui
}

func (ui *UIManager) initComponents() {
	// Header and footer
	ui.header = components.NewHeader()
	ui.footer = components.NewFooter(version.Version, ui.session.Describe())

	// Initialize views
	ui.topicsView = NewTopicsView(ui)
	ui.payloadView = NewPayloadView(ui)
	ui.historyView = NewHistoryView(ui)
	ui.describeView = NewDescribeView(ui)
	ui.helpView = NewHelpView(ui)
}

func (ui *UIManager) setupPages() {
	details := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.payloadView.GetPrimitive(), 0, 1, false).
		AddItem(ui.historyView.GetPrimitive(), 0, 1, false)

	main := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.topicsView.GetPrimitive(), 0, 1, true).
		AddItem(details, 0, 1, false)

	ui.pages.AddPage("main", main, true, true)
}

func (ui *UIManager) setupKeybindings() {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			ui.app.Stop()
			return nil
		}

		ui.machine.ClearStatus()

		// Modals and the search field take every other key
		if ui.modalOpen || ui.machine.Mode() == mode.Search {
			return event
		}

		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case '?':
				ui.ShowHelp()
				return nil
			case 'q':
				ui.app.Stop()
				return nil
			}
		}
		return event
	})
}

// Start runs the UI until the user quits or ctx is done
func (ui *UIManager) Start(ctx context.Context) error {
	ui.ctx = ctx

	// Create main layout
	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.header, 1, 0, false).
		AddItem(ui.pages, 0, 1, true).
		AddItem(ui.footer, 1, 0, false)

	ui.refreshAll()
	ui.applyMode()

	// Start auto-refresh ticker
	go ui.autoRefreshLoop(ctx)
	go func() {
		<-ctx.Done()
		ui.app.Stop()
	}()

	// Set root and run
	ui.app.SetRoot(layout, true)
	ui.topicsView.Focus()
	return ui.app.Run()
}

func (ui *UIManager) autoRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(ui.config.GetRefreshInterval())
	defer ticker.Stop()

	var lastBucket time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Bucket status is a network round trip, keep it off the UI goroutine
		var bucket *models.Bucket
		if describer, ok := ui.session.(bucketDescriber); ok && time.Since(lastBucket) >= bucketRefreshInterval {
			lastBucket = time.Now()
			info, err := describer.BucketInfo()
			if err != nil {
				ui.logger.Debug().Err(err).Msg("failed to read bucket status")
			}
			bucket = info
		}

		ui.app.QueueUpdateDraw(func() {
			if bucket != nil {
				ui.bucket = bucket
			}
			ui.refreshAll()
		})
	}
}

func (ui *UIManager) refreshAll() {
	ui.machine.Sync()
	ui.topicsView.Refresh()
	ui.refreshDetails()
	ui.updateHeader()
}

func (ui *UIManager) refreshDetails() {
	ui.payloadView.Refresh()
	ui.historyView.Refresh()
	ui.updateFooter()
}

func (ui *UIManager) updateHeader() {
	connected := true
	if checker, ok := ui.session.(connectionChecker); ok {
		connected = checker.IsConnected()
	}
	connErr, failing := ui.pipeline.ConnectivityStatus()

	state := components.HeaderState{
		Context:  ui.config.CurrentContextName(),
		Source:   ui.config.GetConfigSourceDescription(),
		Status:   components.Status(connected, connErr, failing),
		Bucket:   ui.bucket,
		ReadOnly: ui.readOnly,
	}
	ui.pipeline.View(func(s *history.Store) {
		state.Topics = s.Len()
		state.Bytes = s.PayloadBytes()
	})
	ui.header.Update(state)
}

func (ui *UIManager) updateFooter() {
	m := ui.machine
	var keys []components.Key
	add := func(key, text string) {
		keys = append(keys, components.Key{Key: key, Text: text})
	}

	switch m.Mode() {
	case mode.Overview:
		add("q", "Quit")
		add("/", "Search")
		add("o", "Open all")
		if m.Tree().Opened() > 0 {
			add("O", "Close all")
		}
		if m.Selected() != "" && !m.ReadOnly() {
			add("Del", "Delete keys")
		}
		if m.CanShowPayload() {
			add("Tab", "Switch to Payload")
		} else if m.CanShowHistory() {
			add("Tab", "Switch to History")
		}
	case mode.Search:
		add("↑", "Before")
		add("↓", "Next")
		add("Enter", "Open All")
		add("Esc", "Clear")
	case mode.PayloadView:
		add("q", "Quit")
		add("y", "Copy")
		if m.CanShowHistory() {
			add("Tab", "Switch to History")
		} else {
			add("Tab", "Switch to Topics")
		}
	case mode.HistoryTable:
		add("q", "Quit")
		add("Del", "Uncache entry")
		add("Tab", "Switch to Topics")
	case mode.CleanConfirm:
		add("Enter", "Delete key tree")
		add("Any", "Abort")
	}

	extra := ""
	if status := m.Status(); status != "" {
		extra = fmt.Sprintf("[yellow]%s[white] ", tview.Escape(status))
	}
	ui.footer.Update(keys, extra)
}

// applyMode moves focus to the pane of the current mode
func (ui *UIManager) applyMode() {
	current := ui.machine.Mode()
	ui.topicsView.SetActive(current == mode.Overview || current == mode.Search)
	ui.payloadView.SetActive(current == mode.PayloadView)
	ui.historyView.SetActive(current == mode.HistoryTable)

	if !ui.modalOpen {
		switch current {
		case mode.PayloadView:
			ui.app.SetFocus(ui.payloadView.GetPrimitive())
		case mode.HistoryTable:
			ui.app.SetFocus(ui.historyView.table)
		default:
			ui.topicsView.Focus()
		}
	}
	ui.updateFooter()
}

// Switch cycles focus between the panes that have something to show
func (ui *UIManager) Switch() {
	ui.machine.Switch()
	ui.refreshDetails()
	ui.applyMode()
}

// Back returns focus to the topic tree
func (ui *UIManager) Back() {
	ui.machine.Back()
	ui.applyMode()
}

// RequestClean asks before deleting the selected key tree
func (ui *UIManager) RequestClean() {
	if !ui.machine.RequestDelete() {
		ui.updateFooter()
		return
	}

	target := ui.machine.PendingClean()
	var topics []string
	ui.pipeline.View(func(s *history.Store) {
		topics = s.TopicsBelow(target)
	})

	modal := components.CleanModal(target, topics,
		func() {
			ui.CloseModal()
			results := ui.machine.ConfirmClean(ui.ctx)
			ui.logger.Info().
				Str("topic", target).
				Int("topics", len(results)).
				Int("failed", len(pipeline.Failed(results))).
				Msg("cleaned key tree")
			ui.refreshAll()
			ui.applyMode()
		},
		func() {
			ui.CloseModal()
			ui.machine.AbortClean()
			ui.applyMode()
		},
	)
	ui.ShowModal(modal)
	ui.updateFooter()
}

// ShowDescribe displays statistics for the selected key tree
func (ui *UIManager) ShowDescribe() {
	topic := ui.machine.Selected()
	if topic == "" {
		return
	}
	ui.describeView.SetTopic(topic)
	ui.modalOpen = true
	ui.pages.AddPage("describe-modal", components.Centered(ui.describeView.GetPrimitive(), 70, 24), true, true)
	ui.app.SetFocus(ui.describeView.GetPrimitive())
}

// ShowHelp displays the help modal
func (ui *UIManager) ShowHelp() {
	ui.modalOpen = true
	ui.pages.AddPage("help-modal", components.Centered(ui.helpView.GetPrimitive(), 80, 40), true, true)
	ui.app.SetFocus(ui.helpView.GetPrimitive())
}

// ShowModal displays a modal dialog
func (ui *UIManager) ShowModal(modal tview.Primitive) {
	ui.modalOpen = true
	ui.pages.AddPage("modal", modal, true, true)
	ui.app.SetFocus(modal)
}

// CloseModal closes any open modal
func (ui *UIManager) CloseModal() {
	ui.pages.RemovePage("modal")
	ui.pages.RemovePage("help-modal")
	ui.pages.RemovePage("describe-modal")
	ui.modalOpen = false
	ui.applyMode()
}

// ShowError displays an error message
func (ui *UIManager) ShowError(message string) {
	modal := components.ErrorModal(message, func() {
		ui.CloseModal()
	})
	ui.ShowModal(modal)
}
