package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/shubhamrasal/kvui/internal/payload"
)

// PayloadView shows the displayed entry of the selected topic, pretty printed
type PayloadView struct {
	ui       *UIManager
	textView *tview.TextView
	shown    string
}

// NewPayloadView creates a new payload view
func NewPayloadView(ui *UIManager) *PayloadView {
	view := &PayloadView{
		ui: ui,
	}

	view.textView = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWrap(true)

	view.textView.SetBorder(true).
		SetTitle(" Payload ").
		SetTitleAlign(tview.AlignCenter)

	view.setupKeybindings()

	return view
}

func (v *PayloadView) setupKeybindings() {
	v.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyTab:
			v.ui.Switch()
			return nil
		case tcell.KeyEsc:
			v.ui.Back()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'y':
				v.copy()
				return nil
			}
		}
		return event
	})
}

// Refresh renders the displayed entry
func (v *PayloadView) Refresh() {
	m := v.ui.machine
	topic := m.Selected()

	entry, ok := m.DisplayedEntry()
	if !ok {
		v.show(" Payload ", "")
		return
	}

	title := payloadTitle(topic, entry)
	if entry.Kind != models.KindWrite {
		v.show(title, "deleted")
		return
	}
	v.show(title, payload.Render(entry.Payload, true))
}

// payloadTitle names the topic, receive time and wire size of entry
func payloadTitle(topic string, entry models.HistoryEntry) string {
	return fmt.Sprintf(" %s  %s  %s ", tview.Escape(topic), strings.TrimSpace(entry.Time.String()), humanize.Bytes(uint64(entry.PayloadSize)))
}

func (v *PayloadView) show(title, text string) {
	v.textView.SetTitle(title)
	if text == v.shown {
		return
	}
	v.shown = text
	v.textView.SetText(text)
	v.textView.ScrollToBeginning()
}

func (v *PayloadView) copy() {
	if v.shown == "" {
		return
	}
	if err := clipboard.WriteAll(v.shown); err != nil {
		v.ui.logger.Warn().Err(err).Msg("failed to copy payload")
		v.ui.ShowError(fmt.Sprintf("Failed to copy payload: %v", err))
		return
	}
	v.ui.machine.SetStatus(fmt.Sprintf("Copied %s to the clipboard", humanize.Bytes(uint64(len(v.shown)))))
	v.ui.updateFooter()
}

// GetPrimitive returns the primitive for this view
func (v *PayloadView) GetPrimitive() tview.Primitive {
	return v.textView
}

// SetActive highlights the border while the payload has focus
func (v *PayloadView) SetActive(active bool) {
	if active {
		v.textView.SetBorderColor(tcell.ColorGreen)
	} else {
		v.textView.SetBorderColor(tcell.ColorGray)
	}
}
