package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// HelpView displays keybinding help
type HelpView struct {
	ui       *UIManager
	textView *tview.TextView
}

// NewHelpView creates a new help view
func NewHelpView(ui *UIManager) *HelpView {
	view := &HelpView{
		ui: ui,
	}

	view.textView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetText(view.getHelpText())

	view.textView.SetBorder(true).
		SetTitle(" kvui Keybindings - Press Esc to close ").
		SetTitleAlign(tview.AlignCenter)

	view.setupKeybindings()

	return view
}

func (v *HelpView) getHelpText() string {
	return `
[yellow]Global Keybindings[white]
  Ctrl+C, q  Quit application
  ?          Show this help
  Tab        Topics -> Payload -> History -> Topics
  Esc        Go back / Cancel

[yellow]Topics[white]
  ↑/↓, j/k   Navigate topics
  Enter      Open / close node
  →          Open node
  ←          Close node / go to parent
  Space      Open / close node
  o          Open all
  O          Close all
  /          Search topic paths
  d          Describe the selected key tree
  Del        Delete the selected key tree (asks first)

[yellow]Search[white]
  ↑/↓        Previous / next match
  Enter      Keep filter and open matches
  Esc        Clear filter

[yellow]Payload[white]
  y          Copy payload to clipboard

[yellow]History[white]
  ↑/↓, j/k   Select entry (shown in Payload)
  Del        Remove entry from the local cache only

[yellow]Clean Prompt[white]
  Enter      Delete key tree
  Any key    Abort

[yellow]Tips[white]
  • Use --read-only to disable cleaning
  • Deletions carry no timestamp and show as UNKNOWN
  • Numeric payloads are plotted below the history
`
}

func (v *HelpView) setupKeybindings() {
	v.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			v.ui.CloseModal()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				v.ui.CloseModal()
				return nil
			}
		}
		return event
	})
}

// GetPrimitive returns the primitive for this view
func (v *HelpView) GetPrimitive() tview.Primitive {
	return v.textView
}
