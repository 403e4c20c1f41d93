package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
	"github.com/shubhamrasal/kvui/internal/history"
	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/shubhamrasal/kvui/internal/payload"
	"github.com/shubhamrasal/kvui/internal/tree"
	"github.com/shubhamrasal/kvui/internal/ui/mode"
)

const previewWidth = 60

// TopicsView displays the topic tree with a one-line summary per node
type TopicsView struct {
	ui          *UIManager
	flex        *tview.Flex
	table       *tview.Table
	searchInput *tview.InputField
	rows        []tree.Row
	searching   bool
	updating    bool
}

// NewTopicsView creates a new topics view
func NewTopicsView(ui *UIManager) *TopicsView {
	view := &TopicsView{
		ui: ui,
	}

	view.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetSelectionChangedFunc(func(row, column int) {
			if view.updating || row < 0 || row >= len(view.rows) {
				return
			}
			view.ui.machine.Select(view.rows[row].Node.Path)
			view.ui.refreshDetails()
		})

	view.table.SetBorder(true).
		SetTitle(" Topics ").
		SetTitleAlign(tview.AlignCenter)

	view.searchInput = tview.NewInputField().
		SetLabel("Search: ").
		SetFieldWidth(0).
		SetChangedFunc(func(text string) {
			view.ui.machine.EditQuery(text)
			view.Refresh()
		})

	view.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(view.table, 0, 1, true)

	view.setupKeybindings()

	return view
}

func (v *TopicsView) setupKeybindings() {
	m := v.ui.machine

	v.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			m.Toggle()
			v.Refresh()
			return nil
		case tcell.KeyRight:
			m.Expand()
			v.Refresh()
			return nil
		case tcell.KeyLeft:
			m.Collapse()
			v.Refresh()
			return nil
		case tcell.KeyTab:
			v.ui.Switch()
			return nil
		case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
			v.ui.RequestClean()
			return nil
		case tcell.KeyEsc:
			if m.Query() != "" {
				m.ClearQuery()
				v.Refresh()
			}
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case ' ':
				m.Toggle()
				v.Refresh()
				return nil
			case '/':
				v.showSearch()
				return nil
			case 'd':
				v.ui.ShowDescribe()
				return nil
			case 'o':
				m.ExpandAll()
				v.Refresh()
				return nil
			case 'O':
				m.CollapseAll()
				v.Refresh()
				return nil
			case 'j':
				return tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone)
			case 'k':
				return tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)
			}
		}
		return event
	})

	v.searchInput.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			m.CancelSearch()
			v.closeSearch()
			return nil
		case tcell.KeyEnter:
			m.ConfirmSearch()
			v.closeSearch()
			return nil
		case tcell.KeyUp:
			m.NextMatch(-1)
			v.Refresh()
			return nil
		case tcell.KeyDown:
			m.NextMatch(1)
			v.Refresh()
			return nil
		}
		return event
	})
}

func (v *TopicsView) showSearch() {
	if v.searching {
		return
	}
	v.ui.machine.StartSearch()
	if v.ui.machine.Mode() != mode.Search {
		return
	}
	v.searching = true
	v.searchInput.SetText(v.ui.machine.Query())
	v.flex.Clear()
	v.flex.AddItem(v.table, 0, 1, false)
	v.flex.AddItem(v.searchInput, 1, 0, true)
	v.ui.app.SetFocus(v.searchInput)
	v.ui.updateFooter()
}

func (v *TopicsView) closeSearch() {
	v.searching = false
	v.flex.Clear()
	v.flex.AddItem(v.table, 0, 1, true)
	v.ui.app.SetFocus(v.table)
	v.Refresh()
	v.ui.updateFooter()
}

// Refresh redraws the tree rows and keeps the selection on the selected path
func (v *TopicsView) Refresh() {
	m := v.ui.machine
	v.rows = m.Tree().Visible()

	v.updating = true
	defer func() { v.updating = false }()

	v.table.Clear()
	v.ui.pipeline.View(func(s *history.Store) {
		for i, row := range v.rows {
			v.setRow(i, row, s)
		}
	})

	selected := 0
	for i, row := range v.rows {
		if row.Node.Path == m.Selected() {
			selected = i
			break
		}
	}
	if len(v.rows) > 0 {
		v.table.Select(selected, 0)
		m.Select(v.rows[selected].Node.Path)
	}

	title := " Topics "
	if q := m.Query(); q != "" {
		title = fmt.Sprintf(" Topics /%s ", tview.Escape(q))
	}
	v.table.SetTitle(title)
}

func (v *TopicsView) setRow(i int, row tree.Row, s *history.Store) {
	node := row.Node
	marker := "  "
	switch {
	case node.IsLeaf():
	case v.ui.machine.Tree().IsExpanded(node.Path):
		marker = "▾ "
	default:
		marker = "▸ "
	}

	label := strings.Repeat("  ", row.Depth) + marker + node.Segment
	nameCell := tview.NewTableCell(tview.Escape(label)).SetExpansion(0)
	if q := v.ui.machine.Query(); q != "" && strings.Contains(node.Path, q) {
		nameCell.SetTextColor(tcell.ColorGreen)
	}
	v.table.SetCell(i, 0, nameCell)

	summary := s.Summary(node.Path)
	v.table.SetCell(i, 1, tview.NewTableCell(describeSummary(node, summary)).
		SetTextColor(tcell.ColorGray).
		SetExpansion(1))
}

func describeSummary(node *tree.Node, summary history.Summary) string {
	var parts []string
	if !node.IsLeaf() {
		parts = append(parts, fmt.Sprintf("(%s topics, %s messages)",
			humanize.Comma(int64(summary.Topics)), humanize.Comma(int64(summary.Entries))))
	}
	if last := summary.Last; last != nil {
		preview := strings.Join(strings.Fields(payload.Lossy(last.Payload.Bytes())), " ")
		preview = runewidth.Truncate(preview, previewWidth, "…")
		if last.Kind == models.KindWrite {
			parts = append(parts, fmt.Sprintf("= %s", tview.Escape(preview)))
		} else {
			parts = append(parts, "[red]deleted[gray]")
		}
	}
	return strings.Join(parts, " ")
}

// GetPrimitive returns the primitive for this view
func (v *TopicsView) GetPrimitive() tview.Primitive {
	return v.flex
}

// Focus puts the keyboard on the tree
func (v *TopicsView) Focus() {
	if v.searching {
		v.ui.app.SetFocus(v.searchInput)
		return
	}
	v.ui.app.SetFocus(v.table)
}

// SetActive highlights the border while the tree has focus
func (v *TopicsView) SetActive(active bool) {
	if active {
		v.table.SetBorderColor(tcell.ColorGreen)
	} else {
		v.table.SetBorderColor(tcell.ColorGray)
	}
}
