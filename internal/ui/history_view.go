package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/guptarohit/asciigraph"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
	"github.com/shubhamrasal/kvui/internal/history"
	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/shubhamrasal/kvui/internal/payload"
)

// HistoryView lists the cached entries of the selected topic and plots the
// numeric ones
type HistoryView struct {
	ui        *UIManager
	flex      *tview.Flex
	table     *tview.Table
	graph     *tview.TextView
	topic     string
	entries   int
	updating  bool
	hasGraph  bool
	graphRows int
}

// NewHistoryView creates a new history view
func NewHistoryView(ui *UIManager) *HistoryView {
	view := &HistoryView{
		ui:        ui,
		graphRows: 12,
	}

	view.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0).
		SetSelectionChangedFunc(func(row, column int) {
			if view.updating || row < 1 {
				return
			}
			view.ui.machine.SelectHistory(row - 1)
			view.ui.payloadView.Refresh()
		})
	view.table.SetBorder(true).
		SetTitle(" History ").
		SetTitleAlign(tview.AlignCenter)

	view.graph = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(false).
		SetWrap(false)
	view.graph.SetBorder(true).
		SetTitle(" Graph ")

	view.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(view.table, 0, 1, true)

	view.setupKeybindings()
	view.setupHeaders()

	return view
}

func (v *HistoryView) setupHeaders() {
	headers := []string{"TIME", "KIND", "SIZE", "PAYLOAD"}
	for i, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, i, cell)
	}
}

func (v *HistoryView) setupKeybindings() {
	v.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyTab:
			v.ui.Switch()
			return nil
		case tcell.KeyEsc:
			v.ui.Back()
			return nil
		case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
			if row, _ := v.table.GetSelection(); v.ui.machine.HistoryIndex() < 0 && row > 0 {
				v.ui.machine.SelectHistory(row - 1)
			}
			if v.ui.machine.UncacheSelected() {
				v.ui.refreshAll()
			}
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'j':
				return tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone)
			case 'k':
				return tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)
			}
		}
		return event
	})
}

// Refresh redraws the table when the selected topic or its history changed
func (v *HistoryView) Refresh() {
	m := v.ui.machine
	topic := m.Selected()

	var (
		entries []models.HistoryEntry
		values  []float64
	)
	v.ui.pipeline.View(func(s *history.Store) {
		// copy out: the store may change once the lock is released
		entries = append(entries, s.Entries(topic)...)
	})
	if topic == v.topic && len(entries) == v.entries && m.HistoryIndex() == v.selectedIndex() {
		return
	}
	v.topic = topic
	v.entries = len(entries)

	v.updating = true
	defer func() { v.updating = false }()

	for row := v.table.GetRowCount() - 1; row > 0; row-- {
		v.table.RemoveRow(row)
	}

	for i, entry := range entries {
		row := i + 1
		kindColor := tcell.ColorGreen
		if entry.Kind == models.KindDelete {
			kindColor = tcell.ColorRed
		}
		preview := strings.Join(strings.Fields(payload.Lossy(entry.Payload.Bytes())), " ")
		preview = runewidth.Truncate(preview, previewWidth, "…")

		v.table.SetCell(row, 0, tview.NewTableCell(entry.Time.Padded()))
		v.table.SetCell(row, 1, tview.NewTableCell(entry.Kind.String()).SetTextColor(kindColor))
		v.table.SetCell(row, 2, tview.NewTableCell(humanize.Bytes(uint64(entry.PayloadSize))).SetAlign(tview.AlignRight))
		v.table.SetCell(row, 3, tview.NewTableCell(tview.Escape(preview)).SetExpansion(1))

		if value, ok := numericValue(entry); ok {
			values = append(values, value)
		}
	}

	switch i := m.HistoryIndex(); {
	case i >= 0:
		v.table.Select(i+1, 0)
	case len(entries) > 0:
		v.table.Select(len(entries), 0)
	}
	v.table.SetTitle(fmt.Sprintf(" History: %s (%s) ", tview.Escape(topic), humanize.Comma(int64(len(entries)))))

	v.renderGraph(values)
}

func (v *HistoryView) selectedIndex() int {
	row, _ := v.table.GetSelection()
	if row < 1 || v.ui.machine.HistoryIndex() < 0 {
		return -1
	}
	return row - 1
}

func numericValue(entry models.HistoryEntry) (float64, bool) {
	if entry.Kind != models.KindWrite || entry.Payload.Truncated() {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(entry.Payload.Bytes())), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func (v *HistoryView) renderGraph(values []float64) {
	show := len(values) >= 2
	if show != v.hasGraph {
		v.hasGraph = show
		v.flex.Clear()
		v.flex.AddItem(v.table, 0, 1, true)
		if show {
			v.flex.AddItem(v.graph, v.graphRows, 0, false)
		}
	}
	if !show {
		return
	}

	_, _, width, _ := v.graph.GetInnerRect()
	graphWidth := width - 12
	if graphWidth < 20 {
		graphWidth = 20
	}

	current := values[len(values)-1]
	low, high := current, current
	for _, value := range values {
		low = min(low, value)
		high = max(high, value)
	}

	plot := asciigraph.Plot(values,
		asciigraph.Height(v.graphRows-4),
		asciigraph.Width(graphWidth),
		asciigraph.Caption(fmt.Sprintf("%s | ↑%s ↓%s",
			formatValue(current), formatValue(high), formatValue(low))))
	v.graph.SetText(plot)
}

// GetPrimitive returns the primitive for this view
func (v *HistoryView) GetPrimitive() tview.Primitive {
	return v.flex
}

// SetActive highlights the border while the table has focus
func (v *HistoryView) SetActive(active bool) {
	if active {
		v.table.SetBorderColor(tcell.ColorGreen)
	} else {
		v.table.SetBorderColor(tcell.ColorGray)
	}
}

// formatValue formats large numbers to human-readable format
func formatValue(val float64) string {
	switch abs := max(val, -val); {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", val/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", val/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", val/1e3)
	case abs >= 1:
		return fmt.Sprintf("%.1f", val)
	default:
		return fmt.Sprintf("%.3f", val)
	}
}
