package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/shubhamrasal/kvui/internal/history"
)

// DescribeView shows statistics for a key tree and the bucket behind it
type DescribeView struct {
	ui       *UIManager
	textView *tview.TextView
	topic    string
}

// NewDescribeView creates a new describe view
func NewDescribeView(ui *UIManager) *DescribeView {
	view := &DescribeView{
		ui: ui,
	}

	view.textView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)

	view.textView.SetBorder(true).
		SetTitleAlign(tview.AlignCenter)

	view.setupKeybindings()

	return view
}

func (v *DescribeView) setupKeybindings() {
	v.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			v.ui.CloseModal()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'r':
				v.Refresh()
				return nil
			case 'q', 'd':
				v.ui.CloseModal()
				return nil
			}
		}
		return event
	})
}

// SetTopic sets the key tree to describe
func (v *DescribeView) SetTopic(topic string) {
	v.topic = topic
	v.textView.SetTitle(fmt.Sprintf(" Describe: %s ", topic))
	v.Refresh()
}

// Refresh updates the description
func (v *DescribeView) Refresh() {
	if v.topic == "" {
		return
	}

	var (
		summary   history.Summary
		allTopics int
		bytes     int
	)
	v.ui.pipeline.View(func(s *history.Store) {
		summary = s.Summary(v.topic)
		allTopics = s.Len()
		for _, topic := range s.TopicsBelow(v.topic) {
			for _, entry := range s.Entries(topic) {
				bytes += len(entry.Payload.Bytes())
			}
		}
	})

	var output strings.Builder

	output.WriteString("[yellow]═══ KEY TREE ═══[white]\n\n")
	output.WriteString(fmt.Sprintf("[cyan]Path:[white]           %s\n", tview.Escape(v.topic)))
	output.WriteString(fmt.Sprintf("[cyan]Topics:[white]         %s\n", humanize.Comma(int64(summary.Topics))))
	output.WriteString(fmt.Sprintf("[cyan]Entries:[white]        %s\n", humanize.Comma(int64(summary.Entries))))
	output.WriteString(fmt.Sprintf("[cyan]Cached Payload:[white] %s\n", humanize.Bytes(uint64(bytes))))
	if summary.Last != nil {
		output.WriteString(fmt.Sprintf("[cyan]Last Event:[white]     %s at %s\n", summary.Last.Kind, summary.Last.Time))
	}
	output.WriteString("\n")

	output.WriteString("[yellow]Share of Known Topics:[white]\n")
	output.WriteString(createBar(uint64(summary.Topics), uint64(allTopics)))
	output.WriteString("\n\n")

	output.WriteString("[yellow]═══ BUCKET ═══[white]\n\n")
	if b := v.ui.bucket; b != nil {
		ttl := "unlimited"
		if b.TTL > 0 {
			ttl = b.TTL.String()
		}
		output.WriteString(fmt.Sprintf("[cyan]Name:[white]           %s\n", b.Name))
		output.WriteString(fmt.Sprintf("[cyan]Values:[white]         %s\n", humanize.Comma(int64(b.Values))))
		output.WriteString(fmt.Sprintf("[cyan]Bytes:[white]          %s\n", humanize.Bytes(b.Bytes)))
		output.WriteString(fmt.Sprintf("[cyan]History:[white]        %d\n", b.History))
		output.WriteString(fmt.Sprintf("[cyan]TTL:[white]            %s\n", ttl))
		output.WriteString(fmt.Sprintf("[cyan]Backing Store:[white]  %s\n", b.BackingStore))
	} else {
		output.WriteString(fmt.Sprintf("[gray]%s has no bucket status[white]\n", tview.Escape(v.ui.session.Describe())))
	}

	v.textView.SetText(output.String())
}

// createBar draws current as a share of total
func createBar(current, total uint64) string {
	const barWidth = 40
	if total == 0 {
		return fmt.Sprintf("[gray][%s][white] no topics", strings.Repeat("░", barWidth))
	}

	percentage := float64(current) / float64(total) * 100
	filled := min(int(percentage*barWidth/100), barWidth)

	return fmt.Sprintf("[green][%s%s][white] %.1f%% (%d / %d)",
		strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled),
		percentage,
		current,
		total)
}

// GetPrimitive returns the primitive for this view
func (v *DescribeView) GetPrimitive() tview.Primitive {
	return v.textView
}
