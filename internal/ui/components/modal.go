package components

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// CleanModal asks to delete a topic tree. Enter confirms, any other key aborts.
func CleanModal(target string, topics []string, onConfirm, onAbort func()) tview.Primitive {
	var text strings.Builder
	fmt.Fprintf(&text, "\n[red::b]Delete every key below %s?[-::-]\n\n", tview.Escape(target))
	fmt.Fprintf(&text, "%s topic(s) get an empty write followed by a delete:\n\n", humanize.Comma(int64(len(topics))))

	const shown = 8
	for i, topic := range topics {
		if i == shown {
			fmt.Fprintf(&text, "  … and %d more\n", len(topics)-shown)
			break
		}
		fmt.Fprintf(&text, "  %s\n", tview.Escape(topic))
	}
	text.WriteString("\n[yellow]Enter[white] delete key tree    [yellow]any other key[white] abort")

	prompt := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText(text.String())
	prompt.SetBorder(true).
		SetBorderColor(tcell.ColorRed).
		SetTitle(" Clean ").
		SetTitleAlign(tview.AlignCenter)

	prompt.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter {
			if onConfirm != nil {
				onConfirm()
			}
			return nil
		}
		if onAbort != nil {
			onAbort()
		}
		return nil
	})

	height := len(topics)
	if height > shown {
		height = shown + 1
	}
	return Centered(prompt, 70, height+9)
}

// ErrorModal creates an error message dialog
func ErrorModal(message string, onDismiss func()) *tview.Modal {
	modal := tview.NewModal().
		SetText("Error: " + message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			if onDismiss != nil {
				onDismiss()
			}
		})

	modal.SetBackgroundColor(tcell.ColorDefault)
	modal.SetButtonBackgroundColor(tcell.ColorRed)
	modal.SetButtonTextColor(tcell.ColorWhite)
	return modal
}

// Centered places p in the middle of the screen
func Centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}
