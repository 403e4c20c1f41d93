package components

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rivo/tview"
	"github.com/shubhamrasal/kvui/internal/models"
)

// Header represents the application header component
type Header struct {
	*tview.TextView
}

// NewHeader creates a new header component
func NewHeader() *Header {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	return &Header{
		TextView: textView,
	}
}

// HeaderState is everything the header shows
type HeaderState struct {
	Context  string
	Source   string
	Status   string
	Bucket   *models.Bucket
	Topics   int
	Bytes    int
	ReadOnly bool
}

// Update updates the header with connection, bucket and cache info
func (h *Header) Update(state HeaderState) {
	readOnlyIndicator := ""
	if state.ReadOnly {
		readOnlyIndicator = " [yellow][READ-ONLY][white]"
	}

	bucket := ""
	if b := state.Bucket; b != nil {
		bucket = fmt.Sprintf("   Bucket: [cyan]%s[white] %s keys %s",
			tview.Escape(b.Name), humanize.Comma(int64(b.Values)), humanize.Bytes(b.Bytes))
	}

	header := fmt.Sprintf("[yellow]kvui[white]   Context: [cyan]%s[white] [gray](%s)[white]%s   Cache: %s topics %s   %s%s",
		tview.Escape(state.Context),
		tview.Escape(state.Source),
		bucket,
		humanize.Comma(int64(state.Topics)),
		humanize.Bytes(uint64(state.Bytes)),
		state.Status,
		readOnlyIndicator,
	)
	h.SetText(header)
}

// Status renders the connectivity indicator. A pending subscription error
// wins over the transport state.
func Status(connected bool, connErr string, failing bool) string {
	switch {
	case failing:
		return "[red]●[white] " + tview.Escape(connErr)
	case connected:
		return "[green]●[white] Connected"
	default:
		return "[red]●[white] Disconnected"
	}
}
