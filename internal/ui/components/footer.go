package components

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

// Key is one keybinding hint
type Key struct {
	Key  string
	Text string
}

// Footer represents the application footer component showing keybindings
type Footer struct {
	*tview.TextView
	version string
	session string
}

// NewFooter creates a new footer component
func NewFooter(version, session string) *Footer {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	return &Footer{
		TextView: textView,
		version:  version,
		session:  session,
	}
}

// Update shows the hints, followed by as much version and session info as
// the width allows
func (f *Footer) Update(keys []Key, extra string) {
	var styled, plain strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&styled, "[black:gray:b] %s [-:-:-] %s ", tview.Escape(k.Key), tview.Escape(k.Text))
		fmt.Fprintf(&plain, " %s  %s ", k.Key, k.Text)
	}
	if extra != "" {
		styled.WriteString(extra)
		plain.WriteString(stripTags(extra))
	}

	_, _, width, _ := f.GetInnerRect()
	remaining := width - runewidth.StringWidth(plain.String())
	if info := f.info(remaining); info != "" {
		pad := remaining - runewidth.StringWidth(info)
		styled.WriteString(strings.Repeat(" ", pad))
		fmt.Fprintf(&styled, "[black:gray]%s[-:-:-]", tview.Escape(info))
	}

	f.SetText(styled.String())
}

func (f *Footer) info(room int) string {
	full := fmt.Sprintf(" kvui %s @ %s ", f.version, f.session)
	session := fmt.Sprintf(" %s ", f.session)
	version := fmt.Sprintf(" kvui %s ", f.version)
	for _, candidate := range []string{full, session, version} {
		if room > runewidth.StringWidth(candidate) {
			return candidate
		}
	}
	return ""
}

// stripTags drops [style] tags so the width of styled text can be measured
func stripTags(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
