// Package mode holds the interaction state of the dashboard: which pane has
// focus, what is selected, the search being edited and a pending clean.
//
// A Machine is driven from the UI goroutine only.
package mode

import (
	"context"
	"fmt"

	"github.com/shubhamrasal/kvui/internal/history"
	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/shubhamrasal/kvui/internal/pipeline"
	"github.com/shubhamrasal/kvui/internal/tree"
)

// Mode is the element in focus
type Mode int

const (
	Overview Mode = iota
	Search
	PayloadView
	HistoryTable
	CleanConfirm
)

func (m Mode) String() string {
	switch m {
	case Overview:
		return "Overview"
	case Search:
		return "Search"
	case PayloadView:
		return "Payload"
	case HistoryTable:
		return "History"
	case CleanConfirm:
		return "Clean"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Source is the history the machine reads and the network actions it triggers
type Source interface {
	View(func(*history.Store))
	DeleteSubtree(ctx context.Context, topic string) []pipeline.DeleteResult
	RemoveCachedEntry(topic string, index int) (models.HistoryEntry, bool)
}

// Machine is the dashboard state machine
type Machine struct {
	source   Source
	tree     *tree.Tree
	readOnly bool

	mode         Mode
	selected     string
	historyIndex int
	pending      string
	status       string
}

// New creates a machine in Overview with nothing selected
func New(source Source, tr *tree.Tree) *Machine {
	return &Machine{
		source:       source,
		tree:         tr,
		historyIndex: -1,
	}
}

// SetReadOnly disables cleaning
func (m *Machine) SetReadOnly(readOnly bool) {
	m.readOnly = readOnly
}

// ReadOnly reports whether cleaning is disabled
func (m *Machine) ReadOnly() bool {
	return m.readOnly
}

func (m *Machine) Mode() Mode {
	return m.mode
}

func (m *Machine) Tree() *tree.Tree {
	return m.tree
}

// Sync rebuilds the tree when new topics appeared. It returns true on rebuild.
func (m *Machine) Sync() bool {
	var rebuilt bool
	m.source.View(func(s *history.Store) {
		rebuilt = m.tree.Sync(s.Topics())
	})
	if m.selected == "" {
		if rows := m.tree.Visible(); len(rows) > 0 {
			m.selected = rows[0].Node.Path
		}
	}
	return rebuilt
}

// Selected returns the selected topic path, "" when nothing is selected
func (m *Machine) Selected() string {
	return m.selected
}

// Select moves the selection to path and resets the history selection
func (m *Machine) Select(path string) {
	if path != m.selected {
		m.historyIndex = -1
	}
	m.selected = path
}

// MoveSelection moves the selection by delta visible rows
func (m *Machine) MoveSelection(delta int) {
	rows := m.tree.Visible()
	if len(rows) == 0 {
		return
	}
	i := indexOf(rows, m.selected)
	if i < 0 {
		m.Select(rows[0].Node.Path)
		return
	}
	m.Select(rows[clamp(i+delta, 0, len(rows)-1)].Node.Path)
}

func indexOf(rows []tree.Row, path string) int {
	for i, row := range rows {
		if row.Node.Path == path {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HistoryIndex returns the selected history entry, -1 when none
func (m *Machine) HistoryIndex() int {
	return m.historyIndex
}

// SelectHistory selects the entry at index of the selected topic
func (m *Machine) SelectHistory(index int) {
	n := m.entryCount()
	if n == 0 {
		m.historyIndex = -1
		return
	}
	m.historyIndex = clamp(index, 0, n-1)
}

func (m *Machine) entryCount() int {
	var n int
	m.source.View(func(s *history.Store) {
		n = len(s.Entries(m.selected))
	})
	return n
}

// DisplayedEntry returns the selected history entry of the selected topic,
// or its latest entry when no history entry is selected
func (m *Machine) DisplayedEntry() (models.HistoryEntry, bool) {
	var (
		entry models.HistoryEntry
		ok    bool
	)
	m.source.View(func(s *history.Store) {
		entries := s.Entries(m.selected)
		if len(entries) == 0 {
			return
		}
		i := len(entries) - 1
		if m.historyIndex >= 0 && m.historyIndex < len(entries) {
			i = m.historyIndex
		}
		entry, ok = entries[i], true
	})
	return entry, ok
}

// CanShowPayload reports whether the displayed entry carries a value
func (m *Machine) CanShowPayload() bool {
	entry, ok := m.DisplayedEntry()
	return ok && entry.Kind == models.KindWrite
}

// CanShowHistory reports whether the selected topic has any history
func (m *Machine) CanShowHistory() bool {
	return m.entryCount() > 0
}

// StartSearch opens the query editor with the current filter
func (m *Machine) StartSearch() {
	if m.mode != Overview {
		return
	}
	m.mode = Search
}

// Query returns the filter being edited or applied
func (m *Machine) Query() string {
	return m.tree.Query()
}

// EditQuery replaces the query and filters the tree live
func (m *Machine) EditQuery(query string) {
	if m.mode != Search {
		return
	}
	m.tree.SetQuery(query)
	if matches := m.tree.Matches(); len(matches) > 0 && !contains(matches, m.selected) {
		m.Select(matches[0])
	}
}

// NextMatch moves the selection to the next (delta > 0) or previous match
func (m *Machine) NextMatch(delta int) {
	matches := m.tree.Matches()
	if len(matches) == 0 {
		return
	}
	i := -1
	for j, path := range matches {
		if path == m.selected {
			i = j
			break
		}
	}
	switch {
	case i < 0:
		m.Select(matches[0])
	default:
		m.Select(matches[(i+delta+len(matches))%len(matches)])
	}
}

func contains(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}

// ConfirmSearch keeps the filter and opens every matching subtree
func (m *Machine) ConfirmSearch() {
	if m.mode != Search {
		return
	}
	m.tree.ExpandMatches()
	m.mode = Overview
}

// CancelSearch drops the filter
func (m *Machine) CancelSearch() {
	if m.mode != Search {
		return
	}
	m.tree.SetQuery("")
	m.mode = Overview
}

// ClearQuery drops a committed filter
func (m *Machine) ClearQuery() {
	if m.mode != Overview {
		return
	}
	m.tree.SetQuery("")
}

// Toggle opens or closes the selected node
func (m *Machine) Toggle() {
	if m.mode != Overview || m.selected == "" {
		return
	}
	m.tree.Toggle(m.selected)
}

// Expand opens the selected node
func (m *Machine) Expand() {
	if m.mode != Overview || m.selected == "" {
		return
	}
	m.tree.Expand(m.selected)
}

// Collapse closes the selected node. A leaf or an already closed node hands
// the selection to its parent instead.
func (m *Machine) Collapse() {
	if m.mode != Overview || m.selected == "" {
		return
	}
	node := m.tree.Find(m.selected)
	if node != nil && !node.IsLeaf() && m.tree.IsExpanded(m.selected) {
		m.tree.Collapse(m.selected)
		return
	}
	if parent := models.Parent(m.selected); parent != "" {
		m.Select(parent)
	}
}

// ExpandAll opens every node
func (m *Machine) ExpandAll() {
	if m.mode != Overview {
		return
	}
	m.tree.ExpandAll()
}

// CollapseAll closes every node
func (m *Machine) CollapseAll() {
	if m.mode != Overview {
		return
	}
	m.tree.CollapseAll()
	// the selection may now be hidden; fall back to its root
	if m.selected != "" && m.tree.Find(m.selected) != nil {
		segments := models.Segments(m.selected)
		m.Select(segments[0])
	}
}

// Switch moves focus Overview -> Payload -> History -> Overview, skipping
// panes that have nothing to show
func (m *Machine) Switch() {
	switch m.mode {
	case Overview:
		switch {
		case m.CanShowPayload():
			m.mode = PayloadView
		case m.CanShowHistory():
			m.mode = HistoryTable
		}
	case PayloadView:
		if m.CanShowHistory() {
			m.mode = HistoryTable
		} else {
			m.mode = Overview
		}
	case HistoryTable:
		m.mode = Overview
	}
}

// Back returns to the Overview from a detail pane
func (m *Machine) Back() {
	if m.mode == PayloadView || m.mode == HistoryTable {
		m.mode = Overview
	}
}

// RequestDelete asks for confirmation to clean the selected subtree.
// It returns false when nothing is selected or cleaning is disabled.
func (m *Machine) RequestDelete() bool {
	if m.mode != Overview || m.selected == "" {
		return false
	}
	if m.readOnly {
		m.status = "Read-only: cleaning disabled"
		return false
	}
	m.pending = m.selected
	m.mode = CleanConfirm
	return true
}

// PendingClean returns the topic awaiting confirmation
func (m *Machine) PendingClean() string {
	return m.pending
}

// ConfirmClean deletes the pending subtree on the network
func (m *Machine) ConfirmClean(ctx context.Context) []pipeline.DeleteResult {
	if m.mode != CleanConfirm {
		return nil
	}
	target := m.pending
	m.pending = ""
	m.mode = Overview

	results := m.source.DeleteSubtree(ctx, target)
	m.status = cleanStatus(target, results)
	return results
}

func cleanStatus(target string, results []pipeline.DeleteResult) string {
	failed := pipeline.Failed(results)
	switch {
	case len(results) == 0:
		return fmt.Sprintf("Nothing to delete below %s", target)
	case len(failed) == 0:
		return fmt.Sprintf("Deleted %d topic(s) below %s", len(results), target)
	default:
		return fmt.Sprintf("Failed to delete %d of %d topic(s) below %s: %s: %v",
			len(failed), len(results), target, failed[0].Topic, failed[0].Err)
	}
}

// AbortClean drops the pending clean without touching the network
func (m *Machine) AbortClean() {
	if m.mode != CleanConfirm {
		return
	}
	m.pending = ""
	m.mode = Overview
}

// UncacheSelected removes the selected history entry from the local cache
func (m *Machine) UncacheSelected() bool {
	if m.mode != HistoryTable || m.historyIndex < 0 {
		return false
	}
	if _, ok := m.source.RemoveCachedEntry(m.selected, m.historyIndex); !ok {
		return false
	}

	n := m.entryCount()
	switch {
	case n == 0:
		m.historyIndex = -1
		m.mode = Overview
	case m.historyIndex >= n:
		m.historyIndex = n - 1
	}
	return true
}

// Status returns the transient message shown to the user
func (m *Machine) Status() string {
	return m.status
}

// SetStatus replaces the transient message
func (m *Machine) SetStatus(status string) {
	m.status = status
}

// ClearStatus drops the transient message
func (m *Machine) ClearStatus() {
	m.status = ""
}
