// Package tree derives a navigable hierarchy from topic paths.
//
// The tree owns no data besides expansion state: it is rebuilt from the
// key set of the history store whenever that set changes. Expansion state is
// keyed by path so it survives rebuilds.
package tree

import (
	"sort"
	"strings"

	"github.com/shubhamrasal/kvui/internal/models"
)

// Node is one topic path segment
type Node struct {
	Segment    string
	Path       string
	Children   []*Node
	HasHistory bool
}

// IsLeaf reports whether the node has no children
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Row is a node placed in the flattened display order
type Row struct {
	Node  *Node
	Depth int
}

// Tree is the display state of the topic hierarchy
type Tree struct {
	roots    []*Node
	index    map[string]*Node
	expanded map[string]bool
	query    string
	topics   int
}

// New creates an empty tree
func New() *Tree {
	return &Tree{
		index:    make(map[string]*Node),
		expanded: make(map[string]bool),
	}
}

// Build merges the segments of topics into a sorted forest
func Build(topics []string) ([]*Node, map[string]*Node) {
	index := make(map[string]*Node)
	var roots []*Node

	for _, topic := range topics {
		path := ""
		var parent *Node
		for _, segment := range models.Segments(topic) {
			if path == "" {
				path = segment
			} else {
				path += models.TopicSeparator + segment
			}

			node, ok := index[path]
			if !ok {
				node = &Node{Segment: segment, Path: path}
				index[path] = node
				if parent == nil {
					roots = append(roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			parent = node
		}
		if parent != nil {
			parent.HasHistory = true
		}
	}

	sortNodes(roots)
	return roots, index
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Segment < nodes[j].Segment
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// Sync rebuilds the tree when the topic set changed.
// Topics are only ever added to the store, so a changed count means a changed set.
func (t *Tree) Sync(topics []string) bool {
	if len(topics) == t.topics && t.roots != nil {
		return false
	}
	t.roots, t.index = Build(topics)
	t.topics = len(topics)
	return true
}

// Find returns the node for path
func (t *Tree) Find(path string) *Node {
	return t.index[path]
}

// IsExpanded reports whether the node at path shows its children
func (t *Tree) IsExpanded(path string) bool {
	return t.expanded[path]
}

// Toggle flips the expanded flag of path
func (t *Tree) Toggle(path string) {
	if t.expanded[path] {
		delete(t.expanded, path)
		return
	}
	t.expanded[path] = true
}

// Expand opens path
func (t *Tree) Expand(path string) {
	t.expanded[path] = true
}

// Collapse closes path
func (t *Tree) Collapse(path string) {
	delete(t.expanded, path)
}

// ExpandAll opens every node with children
func (t *Tree) ExpandAll() {
	for path, node := range t.index {
		if !node.IsLeaf() {
			t.expanded[path] = true
		}
	}
}

// CollapseAll closes every node
func (t *Tree) CollapseAll() {
	t.expanded = make(map[string]bool)
}

// Opened returns the number of expanded nodes
func (t *Tree) Opened() int {
	return len(t.expanded)
}

// SetQuery sets the search filter, "" shows the whole tree
func (t *Tree) SetQuery(query string) {
	t.query = query
}

// Query returns the active search filter
func (t *Tree) Query() string {
	return t.query
}

// Visible returns the rows to display, in order.
//
// Without a query it walks the roots and the children of expanded nodes.
// With a query only matches, their ancestors and their descendants are
// shown; ancestors of matches are forced open.
func (t *Tree) Visible() []Row {
	var rows []Row
	if t.query == "" {
		for _, root := range t.roots {
			rows = t.appendExpanded(rows, root, 0)
		}
		return rows
	}

	for _, root := range t.roots {
		rows = t.appendFiltered(rows, root, 0)
	}
	return rows
}

func (t *Tree) appendExpanded(rows []Row, n *Node, depth int) []Row {
	rows = append(rows, Row{Node: n, Depth: depth})
	if !t.expanded[n.Path] {
		return rows
	}
	for _, child := range n.Children {
		rows = t.appendExpanded(rows, child, depth+1)
	}
	return rows
}

func (t *Tree) appendFiltered(rows []Row, n *Node, depth int) []Row {
	if t.matches(n) {
		return t.appendExpanded(rows, n, depth)
	}
	if !t.containsMatch(n) {
		return rows
	}
	rows = append(rows, Row{Node: n, Depth: depth})
	for _, child := range n.Children {
		rows = t.appendFiltered(rows, child, depth+1)
	}
	return rows
}

func (t *Tree) matches(n *Node) bool {
	return strings.Contains(n.Path, t.query)
}

func (t *Tree) containsMatch(n *Node) bool {
	for _, child := range n.Children {
		if t.matches(child) || t.containsMatch(child) {
			return true
		}
	}
	return false
}

// Matches returns the paths of nodes matching the query in display order
func (t *Tree) Matches() []string {
	if t.query == "" {
		return nil
	}
	var paths []string
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if t.matches(n) {
				paths = append(paths, n.Path)
			}
			walk(n.Children)
		}
	}
	walk(t.roots)
	return paths
}

// ExpandMatches opens every match and its ancestors so the filter can be dropped
// without hiding what was found
func (t *Tree) ExpandMatches() {
	for _, path := range t.Matches() {
		for p := path; p != ""; p = models.Parent(p) {
			if node := t.index[p]; node != nil && !node.IsLeaf() {
				t.expanded[p] = true
			}
		}
	}
}
