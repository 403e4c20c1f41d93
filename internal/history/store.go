// Package history holds the per-topic record of observed events.
//
// A Store is not synchronized; its owner guards it with a reader/writer lock.
package history

import (
	"sort"

	"github.com/shubhamrasal/kvui/internal/models"
)

// Store maps topic paths to the events observed on them, in arrival order
type Store struct {
	topics map[string][]models.HistoryEntry
	bytes  int
}

// Summary aggregates the history at and below a topic path
type Summary struct {
	Topics  int
	Entries int
	Last    *models.HistoryEntry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		topics: make(map[string][]models.HistoryEntry),
	}
}

// Add appends entry to the history of topic
func (s *Store) Add(topic string, entry models.HistoryEntry) {
	s.topics[topic] = append(s.topics[topic], entry)
	s.bytes += len(entry.Payload.Bytes())
}

// TopicsBelow returns every known topic equal to prefix or nested under it, sorted
func (s *Store) TopicsBelow(prefix string) []string {
	var topics []string
	for topic := range s.topics {
		if models.IsBelow(topic, prefix) {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// UncacheTopicEntry removes the entry at index from the local history of topic.
// It returns false and leaves the store untouched when there is no such entry.
func (s *Store) UncacheTopicEntry(topic string, index int) (models.HistoryEntry, bool) {
	entries, ok := s.topics[topic]
	if !ok || index < 0 || index >= len(entries) {
		return models.HistoryEntry{}, false
	}

	removed := entries[index]
	s.topics[topic] = append(entries[:index:index], entries[index+1:]...)
	s.bytes -= len(removed.Payload.Bytes())
	return removed, true
}

// Topics returns the known topics, sorted
func (s *Store) Topics() []string {
	topics := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Len returns the number of known topics
func (s *Store) Len() int {
	return len(s.topics)
}

// Entries returns the history of topic. The slice must not be modified.
func (s *Store) Entries(topic string) []models.HistoryEntry {
	return s.topics[topic]
}

// Last returns the most recent entry of topic
func (s *Store) Last(topic string) (models.HistoryEntry, bool) {
	entries := s.topics[topic]
	if len(entries) == 0 {
		return models.HistoryEntry{}, false
	}
	return entries[len(entries)-1], true
}

// PayloadBytes returns the number of payload bytes currently retained
func (s *Store) PayloadBytes() int {
	return s.bytes
}

// Summary aggregates topic counts and entries at and below prefix.
// Last is the latest entry of prefix itself when it has history.
func (s *Store) Summary(prefix string) Summary {
	var summary Summary
	for topic, entries := range s.topics {
		if !models.IsBelow(topic, prefix) {
			continue
		}
		summary.Topics++
		summary.Entries += len(entries)
	}
	if last, ok := s.Last(prefix); ok {
		summary.Last = &last
	}
	return summary
}
