package models

import "strings"

// TopicSeparator delimits topic path segments
const TopicSeparator = "/"

// Segments splits a topic path into its segments
func Segments(topic string) []string {
	if topic == "" {
		return nil
	}
	return strings.Split(topic, TopicSeparator)
}

// IsBelow reports whether topic equals prefix or is nested under it.
// Matching is segment-wise: "a/bb" is not below "a/b".
func IsBelow(topic, prefix string) bool {
	if topic == prefix {
		return true
	}
	return strings.HasPrefix(topic, prefix+TopicSeparator)
}

// Parent returns the parent path of topic, or "" for a root segment
func Parent(topic string) string {
	i := strings.LastIndex(topic, TopicSeparator)
	if i < 0 {
		return ""
	}
	return topic[:i]
}
