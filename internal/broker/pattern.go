package broker

import (
	"strings"

	"github.com/shubhamrasal/kvui/internal/models"
)

const (
	// SingleWildcard matches exactly one segment
	SingleWildcard = "*"
	// MultiWildcard matches zero or more segments
	MultiWildcard = "**"
)

// HasWildcard reports whether pattern contains a wildcard segment
func HasWildcard(pattern string) bool {
	for _, segment := range models.Segments(pattern) {
		if segment == SingleWildcard || segment == MultiWildcard {
			return true
		}
	}
	return false
}

// Match reports whether topic is selected by pattern
func Match(pattern, topic string) bool {
	return matchSegments(models.Segments(pattern), models.Segments(topic))
}

func matchSegments(pattern, topic []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case MultiWildcard:
			rest := pattern[1:]
			for i := 0; i <= len(topic); i++ {
				if matchSegments(rest, topic[i:]) {
					return true
				}
			}
			return false
		case SingleWildcard:
			if len(topic) == 0 {
				return false
			}
		default:
			if len(topic) == 0 || pattern[0] != topic[0] {
				return false
			}
		}
		pattern, topic = pattern[1:], topic[1:]
	}
	return len(topic) == 0
}

// ValidTopic reports whether topic is a concrete topic path
func ValidTopic(topic string) bool {
	if topic == "" || HasWildcard(topic) {
		return false
	}
	for _, segment := range models.Segments(topic) {
		if segment == "" || strings.ContainsAny(segment, " \t\n") {
			return false
		}
	}
	return true
}
