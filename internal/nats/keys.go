package nats

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/shubhamrasal/kvui/internal/models"
)

// Topic segments map onto NATS key tokens: "room/temp" is stored as "room.temp".
const keySeparator = "."

var validSegment = regexp.MustCompile(`^[-_=a-zA-Z0-9]+$`)

// TopicToKey converts a concrete topic path to a bucket key
func TopicToKey(topic string) (string, error) {
	segments := models.Segments(topic)
	if len(segments) == 0 {
		return "", errors.New("empty topic")
	}
	for _, segment := range segments {
		if !validSegment.MatchString(segment) {
			return "", errors.Errorf("invalid topic %q: segment %q not usable as a key token", topic, segment)
		}
	}
	return strings.Join(segments, keySeparator), nil
}

// PatternToKey converts a subscription pattern to a key filter.
// "*" maps to "*"; "**" maps to ">" and is only supported as the last segment.
func PatternToKey(pattern string) (string, error) {
	segments := models.Segments(pattern)
	if len(segments) == 0 {
		return "", errors.New("empty pattern")
	}
	tokens := make([]string, 0, len(segments))
	for i, segment := range segments {
		switch {
		case segment == broker.MultiWildcard:
			if i != len(segments)-1 {
				return "", errors.Errorf("unsupported pattern %q: %s must be the last segment", pattern, broker.MultiWildcard)
			}
			tokens = append(tokens, ">")
		case segment == broker.SingleWildcard:
			tokens = append(tokens, "*")
		case validSegment.MatchString(segment):
			tokens = append(tokens, segment)
		default:
			return "", errors.Errorf("invalid pattern %q: segment %q not usable as a key token", pattern, segment)
		}
	}
	return strings.Join(tokens, keySeparator), nil
}

// PatternToKeys returns the key filters that together select what pattern
// matches. A trailing "**" also matches its bare prefix, which NATS ">"
// alone would not, so "room/**" watches both "room" and "room.>".
func PatternToKeys(pattern string) ([]string, error) {
	key, err := PatternToKey(pattern)
	if err != nil {
		return nil, err
	}
	prefix, ok := strings.CutSuffix(key, keySeparator+">")
	if !ok {
		return []string{key}, nil
	}
	return []string{prefix, key}, nil
}

// KeyToTopic converts a bucket key back to a topic path
func KeyToTopic(key string) string {
	return strings.ReplaceAll(key, keySeparator, models.TopicSeparator)
}
