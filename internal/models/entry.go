package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shubhamrasal/kvui/internal/payload"
)

// EventKind tells a value write apart from a deletion marker
type EventKind int

const (
	KindWrite EventKind = iota
	KindDelete
)

// String returns the display name of the kind
func (k EventKind) String() string {
	switch k {
	case KindWrite:
		return "Write"
	case KindDelete:
		return "Delete"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// MarshalJSON encodes the kind by name
func (k EventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// timestampWidth is the column width of a rendered timestamp (" 9:04:05.000" / "UNKNOWN     ")
const timestampWidth = 12

// Timestamp is either unknown or a local receive time
type Timestamp struct {
	local time.Time
	known bool
}

// UnknownTime returns the timestamp used for events without an authoritative time
func UnknownTime() Timestamp {
	return Timestamp{}
}

// LocalTime wraps a receive time
func LocalTime(t time.Time) Timestamp {
	return Timestamp{local: t, known: true}
}

// TimestampFor applies the receive-time rule: deletions carry no time
func TimestampFor(kind EventKind, now time.Time) Timestamp {
	if kind == KindDelete {
		return UnknownTime()
	}
	return LocalTime(now)
}

// Time returns the local time and whether it is known
func (t Timestamp) Time() (time.Time, bool) {
	return t.local, t.known
}

// IsUnknown reports whether no time was recorded
func (t Timestamp) IsUnknown() bool {
	return !t.known
}

func (t Timestamp) String() string {
	if !t.known {
		return "UNKNOWN"
	}
	return fmt.Sprintf("%2d:%s", t.local.Hour(), t.local.Format("04:05.000"))
}

// Padded renders the timestamp left aligned in a fixed-width column
func (t Timestamp) Padded() string {
	return fmt.Sprintf("%-*s", timestampWidth, t.String())
}

// MarshalJSON encodes unknown times as null
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.known {
		return []byte("null"), nil
	}
	return json.Marshal(t.local.Format(time.RFC3339Nano))
}

// HistoryEntry is one observed event on a topic
type HistoryEntry struct {
	Kind        EventKind
	Time        Timestamp
	PayloadSize int
	Payload     payload.Payload
}

// NewHistoryEntry builds an entry, truncating the payload to limit bytes
func NewHistoryEntry(kind EventKind, now time.Time, data []byte, limit int) HistoryEntry {
	p := payload.New(data, limit)
	return HistoryEntry{
		Kind:        kind,
		Time:        TimestampFor(kind, now),
		PayloadSize: p.Size(),
		Payload:     p,
	}
}
