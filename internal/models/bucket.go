package models

import "time"

// Bucket represents the NATS Key-Value bucket being inspected
type Bucket struct {
	Name         string
	Values       uint64
	Bytes        uint64
	History      int64
	TTL          time.Duration
	BackingStore string
}
