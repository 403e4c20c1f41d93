package nats

import (
	"github.com/pkg/errors"
	"github.com/shubhamrasal/kvui/internal/models"
)

// BucketInfo returns the state of the bucket being inspected
func (c *Client) BucketInfo() (*models.Bucket, error) {
	status, err := c.kv.Status()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bucket status")
	}

	return &models.Bucket{
		Name:         status.Bucket(),
		Values:       status.Values(),
		Bytes:        status.Bytes(),
		History:      status.History(),
		TTL:          status.TTL(),
		BackingStore: status.BackingStore(),
	}, nil
}
