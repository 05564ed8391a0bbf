// Package blobstore persists uploaded media payloads keyed by catalog
// entry id, in a single versioned "videos" collection.
package blobstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotFound     = errors.New("blobstore: blob not found")
	ErrEmptyPayload = errors.New("blobstore: empty payload")
	ErrInvalidID    = errors.New("blobstore: empty id")
)

// SchemaVersion is the latest collection layout. Opening a store upgrades
// older layouts in place and keeps existing rows.
const SchemaVersion = 2

type Blob struct {
	ID          string
	Data        []byte
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// Store is last-write-wins per id. There is no Delete; blobs
// outlive the catalog entries that point at them.
type Store interface {
	Put(ctx context.Context, id string, payload []byte) error
	// Get returns ErrNotFound for unknown ids and for rows holding no bytes.
	Get(ctx context.Context, id string) (*Blob, error)
	Close() error
}

func checkPut(id string, payload []byte) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	return nil
}

// sniff detects the payload media type, e.g. "video/mp4".
func sniff(payload []byte) string {
	return mimetype.Detect(payload).String()
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
