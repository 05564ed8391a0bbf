// Package kvstore is the device-local key-value persistence layer. Values
// are JSON documents; reads never fail, they report absence instead.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultQuotaBytes mirrors the usual browser local-storage budget.
const DefaultQuotaBytes = 5 * 1024 * 1024

var ErrQuotaExceeded = errors.New("kvstore: quota exceeded")

// Backend stores raw string values. Implementations must treat a missing
// key as (_, false, nil).
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	Close() error
}

// Store serializes values to JSON on top of a Backend. There are no
// transactions across keys.
type Store struct {
	backend Backend
	logger  *logrus.Logger
	quota   int
}

type Option func(*Store)

// WithQuota caps the serialized size of a single value. Zero disables the cap.
func WithQuota(bytes int) Option {
	return func(s *Store) { s.quota = bytes }
}

func New(backend Backend, logger *logrus.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Store{backend: backend, logger: logger, quota: DefaultQuotaBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get decodes the value at key into dst. It returns false when the key is
// absent, the backend fails, or the stored JSON does not decode; dst is
// left untouched in those cases.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read persisted key")
		return false
	}
	if !ok || strings.TrimSpace(raw) == "null" {
		return false
	}

	if err := decodeInto([]byte(raw), dst); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Ignoring corrupt persisted value")
		return false
	}
	return true
}

// Has reports whether key holds a non-null value, decodable or not.
func (s *Store) Has(ctx context.Context, key string) bool {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read persisted key")
		return false
	}
	return ok && strings.TrimSpace(raw) != "null"
}

// decodeInto unmarshals into a scratch value first so a half-decoded
// document never leaks into dst.
func decodeInto(raw []byte, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T", dst)
	}

	scratch := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, scratch.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(scratch.Elem())
	return nil
}

// Set serializes value and writes it under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if s.quota > 0 && len(data) > s.quota {
		return fmt.Errorf("%s is %d bytes: %w", key, len(data), ErrQuotaExceeded)
	}
	if err := s.backend.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Remove deletes keys. Failures are logged, not returned.
func (s *Store) Remove(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.logger.WithError(err).WithField("keys", keys).Warn("Failed to remove persisted keys")
	}
}

// Clear drops every key owned by this store.
func (s *Store) Clear(ctx context.Context) {
	if err := s.backend.Clear(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to clear persisted keys")
	}
}

func (s *Store) Close() error {
	return s.backend.Close()
}
