package natsclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// KV errors
var (
	ErrKVKeyNotFound = errors.New("kv: key not found")
	ErrKVValueTooBig = errors.New("kv: value exceeds maximum size")
)

// KVEntry wraps a KV entry with its revision
type KVEntry struct {
	Key      string
	Value    []byte
	Revision uint64
}

// KVOptions configures KV operations behavior
type KVOptions struct {
	Timeout      time.Duration // Per-operation timeout
	MaxValueSize int           // Maximum value size in bytes
}

// DefaultKVOptions returns the defaults used for static-data buckets.
func DefaultKVOptions() KVOptions {
	return KVOptions{
		Timeout:      2 * time.Second,
		MaxValueSize: 256 * 1024,
	}
}

// KVStore wraps a bucket with timeouts and error normalization.
type KVStore struct {
	bucket  jetstream.KeyValue
	options KVOptions
	logger  Logger
}

// NewKVStore creates a new KV store with the given bucket
func (m *Client) NewKVStore(bucket jetstream.KeyValue, opts ...func(*KVOptions)) *KVStore {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &KVStore{
		bucket:  bucket,
		options: options,
		logger:  m.logger,
	}
}

// Bucket returns the bucket name.
func (kv *KVStore) Bucket() string {
	return kv.bucket.Bucket()
}

func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kv.options.Timeout > 0 {
		return context.WithTimeout(ctx, kv.options.Timeout)
	}
	return ctx, func() {}
}

// Get retrieves a value with its revision
func (kv *KVStore) Get(ctx context.Context, key string) (*KVEntry, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	entry, err := kv.bucket.Get(ctx, key)
	if err != nil {
		if IsKVNotFoundError(err) {
			return nil, ErrKVKeyNotFound
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}

	return &KVEntry{
		Key:      key,
		Value:    entry.Value(),
		Revision: entry.Revision(),
	}, nil
}

// Put creates or updates a key (last writer wins)
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	if kv.options.MaxValueSize > 0 && len(value) > kv.options.MaxValueSize {
		return 0, fmt.Errorf("kv put %s: %d bytes: %w", key, len(value), ErrKVValueTooBig)
	}

	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	rev, err := kv.bucket.Put(ctx, key, value)
	if err != nil {
		return 0, fmt.Errorf("kv put %s: %w", key, err)
	}

	kv.logger.Debugf("KV Put: key=%s, revision=%d", key, rev)
	return rev, nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if err := kv.bucket.Delete(ctx, key); err != nil && !IsKVNotFoundError(err) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the live keys matching a filter such as "transform.>".
// An empty filter lists every key.
func (kv *KVStore) Keys(ctx context.Context, filter string) ([]string, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	var (
		lister jetstream.KeyLister
		err    error
	)
	if filter == "" {
		lister, err = kv.bucket.ListKeys(ctx)
	} else {
		lister, err = kv.bucket.ListKeysFiltered(ctx, filter)
	}
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("kv list keys: %w", err)
	}

	var keys []string
	for k := range lister.Keys() {
		keys = append(keys, k)
	}
	return keys, nil
}

// DeleteAll deletes every key matching filter and returns how many were removed.
func (kv *KVStore) DeleteAll(ctx context.Context, filter string) (int, error) {
	keys, err := kv.Keys(ctx, filter)
	if err != nil {
		return 0, err
	}

	var errs []error
	for _, k := range keys {
		if err := kv.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return len(keys) - len(errs), errors.Join(errs...)
}

// IsKVNotFoundError checks if error indicates key not found
func IsKVNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrKVKeyNotFound) || errors.Is(err, jetstream.ErrKeyNotFound) ||
		errors.Is(err, jetstream.ErrKeyDeleted) {
		return true
	}
	return strings.Contains(err.Error(), "key not found")
}
