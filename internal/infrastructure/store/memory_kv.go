// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// MemoryKeyValue is an in-process INatsKeyValue with the same key, create and
// revision semantics as a JetStream bucket. It is meant for local development
// without a NATS server, and for tests.
type MemoryKeyValue struct {
	bucket string

	mu        sync.Mutex
	data      map[string][]byte
	revisions map[string]uint64
	sequence  uint64
}

// NewMemoryKeyValue creates an empty in-memory bucket.
func NewMemoryKeyValue(bucket string) *MemoryKeyValue {
	return &MemoryKeyValue{
		bucket:    bucket,
		data:      make(map[string][]byte),
		revisions: make(map[string]uint64),
	}
}

type memoryEntry struct {
	bucket   string
	key      string
	value    []byte
	revision uint64
}

func (e *memoryEntry) Bucket() string                  { return e.bucket }
func (e *memoryEntry) Key() string                     { return e.key }
func (e *memoryEntry) Value() []byte                   { return e.value }
func (e *memoryEntry) Revision() uint64                { return e.revision }
func (e *memoryEntry) Created() time.Time              { return time.Time{} }
func (e *memoryEntry) Delta() uint64                   { return 0 }
func (e *memoryEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

type memoryKeyLister struct {
	keys chan string
}

func (l *memoryKeyLister) Keys() <-chan string { return l.keys }
func (l *memoryKeyLister) Stop() error         { return nil }

// ListKeys returns a snapshot of the keys present at call time.
func (m *MemoryKeyValue) ListKeys(_ context.Context, _ ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) == 0 {
		return nil, jetstream.ErrNoKeysFound
	}
	keys := make(chan string, len(m.data))
	for key := range m.data {
		keys <- key
	}
	close(keys)
	return &memoryKeyLister{keys: keys}, nil
}

func (m *MemoryKeyValue) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return &memoryEntry{bucket: m.bucket, key: key, value: value, revision: m.revisions[key]}, nil
}

func (m *MemoryKeyValue) Put(_ context.Context, key string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store(key, value), nil
}

func (m *MemoryKeyValue) Create(_ context.Context, key string, value []byte, _ ...jetstream.KVCreateOpt) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return 0, jetstream.ErrKeyExists
	}
	return m.store(key, value), nil
}

// Update fails with the server's wrong-last-sequence error when the revision is stale.
func (m *MemoryKeyValue) Update(_ context.Context, key string, value []byte, revision uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.revisions[key]
	if !ok {
		return 0, jetstream.ErrKeyNotFound
	}
	if current != revision {
		return 0, fmt.Errorf("nats: wrong last sequence: %d", current)
	}
	return m.store(key, value), nil
}

func (m *MemoryKeyValue) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(m.data, key)
	delete(m.revisions, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryKeyValue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *MemoryKeyValue) store(key string, value []byte) uint64 {
	m.sequence++
	m.data[key] = append([]byte(nil), value...)
	m.revisions[key] = m.sequence
	return m.sequence
}
