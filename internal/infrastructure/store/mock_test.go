// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"
)

// mockKeyLister implements jetstream.KeyLister for testing
type mockKeyLister struct {
	keys []string
}

func (m *mockKeyLister) Keys() <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, key := range m.keys {
			ch <- key
		}
	}()
	return ch
}

func (m *mockKeyLister) Stop() error { return nil }

// mockNatsKeyValue wraps MemoryKeyValue with injectable errors. It is safe for
// concurrent use so that races on Create can be exercised.
type mockNatsKeyValue struct {
	*MemoryKeyValue

	putError    error
	createError error
	getError    error
	deleteError error
	updateError error
	listError   error

	// beforeUpdate runs once per Update call before the revision check,
	// letting tests interleave a concurrent writer.
	beforeUpdate func(key string)
}

func newMockNatsKeyValue() *mockNatsKeyValue {
	return &mockNatsKeyValue{MemoryKeyValue: NewMemoryKeyValue("test-bucket")}
}

func (m *mockNatsKeyValue) injected(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return err
}

// ListKeys returns an empty lister rather than ErrNoKeysFound for an empty bucket.
func (m *mockNatsKeyValue) ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	if err := m.injected(m.listError); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return &mockKeyLister{keys: keys}, nil
}

func (m *mockNatsKeyValue) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	if err := m.injected(m.getError); err != nil {
		return nil, err
	}
	return m.MemoryKeyValue.Get(ctx, key)
}

func (m *mockNatsKeyValue) Put(ctx context.Context, key string, data []byte) (uint64, error) {
	if err := m.injected(m.putError); err != nil {
		return 0, err
	}
	return m.MemoryKeyValue.Put(ctx, key, data)
}

func (m *mockNatsKeyValue) Create(ctx context.Context, key string, data []byte, opts ...jetstream.KVCreateOpt) (uint64, error) {
	if err := m.injected(m.createError); err != nil {
		return 0, err
	}
	return m.MemoryKeyValue.Create(ctx, key, data, opts...)
}

func (m *mockNatsKeyValue) Update(ctx context.Context, key string, data []byte, expectedRevision uint64) (uint64, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate(key)
	}
	if err := m.injected(m.updateError); err != nil {
		return 0, err
	}
	return m.MemoryKeyValue.Update(ctx, key, data, expectedRevision)
}

func (m *mockNatsKeyValue) Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error {
	if err := m.injected(m.deleteError); err != nil {
		return err
	}
	return m.MemoryKeyValue.Delete(ctx, key, opts...)
}

// count returns the number of stored keys.
func (m *mockNatsKeyValue) count() int {
	return m.Len()
}
