// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKeyValue(t *testing.T) {
	ctx := context.Background()

	t.Run("empty bucket reports no keys", func(t *testing.T) {
		kv := NewMemoryKeyValue("test")
		_, err := kv.ListKeys(ctx)
		assert.ErrorIs(t, err, jetstream.ErrNoKeysFound)
	})

	t.Run("create refuses existing keys", func(t *testing.T) {
		kv := NewMemoryKeyValue("test")
		_, err := kv.Create(ctx, "a", []byte("1"))
		require.NoError(t, err)
		_, err = kv.Create(ctx, "a", []byte("2"))
		assert.ErrorIs(t, err, jetstream.ErrKeyExists)

		entry, err := kv.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "1", string(entry.Value()))
		assert.Equal(t, "test", entry.Bucket())
	})

	t.Run("update checks revision", func(t *testing.T) {
		kv := NewMemoryKeyValue("test")
		rev, err := kv.Put(ctx, "a", []byte("1"))
		require.NoError(t, err)

		_, err = kv.Update(ctx, "a", []byte("2"), rev+1)
		require.Error(t, err)
		assert.True(t, isRevisionConflict(err))

		newRev, err := kv.Update(ctx, "a", []byte("2"), rev)
		require.NoError(t, err)
		assert.Greater(t, newRev, rev)
	})

	t.Run("stored values are copied", func(t *testing.T) {
		kv := NewMemoryKeyValue("test")
		value := []byte("abc")
		_, err := kv.Put(ctx, "a", value)
		require.NoError(t, err)
		value[0] = 'x'

		entry, err := kv.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(entry.Value()))
	})

	t.Run("delete and list", func(t *testing.T) {
		kv := NewMemoryKeyValue("test")
		_, _ = kv.Put(ctx, "a", []byte("1"))
		_, _ = kv.Put(ctx, "b", []byte("2"))
		require.NoError(t, kv.Delete(ctx, "a"))
		assert.ErrorIs(t, kv.Delete(ctx, "a"), jetstream.ErrKeyNotFound)

		lister, err := kv.ListKeys(ctx)
		require.NoError(t, err)
		var keys []string
		for key := range lister.Keys() {
			keys = append(keys, key)
		}
		assert.Equal(t, []string{"b"}, keys)
		assert.Equal(t, 1, kv.Len())
	})
}
