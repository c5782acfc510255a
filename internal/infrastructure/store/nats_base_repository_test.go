// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
)

// TestEntity for testing the base repository
type TestEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestNatsBaseRepository_IsReady(t *testing.T) {
	tests := []struct {
		name     string
		kvStore  INatsKeyValue
		expected bool
	}{
		{
			name:     "ready when kvStore is not nil",
			kvStore:  newMockNatsKeyValue(),
			expected: true,
		},
		{
			name:     "not ready when kvStore is nil",
			kvStore:  nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewNatsBaseRepository[TestEntity](tt.kvStore, "test")
			assert.Equal(t, tt.expected, repo.IsReady())
		})
	}
}

func TestNatsBaseRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("successful get", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		entity := &TestEntity{ID: "test-1", Name: "Test Entity"}
		entityJSON, _ := json.Marshal(entity)
		mockKV.data["test-key"] = entityJSON
		mockKV.revisions["test-key"] = 3

		result, revision, err := repo.GetWithRevision(ctx, "test-key")

		require.NoError(t, err)
		assert.Equal(t, entity, result)
		assert.Equal(t, uint64(3), revision)
	})

	t.Run("not found", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](newMockNatsKeyValue(), "test")

		result, err := repo.Get(ctx, "nonexistent")

		assert.Nil(t, result)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})

	t.Run("repository not ready", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](nil, "test")

		_, err := repo.Get(ctx, "test-key")

		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("corrupt value", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")
		mockKV.data["test-key"] = []byte("{not json")

		_, err := repo.Get(ctx, "test-key")

		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
		assert.ErrorIs(t, err, domain.ErrUnmarshal)
	})

	t.Run("store errors are classified", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			expected domain.ErrorType
		}{
			{"timeout", context.DeadlineExceeded, domain.ErrorTypeUnavailable},
			{"nats timeout", nats.ErrTimeout, domain.ErrorTypeUnavailable},
			{"connection closed", nats.ErrConnectionClosed, domain.ErrorTypeUnavailable},
			{"other", errors.New("boom"), domain.ErrorTypeInternal},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockKV := newMockNatsKeyValue()
				mockKV.getError = tt.err
				repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

				_, err := repo.Get(ctx, "test-key")

				assert.Equal(t, tt.expected, domain.GetErrorType(err))
			})
		}
	})
}

func TestNatsBaseRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates new key", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		revision, err := repo.Create(ctx, "test-key", &TestEntity{ID: "1", Name: "one"})

		require.NoError(t, err)
		assert.NotZero(t, revision)
		assert.JSONEq(t, `{"id":"1","name":"one"}`, string(mockKV.data["test-key"]))
	})

	t.Run("existing key is a conflict", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")
		_, err := repo.Create(ctx, "test-key", &TestEntity{ID: "1"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, "test-key", &TestEntity{ID: "2"})

		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
		assert.JSONEq(t, `{"id":"1","name":""}`, string(mockKV.data["test-key"]))
	})

	t.Run("store error", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.createError = errors.New("boom")
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		_, err := repo.Create(ctx, "test-key", &TestEntity{ID: "1"})

		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})
}

func TestNatsBaseRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("matching revision", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")
		revision, err := repo.Create(ctx, "test-key", &TestEntity{ID: "1", Name: "before"})
		require.NoError(t, err)

		newRevision, err := repo.Update(ctx, "test-key", &TestEntity{ID: "1", Name: "after"}, revision)

		require.NoError(t, err)
		assert.Greater(t, newRevision, revision)
		assert.JSONEq(t, `{"id":"1","name":"after"}`, string(mockKV.data["test-key"]))
	})

	t.Run("stale revision is a conflict", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")
		revision, err := repo.Create(ctx, "test-key", &TestEntity{ID: "1"})
		require.NoError(t, err)

		_, err = repo.Update(ctx, "test-key", &TestEntity{ID: "1"}, revision+10)

		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
		assert.ErrorIs(t, err, domain.ErrRevisionMismatch)
	})

	t.Run("missing key", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](newMockNatsKeyValue(), "test")

		_, err := repo.Update(ctx, "test-key", &TestEntity{ID: "1"}, 1)

		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})
}

func TestNatsBaseRepository_DeleteWithoutRevision(t *testing.T) {
	ctx := context.Background()
	mockKV := newMockNatsKeyValue()
	repo := NewNatsBaseRepository[TestEntity](mockKV, "test")
	_, err := repo.Create(ctx, "test-key", &TestEntity{ID: "1"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteWithoutRevision(ctx, "test-key"))
	assert.Zero(t, mockKV.count())

	err = repo.DeleteWithoutRevision(ctx, "test-key")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsBaseRepository_Index(t *testing.T) {
	ctx := context.Background()
	mockKV := newMockNatsKeyValue()
	repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

	require.NoError(t, repo.ClaimIndex(ctx, "index-key", "uid-1"))

	err := repo.ClaimIndex(ctx, "index-key", "uid-2")
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))

	uid, err := repo.ResolveIndex(ctx, "index-key")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	exists, err := repo.Exists(ctx, "index-key")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.ResolveIndex(ctx, "other-key")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))

	exists, err = repo.Exists(ctx, "other-key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNatsBaseRepository_ListEntitiesEncoded(t *testing.T) {
	ctx := context.Background()
	mockKV := newMockNatsKeyValue()
	repo := NewNatsBaseRepository[TestEntity](mockKV, "test")
	kb := NewKeyBuilder("")

	for _, id := range []string{"a", "b"} {
		_, err := repo.Create(ctx, kb.EntityKey("thing", id), &TestEntity{ID: id})
		require.NoError(t, err)
	}
	require.NoError(t, repo.ClaimIndex(ctx, kb.IndexKey("name", "a"), "a"))
	mockKV.data["not-base64!"] = []byte("{}")

	entities, skipped, err := repo.ListEntitiesEncoded(ctx, kb.EntityPattern("thing"), kb)

	require.NoError(t, err)
	assert.Zero(t, skipped)
	ids := []string{}
	for _, entity := range entities {
		ids = append(ids, entity.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestNatsBaseRepository_ListEntitiesEncoded_CountsUnreadable(t *testing.T) {
	ctx := context.Background()
	mockKV := newMockNatsKeyValue()
	repo := NewNatsBaseRepository[TestEntity](mockKV, "test")
	kb := NewKeyBuilder("")

	_, err := repo.Create(ctx, kb.EntityKey("thing", "a"), &TestEntity{ID: "a"})
	require.NoError(t, err)
	mockKV.data[kb.EntityKey("thing", "corrupt")] = []byte("not json")
	mockKV.data[kb.EntityKey("other", "corrupt")] = []byte("not json")

	entities, skipped, err := repo.ListEntitiesEncoded(ctx, kb.EntityPattern("thing"), kb)

	require.NoError(t, err)
	assert.Len(t, entities, 1)
	assert.Equal(t, 1, skipped, "only records under the pattern are counted")
}

func TestNatsBaseRepository_ListKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("empty bucket", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.listError = jetstream.ErrNoKeysFound
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		keys, err := repo.ListKeys(ctx)

		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("list error", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.listError = context.DeadlineExceeded
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		_, err := repo.ListKeys(ctx)

		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})
}
