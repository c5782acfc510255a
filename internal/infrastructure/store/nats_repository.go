// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"
)

// NATS Key-Value store bucket names
const (
	KVStoreNameAppointments = "appointments"
	KVStoreNameUsers        = "users"
	KVStoreNameWebhookLogs  = "webhook-logs"
)

// KVStoreNames lists every bucket the service needs at startup.
var KVStoreNames = []string{
	KVStoreNameAppointments,
	KVStoreNameUsers,
	KVStoreNameWebhookLogs,
}

// INatsKeyValue is the subset of jetstream.KeyValue the repositories use.
// It allows for mocking in tests.
type INatsKeyValue interface {
	ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(context.Context, string, []byte) (uint64, error)
	// Create writes the key only if it does not exist yet.
	Create(ctx context.Context, key string, value []byte, opts ...jetstream.KVCreateOpt) (uint64, error)
	Update(context.Context, string, []byte, uint64) (uint64, error)
	Delete(context.Context, string, ...jetstream.KVDeleteOpt) error
}
