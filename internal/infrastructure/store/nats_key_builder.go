// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/logging"
)

// Common key prefixes
const (
	// Entity prefixes
	KeyPrefixAppointment = "appointment"
	KeyPrefixUser        = "user"
	KeyPrefixWebhookLog  = "log"

	// Index prefixes
	KeyPrefixIndex        = "index"
	KeyPrefixIndexInvitee = "invitee"
	KeyPrefixIndexEmail   = "email"
)

// KeyBuilder provides utilities for building consistent NATS KV keys.
// Keys are encoded part by part since provider ids and emails may contain
// characters NATS does not allow in keys.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// EntityKey builds an encoded key for an entity (e.g., "appointment/uid-123")
func (kb *KeyBuilder) EntityKey(entityType, uid string) string {
	return kb.applyPrefix(fmt.Sprintf("%s/%s", entityType, uid))
}

// EntityPattern is the decoded key prefix shared by every entity of a type,
// for use with ListEntitiesEncoded.
func (kb *KeyBuilder) EntityPattern(entityType string) string {
	if kb.prefix == "" {
		return fmt.Sprintf("/%s/", entityType)
	}
	return fmt.Sprintf("/%s/%s/", kb.prefix, entityType)
}

// IndexKey builds an encoded key for a unique index (e.g., "index/invitee/inv_1").
// The stored value is the uid of the entity holding the index.
func (kb *KeyBuilder) IndexKey(indexType, indexValue string) string {
	return kb.applyPrefix(fmt.Sprintf("%s/%s/%s", KeyPrefixIndex, indexType, indexValue))
}

// applyPrefix adds the builder's prefix if one is set and encodes the result
func (kb *KeyBuilder) applyPrefix(key string) string {
	fullKey := key
	if kb.prefix != "" {
		fullKey = fmt.Sprintf("%s/%s", kb.prefix, key)
	}

	encodedKey, err := kb.EncodeKey(fullKey)
	if err != nil {
		slog.Error("error encoding key", logging.ErrKey, err, "key", fullKey)
		return fullKey
	}
	return encodedKey
}

// EncodeKey encodes a key for NATS KV store.
// Adapted from https://github.com/ripienaar/encodedkv using the URL-safe
// alphabet so encoded tokens never contain '+'.
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) EncodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(strings.TrimPrefix(key, "/"), "/") {
		if part == "" {
			return "", nats.ErrInvalidKey
		}
		if part == ">" || part == "*" {
			res = append(res, part)
			continue
		}
		res = append(res, base64.RawURLEncoding.EncodeToString([]byte(part)))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return strings.Join(res, "."), nil
}

// DecodeKey decodes a key for NATS KV store.
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(key, ".") {
		k, err := base64.RawURLEncoding.DecodeString(part)
		if err != nil {
			return "", err
		}

		res = append(res, string(k))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return fmt.Sprintf("/%s", strings.Join(res, "/")), nil
}
