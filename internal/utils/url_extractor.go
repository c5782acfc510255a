// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"net/url"
	"strings"
)

// ProviderResourceID extracts the identifier from a provider resource URI.
// The provider identifies events and invitees by URIs such as
// https://api.calendly.com/scheduled_events/EVT123/invitees/INV456, where the
// last path segment is the stable identifier. Values that are not URIs are
// returned trimmed, so bare identifiers pass through unchanged.
func ProviderResourceID(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return ""
	}

	if parsed, err := url.Parse(uri); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		uri = parsed.Path
	}

	uri = strings.TrimRight(uri, "/")
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		uri = uri[idx+1:]
	}
	return uri
}
