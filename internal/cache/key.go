// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/pdiddy/assistant-core/pkg/types"
)

// maxTitleLen bounds how much of a paper title feeds the key hash so that
// trivially-edited titles still collide onto the same entry.
const maxTitleLen = 50

// KeyFromContext derives the deterministic cache key for a request. Facets
// that are present are case-normalized, hashed where free-form, and joined
// with fixed separators, so identical facets always produce the same key.
func KeyFromContext(rc *types.RequestContext) string {
	var parts []string

	if rc.UserID != "" {
		parts = append(parts, "user:"+strings.ToLower(rc.UserID))
	}
	if rc.Specialization != "" {
		parts = append(parts, "spec:"+strings.ToLower(rc.Specialization))
	}
	if rc.Paper != nil && rc.Paper.Title != "" {
		title := strings.ToLower(rc.Paper.Title)
		if len(title) > maxTitleLen {
			title = title[:maxTitleLen]
		}
		parts = append(parts, "paper:"+hashFacet(title))
	}
	if last := lastMessage(rc.History); last != "" {
		parts = append(parts, "msg:"+hashFacet(strings.ToLower(last)))
	}
	if rc.Message != "" {
		parts = append(parts, "q:"+hashFacet(strings.ToLower(rc.Message)))
	}

	return strings.Join(parts, "|")
}

// lastMessage returns the content of the newest history entry, if any.
func lastMessage(history []types.Message) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Content
}

// hashFacet returns a short stable FNV-1a digest of s.
func hashFacet(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
