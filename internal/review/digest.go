package review

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest computes the SHA-256 hex digest of a document's UTF-8 bytes,
// per spec §3's DocumentVersion.versionHash definition.
func Digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// VersionSummary is DocumentVersion without its full content, used for
// version-listing endpoints where shipping every historical body would
// be wasteful.
type VersionSummary struct {
	Digest      string `json:"digest"`
	CreatedAt   string `json:"createdAt"`
	Description string `json:"description,omitempty"`
	Author      Author `json:"author"`
}

// Summary strips Content from a DocumentVersion.
func (v DocumentVersion) Summary() VersionSummary {
	return VersionSummary{
		Digest:      v.Digest,
		CreatedAt:   v.CreatedAt.Format(rfc3339Milli),
		Description: v.Description,
		Author:      v.Author,
	}
}

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"
