// Package identity derives stable session keys from request attributes.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// sessionKeyLen is the truncated length of the hex-encoded hash.
const sessionKeyLen = 16

// Resolve derives a deterministic session id from an IP address, a raw
// user-agent string, and the UTC calendar day of now. All traffic sharing
// those three values collapses into a single session: a new session begins
// only when the date rolls over or either input changes. This coarse
// graining is the anti-duplication mechanism that totalVisits semantics
// depend on downstream.
func Resolve(ip, userAgent string, now time.Time) string {
	day := now.UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(ip + "_" + userAgent + "_" + day))
	return hex.EncodeToString(sum[:])[:sessionKeyLen]
}
