// Package metadata identifies the pipeline build and fingerprints
// artifacts for reproducibility checks.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
)

// Version is the pipeline version stamped into run reports. Overridden
// at build time via -ldflags "-X .../pkg/metadata.Version=...".
var Version = "dev"

// Fingerprint returns the SHA-256 hex digest of content. Reference data
// files (area GeoJSON) are fingerprinted when loaded so a report can be
// tied back to the exact inputs.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)

	return hex.EncodeToString(sum[:])
}
