package shroud

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// fingerprintPrefix separates key fingerprints from other BLAKE2b uses of
// the same key bytes.
const fingerprintPrefix = "shroud.key.v1"

// Fingerprint returns a short, stable identifier for key that is safe to log.
// It is the first 8 bytes of BLAKE2b-256 over a fixed prefix and the
// key, hex encoded.
func Fingerprint(key []byte) string {
	sum := blake2b.Sum256(append([]byte(fingerprintPrefix), key...))
	return hex.EncodeToString(sum[:8])
}
