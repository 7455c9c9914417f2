package pipeline

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ContentDigest returns the hex BLAKE3 digest of the stripped text. The import
// system uses it to recognize a re-import of unchanged content.
func ContentDigest(stripped string) string {
	sum := blake3.Sum256([]byte(stripped))
	return hex.EncodeToString(sum[:])
}
