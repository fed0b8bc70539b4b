package utils

import (
	"encoding/hex"
	"hash/fnv"
)

// HashURL derives the short key for a URL. FNV-1a 32-bit keeps the key at 8
// hex characters; collisions are tolerated because equal URLs always map to
// the same record.
func HashURL(url string) string {
	h := fnv.New32a()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
