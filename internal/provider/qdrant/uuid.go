package qdrant

import (
	"crypto/md5"
	"encoding/hex"
)

// uuidFrom derives a stable UUID-shaped id from a chunk id. The same
// chunk always maps to the same point, so re-ingestion overwrites.
func uuidFrom(s string) string {
	sum := md5.Sum([]byte(s))
	h := hex.EncodeToString(sum[:])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}
