package util

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash fingerprints a whole file.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// SignatureHash fingerprints a definition header. Whitespace runs are folded
// so reformatting alone does not change the hash.
func SignatureHash(kind, header string) string {
	base := kind + ":" + strings.Join(strings.Fields(header), " ")
	h := sha1.Sum([]byte(base))
	return hex.EncodeToString(h[:])
}
