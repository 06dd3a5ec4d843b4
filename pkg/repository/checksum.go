package repository

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"strings"
)

const checksumExt = ".sha1"

// parseChecksum extracts the hex digest from a .sha1 file. Files may carry a
// trailing file name ("<digest>  name.jar").
func parseChecksum(data []byte) (string, bool) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", false
	}
	sum := strings.ToLower(fields[0])
	if len(sum) != sha1.Size*2 {
		return "", false
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return "", false
	}
	return sum, true
}

func newHasher() hash.Hash { return sha1.New() }

func hexSum(h hash.Hash) string { return hex.EncodeToString(h.Sum(nil)) }
