package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"sta-hq/verdict/pkg/engine"
)

// HashResult returns the hex SHA-256 of the JSON encoding of res. Struct
// fields encode in declaration order, so equal results hash equally.
func HashResult(res engine.Result) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode result %s: %w", res.EnvelopeID, err)
	}
	return HashContent(data), nil
}

// HashContent computes the hex-encoded SHA-256 of content.
// Returns an empty string if content is empty.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
