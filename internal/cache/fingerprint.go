package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// fingerprintPayload is the canonical serialization of a cache key's inputs.
type fingerprintPayload struct {
	Operation    string `json:"operation"`
	Input        any    `json:"input"`
	Instructions string `json:"instructions"`
}

// Fingerprint derives the deterministic cache key for one generation call.
//
// The operation discriminator, input, and instruction text are serialized to
// canonical JSON and hashed to a fixed-width hex digest. encoding/json writes
// map keys in sorted order, so logically identical structured inputs always
// produce the same fingerprint regardless of construction order.
func Fingerprint(operation string, input any, instructions string) string {
	data, err := json.Marshal(fingerprintPayload{
		Operation:    operation,
		Input:        input,
		Instructions: instructions,
	})
	if err != nil {
		// Unserializable input is a programming error; fall back to the
		// Go-syntax representation rather than failing the lookup.
		data = []byte(fmt.Sprintf("%s|%#v|%s", operation, input, instructions))
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
