// Package sessionid mints browser session ids and derives the storage key
// for them. Raw ids only ever live in the cookie; everything server-side
// (redis keys, audit records, logs) uses the derived key.
package sessionid

import (
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// New returns a fresh random session id.
func New() string {
	return uuid.NewString()
}

// Valid reports whether sid looks like an id minted by New. Anything else
// coming from a cookie is discarded and replaced.
func Valid(sid string) bool {
	_, err := uuid.Parse(sid)
	return err == nil
}

// Key derives the opaque storage key for sid.
func Key(sid string) string {
	sum := blake2b.Sum256([]byte(sid))
	return hex.EncodeToString(sum[:16])
}
