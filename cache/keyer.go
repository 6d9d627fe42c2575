package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Keyer builds namespaced keys such as "pokedex:metadata:mewtwo".
type Keyer struct {
	Prefix string
}

// Key joins the prefix, namespace and parts with ':'. Parts are lowercased.
// Keys that would not pass ValidateKey are replaced by a SHA-256 digest of
// the parts so arbitrary input stays cacheable.
func (k Keyer) Key(namespace string, parts ...string) string {
	joined := strings.ToLower(strings.Join(parts, ":"))
	key := namespace + ":" + joined
	if k.Prefix != "" {
		key = k.Prefix + ":" + key
	}
	if ValidateKey(key) == nil {
		return key
	}

	sum := sha256.Sum256([]byte(joined))
	hashed := namespace + ":h:" + hex.EncodeToString(sum[:16])
	if k.Prefix != "" {
		hashed = k.Prefix + ":" + hashed
	}
	return hashed
}
