package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
)

// requestKey derives a collision-proof cache key for one update: a hash of
// the manifest path plus a random nonce. Concurrent updates of the same
// manifest therefore never share a cache root or config artifact.
func requestKey(manifestPath string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(manifestPath))

	nonce := make([]byte, 6)
	_, _ = rand.Read(nonce)

	return fmt.Sprintf("%x-%s", h.Sum64(), hex.EncodeToString(nonce))
}

// TempCacheProvider hands out private cache roots under the system temp
// directory. Each request key maps to its own directory.
type TempCacheProvider struct {
	// Base overrides the parent directory; os.TempDir() when empty.
	Base string
}

func (p TempCacheProvider) PrivateCacheDir(requestKey string) (string, error) {
	base := p.Base
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "artifacts-cache", requestKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache root: %w", err)
	}
	return dir, nil
}
