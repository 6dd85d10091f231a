package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is how long embedded texts are remembered.
const DefaultCacheTTL = time.Hour

// CachedEmbedder remembers vectors by text. Only texts missing from the cache
// are sent to the inner embedder, and the cache is written only after that
// call has returned a complete batch.
type CachedEmbedder struct {
	inner     Embedder
	namespace string
	cache     *cache.Cache
}

// NewCachedEmbedder wraps inner. namespace separates vectors from different
// models sharing a process. ttl <= 0 selects DefaultCacheTTL.
func NewCachedEmbedder(inner Embedder, namespace string, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedEmbedder{
		inner:     inner,
		namespace: namespace,
		cache:     cache.New(ttl, 2*ttl),
	}
}

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		keys[i] = c.key(text)
		if v, ok := c.cache.Get(keys[i]); ok {
			out[i] = v.([]float32)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}

	for j, i := range missIdx {
		out[i] = vecs[j]
	}
	for j, i := range missIdx {
		c.cache.Set(keys[i], vecs[j], cache.DefaultExpiration)
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.ItemCount()
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.namespace + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
