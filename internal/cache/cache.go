// Package cache keeps recently generated model text so repeatable prompts are not
// re-sent upstream, and collapses concurrent identical requests into one call.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	defaultSize = 256
	defaultTTL  = 10 * time.Minute
)

// Texts is an expiring LRU of raw model responses keyed by prompt.
type Texts struct {
	lru   *expirable.LRU[string, string]
	group singleflight.Group
}

// New constructs a cache holding at most size entries for ttl each.
func New(size int, ttl time.Duration) *Texts {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Texts{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get returns the cached text for key.
func (t *Texts) Get(key string) (string, bool) {
	return t.lru.Get(key)
}

// Add stores text under key.
func (t *Texts) Add(key, text string) {
	t.lru.Add(key, text)
}

// Do runs fn once per key among concurrent callers and hands every caller its result.
func (t *Texts) Do(key string, fn func() (string, error)) (string, error) {
	v, err, _ := t.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return "", err
	}
	text, _ := v.(string)
	return text, nil
}

// Len reports the number of live entries.
func (t *Texts) Len() int {
	return t.lru.Len()
}

// Key derives a fixed-size cache key from prompt parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
