package memory

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// GenerationGuard prevents two in-process widget generations for the same
// category from running concurrently. Entries expire so a crashed run cannot
// wedge a category forever.
type GenerationGuard struct {
	cache *cache.Cache
}

func NewGenerationGuard() *GenerationGuard {
	c := cache.New(10*time.Minute, 1*time.Minute)
	return &GenerationGuard{
		cache: c,
	}
}

// TryAcquire returns false when a generation for the key is already running.
func (g *GenerationGuard) TryAcquire(key string) bool {
	return g.cache.Add(key, struct{}{}, cache.DefaultExpiration) == nil
}

func (g *GenerationGuard) Release(key string) {
	g.cache.Delete(key)
}

// ConversationLocks serializes message appends per conversation id so two
// concurrent turns on the same conversation cannot interleave.
type ConversationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *ConversationLocks) Lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
