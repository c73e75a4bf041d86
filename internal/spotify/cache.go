package spotify

import (
	"context"
	"sync"
)

// Factory builds an authenticated session for an identity.
type Factory func(ctx context.Context, userID, username string) (*Client, error)

type cacheKey struct {
	userID   string
	username string
}

// Cache holds one live session per (user id, username) identity for the
// lifetime of its owner. Sessions are never evicted mid-life; CloseAll
// releases every held session at shutdown.
type Cache struct {
	mu      sync.Mutex
	clients map[cacheKey]*Client
	factory Factory
}

func NewCache(factory Factory) *Cache {
	return &Cache{
		clients: make(map[cacheKey]*Client),
		factory: factory,
	}
}

// Get returns the cached session for the identity, building one on first use.
func (c *Cache) Get(ctx context.Context, userID, username string) (*Client, error) {
	key := cacheKey{userID: userID, username: username}

	c.mu.Lock()
	client, ok := c.clients[key]
	c.mu.Unlock()
	if ok {
		return client, nil
	}

	// The handshake runs outside the lock; two concurrent first calls may
	// both build a session, the loser is closed.
	client, err := c.factory(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.clients[key]; ok {
		client.Close()
		return existing, nil
	}
	c.clients[key] = client
	return client, nil
}

// Len reports the number of live sessions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// CloseAll releases every held session.
func (c *Cache) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, client := range c.clients {
		client.Close()
		delete(c.clients, key)
	}
}
