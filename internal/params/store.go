package params

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// Store holds this process's own parameters.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Snapshot copies all parameters.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MapSource serves peers from in-process stores. A peer is available once
// it has a store.
type MapSource struct {
	mu    sync.RWMutex
	peers map[string]*Store
}

func NewMapSource() *MapSource {
	return &MapSource{peers: make(map[string]*Store)}
}

// Attach makes store reachable under peer.
func (m *MapSource) Attach(peer string, store *Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[peer] = store
}

func (m *MapSource) Available(_ context.Context, peer string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peers[peer] != nil
}

func (m *MapSource) Get(_ context.Context, peer, name string) (string, bool, error) {
	m.mu.RLock()
	store := m.peers[peer]
	m.mu.RUnlock()
	if store == nil {
		return "", false, nil
	}
	v, ok := store.Get(name)
	return v, ok, nil
}

type parameterBody struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Routes serves the store to peers using HTTPSource. guard runs before
// each handler.
func Routes(r gin.IRoutes, store *Store, guard ...gin.HandlerFunc) {
	chain := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(guard[:len(guard):len(guard)], h)
	}
	r.GET("/parameters", chain(func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"names": store.Names()})
	})...)
	r.GET("/parameters/:name", chain(func(c *gin.Context) {
		name := c.Param("name")
		v, ok := store.Get(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "parameter not found", "name": name})
			return
		}
		c.JSON(http.StatusOK, parameterBody{Name: name, Value: v})
	})...)
}
