// Package storage provides the durable string-keyed key/value store behind
// selection persistence and search history. Keys are namespaced as
// "gridkit:<tableID>:<feature>"; values are JSON.
package storage

import (
	"fmt"
	"sync"
)

// KV is the storage contract. Implementations must tolerate unknown keys:
// Get reports presence rather than erroring.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Key builds the namespaced key for a table/feature pair.
func Key(tableID, feature string) string {
	return fmt.Sprintf("gridkit:%s:%s", tableID, feature)
}

// Memory is an in-process KV used by tests and as the default when no
// durable backend is configured.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

// Get returns the value for key, if present.
func (s *Memory) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

// Set stores the value under key.
func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Memory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Close is a no-op for the memory store.
func (s *Memory) Close() error {
	return nil
}

// Len returns the number of stored keys.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
