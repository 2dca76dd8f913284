// Package blobstore persists HTML document snapshots for completed jobs.
package blobstore

import (
	"context"
	"sort"
	"sync"
)

// Store is the snapshot storage surface the result ingestor depends on.
type Store interface {
	// Put uploads a blob under path and returns its public URL.
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put stores the blob and returns a mem:// URL for it.
func (s *MemoryStore) Put(_ context.Context, path, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[path] = cp
	return "mem://" + path, nil
}

// Get returns a stored blob, or nil if absent.
func (s *MemoryStore) Get(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[path]
}

// Paths returns the stored paths in sorted order.
func (s *MemoryStore) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.blobs))
	for p := range s.blobs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
