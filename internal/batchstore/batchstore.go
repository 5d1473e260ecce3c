// Package batchstore holds URL batches awaiting operator confirmation. The
// store is bounded and entries expire, so abandoned batches cannot accumulate
// for the lifetime of the process.
package batchstore

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCapacity = 128
	DefaultTTL      = 30 * time.Minute
)

// A PendingBatch is a submitted URL list that has not been confirmed or
// discarded yet.
type PendingBatch struct {
	ID      string
	URLs    []string
	Created time.Time
}

type Store struct {
	// mu makes Remove's lookup-and-delete atomic; the LRU only synchronises
	// individual operations.
	mu  sync.Mutex
	lru *expirable.LRU[string, PendingBatch]
}

// New creates a Store evicting least-recently-used batches beyond capacity
// and any batch older than ttl. Zero values select the defaults.
func New(capacity int, ttl time.Duration) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{lru: expirable.NewLRU[string, PendingBatch](capacity, nil, ttl)}
}

func (s *Store) Put(batch PendingBatch) {
	s.lru.Add(batch.ID, batch)
}

func (s *Store) Get(id string) (PendingBatch, bool) {
	return s.lru.Get(id)
}

// Remove takes the batch out of the store, returning it if it was present.
// Concurrent calls for the same ID hand the batch to exactly one caller.
func (s *Store) Remove(id string) (PendingBatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.lru.Get(id)
	if ok {
		s.lru.Remove(id)
	}
	return batch, ok
}

func (s *Store) Len() int {
	return s.lru.Len()
}
