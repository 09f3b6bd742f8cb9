package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/mwsobol/SORCER-sub002/core"
)

// Memory keeps encoded contexts in a map.  Values go through the same
// encoding as durable storage, so what can't be stored fails here
// too.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

func (s *Memory) GetContext(ctx context.Context, name string) (*core.ServiceContext, error) {
	s.mu.RLock()
	js, have := s.data[name]
	s.mu.RUnlock()
	if !have {
		return nil, ErrNotFound
	}
	return Decode(js, s)
}

func (s *Memory) SaveContext(ctx context.Context, name string, c *core.ServiceContext) error {
	js, err := Encode(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[name] = js
	s.mu.Unlock()
	return nil
}

func (s *Memory) DeleteContext(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, have := s.data[name]; !have {
		return ErrNotFound
	}
	delete(s.data, name)
	return nil
}

func (s *Memory) ContextNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc := make([]string, 0, len(s.data))
	for name := range s.data {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc, nil
}
