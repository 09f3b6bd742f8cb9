package storage

import (
	"context"

	"github.com/mwsobol/SORCER-sub002/core"
)

// Noop stores nothing.
type Noop struct {
}

func (s *Noop) GetContext(ctx context.Context, name string) (*core.ServiceContext, error) {
	return nil, ErrNotFound
}

func (s *Noop) SaveContext(ctx context.Context, name string, c *core.ServiceContext) error {
	return nil
}

func (s *Noop) DeleteContext(ctx context.Context, name string) error {
	return nil
}

func (s *Noop) ContextNames(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *Noop) Open(ctx context.Context) error {
	return nil
}

func (s *Noop) Close(ctx context.Context) error {
	return nil
}
