package core

import (
	"context"
	"sync"
)

// Accessor fetches contexts by name.  A link that was decoded from
// storage only knows its target's name, and the owning context uses
// its Accessor to find the target.
type Accessor interface {
	Context(ctx context.Context, name string) (Context, error)
}

// AccessorFunc makes a function an Accessor.
type AccessorFunc func(ctx context.Context, name string) (Context, error)

func (f AccessorFunc) Context(ctx context.Context, name string) (Context, error) {
	return f(ctx, name)
}

// ContextLink is a symbolic reference to the subtree of another
// context rooted at Offset.
//
// A link stored at path "p" with offset "x/y" exposes the target's
// "x/y" subtree as "p/y".  With an empty offset the whole target
// appears under "p".
type ContextLink struct {
	// Name is the target context's name.  It's what survives
	// serialization.
	Name string `json:"name"`

	// Offset is the path in the target that the link points to.
	Offset string `json:"offset,omitempty"`

	mu     sync.Mutex
	target Context
}

// NewContextLink makes a link to the target context at the given
// offset.
func NewContextLink(target Context, offset string) *ContextLink {
	l := &ContextLink{
		Offset: offset,
		target: target,
	}
	if target != nil {
		l.Name = target.Name()
	}
	return l
}

// Target returns the linked context if it has been attached or
// fetched.
func (l *ContextLink) Target() Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

// resolve returns the target, fetching it by name if needed.
func (l *ContextLink) resolve(acc Accessor) (Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.target != nil {
		return l.target, nil
	}
	if acc == nil {
		return nil, &ContextError{Context: l.Name, Msg: "can't resolve link", Err: ErrNoAccessor}
	}
	target, err := acc.Context(context.Background(), l.Name)
	if err != nil {
		return nil, &ContextError{Context: l.Name, Msg: "can't fetch linked context", Err: err}
	}
	l.target = target
	return target, nil
}

// Copy returns a link with the same target and offset.
func (l *ContextLink) Copy() *ContextLink {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &ContextLink{
		Name:   l.Name,
		Offset: l.Offset,
		target: l.target,
	}
}

func (l *ContextLink) String() string {
	return "link:" + l.Name + ":" + l.Offset
}
