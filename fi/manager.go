package fi

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/util"
)

// Morpher is called after a Manager switches a fidelity's select.  It
// may switch other fidelities through the Manager.
type Morpher func(ctx context.Context, m *Manager, f Selectable, from, to string) error

// Switch records one change of select.
type Switch struct {
	Fidelity string    `json:"fidelity"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
}

// morphing is implemented by Fidelity[T] for any T.
type morphing interface {
	Morpher() Morpher
}

// Manager is a registry of fidelities that can be switched together.
//
// No transition legality is enforced: any select can follow any
// other.
type Manager struct {
	mu      sync.Mutex
	fis     map[string]Selectable
	history []Switch
	logger  *zap.Logger
}

func NewManager() *Manager {
	return &Manager{
		fis: make(map[string]Selectable),
	}
}

// SetLogger overrides util.Logger().
func (m *Manager) SetLogger(l *zap.Logger) {
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

func (m *Manager) log() *zap.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logger != nil {
		return m.logger
	}
	return util.Logger()
}

// Add registers fidelities by name.  A later fidelity with the same
// name replaces an earlier one.
func (m *Manager) Add(fs ...Selectable) {
	m.mu.Lock()
	for _, f := range fs {
		m.fis[f.Name()] = f
	}
	m.mu.Unlock()
}

func (m *Manager) Get(name string) (Selectable, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, have := m.fis[name]
	return f, have
}

// Names returns the registered fidelity names, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := make([]string, 0, len(m.fis))
	for n := range m.fis {
		acc = append(acc, n)
	}
	sort.Strings(acc)
	return acc
}

func (m *Manager) sorted() []Selectable {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := make([]Selectable, 0, len(m.fis))
	for _, f := range m.fis {
		acc = append(acc, f)
	}
	sort.Slice(acc, func(i, j int) bool { return acc[i].Name() < acc[j].Name() })
	return acc
}

// switchTo selects the named select and fires the fidelity's morpher
// without holding the Manager's lock.
func (m *Manager) switchTo(ctx context.Context, f Selectable, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := f.SelectName()
	if err := f.SelectByName(to); err != nil {
		return err
	}
	m.mu.Lock()
	m.history = append(m.history, Switch{
		Fidelity: f.Name(),
		From:     from,
		To:       to,
		At:       time.Now().UTC(),
	})
	m.mu.Unlock()

	m.log().Debug("fidelity switch",
		zap.String("fidelity", f.Name()),
		zap.String("from", from),
		zap.String("to", to))

	if mf, is := f.(morphing); is {
		if morph := mf.Morpher(); morph != nil {
			return morph(ctx, m, f, from, to)
		}
	}
	return nil
}

// Morph selects each named select in every fidelity that has a
// select with that name.  A name no fidelity has is an error.
func (m *Manager) Morph(ctx context.Context, names ...string) error {
	fs := m.sorted()
	for _, name := range names {
		found := false
		for _, f := range fs {
			if !contains(f.Names(), name) {
				continue
			}
			found = true
			if err := m.switchTo(ctx, f, name); err != nil {
				return err
			}
		}
		if !found {
			return &UnknownSelect{Fidelity: "*", Select: name}
		}
	}
	return nil
}

// Reconfigure applies each Fi to the fidelity with the Fi's path.
func (m *Manager) Reconfigure(ctx context.Context, fis ...Fi) error {
	fs := m.sorted()
	for _, x := range fis {
		var target Selectable
		for _, f := range fs {
			if f.Path() == x.Path {
				target = f
				break
			}
		}
		if target == nil {
			return &UnknownSelect{Fidelity: x.Path, Select: x.Select}
		}
		if err := m.switchTo(ctx, target, x.Select); err != nil {
			return err
		}
	}
	return nil
}

// History returns a copy of the switches made so far.
func (m *Manager) History() []Switch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Switch(nil), m.history...)
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
