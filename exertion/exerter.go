package exertion

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/match"
	"github.com/mwsobol/SORCER-sub002/util"
)

// Exerter runs mograms.
type Exerter interface {
	Exert(ctx context.Context, m Mogram) (Mogram, error)
}

// ErrNoProvider occurs when no registered provider can serve a
// signature.
var ErrNoProvider = errors.New("no provider")

// ProviderFunc serves a signature by reading and writing the task's
// context.
type ProviderFunc func(ctx context.Context, c *core.ServiceContext) error

type provider struct {
	name     string
	fn       ProviderFunc
	template match.Template
}

// ProviderOption configures a registered provider.
type ProviderOption func(*provider)

// WithProviderName names the provider so that signatures with a
// ProviderName can pick it.
func WithProviderName(name string) ProviderOption {
	return func(p *provider) {
		p.name = name
	}
}

// WithTemplate makes the provider eligible only for contexts that
// match the template.
func WithTemplate(t match.Template) ProviderOption {
	return func(p *provider) {
		p.template = t
	}
}

type opKey struct {
	serviceType, selector string
}

// LocalExerter runs mograms with in-process providers.
type LocalExerter struct {
	mu        sync.RWMutex
	providers map[opKey][]*provider
	logger    *zap.Logger
}

func NewLocalExerter() *LocalExerter {
	return &LocalExerter{
		providers: make(map[opKey][]*provider),
	}
}

// SetLogger overrides util.Logger().
func (e *LocalExerter) SetLogger(l *zap.Logger) {
	e.mu.Lock()
	e.logger = l
	e.mu.Unlock()
}

func (e *LocalExerter) log() *zap.Logger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.logger != nil {
		return e.logger
	}
	return util.Logger()
}

// Register adds a provider for the operation.  Providers registered
// earlier are tried first.
func (e *LocalExerter) Register(serviceType, selector string, fn ProviderFunc, opts ...ProviderOption) {
	p := &provider{fn: fn}
	for _, opt := range opts {
		opt(p)
	}
	k := opKey{serviceType, selector}
	e.mu.Lock()
	e.providers[k] = append(e.providers[k], p)
	e.mu.Unlock()
}

// ServiceTypes returns the service types with providers.
func (e *LocalExerter) ServiceTypes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := make(map[string]bool)
	var acc []string
	for k := range e.providers {
		if !seen[k.serviceType] {
			seen[k.serviceType] = true
			acc = append(acc, k.serviceType)
		}
	}
	return acc
}

// find picks the first provider for the signature whose name and
// template fit.
func (e *LocalExerter) find(sig *Signature, c *core.ServiceContext) (*provider, error) {
	e.mu.RLock()
	ps := append([]*provider(nil), e.providers[opKey{sig.ServiceType, sig.Selector}]...)
	e.mu.RUnlock()
	for _, p := range ps {
		if sig.ProviderName != "" && sig.ProviderName != p.name {
			continue
		}
		if p.template != nil {
			ok, err := match.Matches(c, p.template)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		return p, nil
	}
	return nil, ErrNoProvider
}

// Exert runs the mogram and returns it.
//
// A failure is recorded on the mogram, which is then Failed, and
// returned.
func (e *LocalExerter) Exert(ctx context.Context, m Mogram) (Mogram, error) {
	if !m.IsTree() {
		return m, &MogramError{Mogram: m, Msg: "not a tree"}
	}
	m.SetStatus(Running)
	var err error
	switch mm := m.(type) {
	case *Task:
		err = e.exertTask(ctx, mm)
	case *Job:
		err = e.exertJob(ctx, mm)
	default:
		err = &MogramError{Mogram: m, Msg: "unsupported mogram type"}
	}
	if err != nil {
		m.ReportException("exert", err)
		m.SetStatus(Failed)
		e.log().Warn("exert failed",
			zap.String("mogram", m.Name()),
			zap.Error(err))
		return m, err
	}
	m.SetStatus(Done)
	return m, nil
}

func (e *LocalExerter) call(ctx context.Context, m Mogram, sig *Signature, c *core.ServiceContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := e.find(sig, c)
	if err != nil {
		return &ExertionError{Mogram: m, Signature: sig, Err: err}
	}
	e.log().Debug("call",
		zap.String("mogram", m.Name()),
		zap.String("signature", sig.String()))
	if err := p.fn(ctx, c); err != nil {
		return &ExertionError{Mogram: m, Signature: sig, Err: err}
	}
	m.AppendTrace(sig.String())
	return nil
}

// exertTask runs the APD, PRE, process, and POST signatures in that
// order.
func (e *LocalExerter) exertTask(ctx context.Context, t *Task) error {
	sig, err := t.Process()
	if err != nil {
		return &RoutineError{Mogram: t, Msg: "no process signature"}
	}
	c := t.Context()

	for _, apd := range t.SignaturesOf(APD) {
		scratch := core.NewServiceContext(apd.Selector)
		if err := e.call(ctx, t, apd, scratch); err != nil {
			return err
		}
		if err := c.Append(scratch); err != nil {
			return err
		}
	}
	for _, pre := range t.SignaturesOf(PRE) {
		if err := e.call(ctx, t, pre, c); err != nil {
			return err
		}
	}
	if err := e.call(ctx, t, sig, c); err != nil {
		return err
	}
	if sig.ReturnPath != nil {
		if err := c.SetReturnPath(*sig.ReturnPath); err != nil {
			return err
		}
	}
	for _, post := range t.SignaturesOf(POST) {
		if err := e.call(ctx, t, post, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *LocalExerter) exertJob(ctx context.Context, j *Job) error {
	ms := j.Mograms()
	switch j.Flow {
	case PAR:
		if j.hasPipes() {
			return &RoutineError{Mogram: j, Msg: "pipes need SEQ flow"}
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, m := range ms {
			m := m
			g.Go(func() error {
				_, err := e.Exert(gctx, m)
				return err
			})
		}
		return g.Wait()
	case SEQ, "":
		for _, m := range ms {
			for _, p := range j.pipesTo(m.Name()) {
				from, _ := j.Mogram(p.From)
				if err := p.Map.Apply(from.Context(), m.Context()); err != nil {
					return &MogramError{Mogram: j, Msg: "pipe " + p.From + " -> " + p.To, Err: err}
				}
			}
			if _, err := e.Exert(ctx, m); err != nil {
				return err
			}
		}
		return nil
	default:
		return &RoutineError{Mogram: j, Msg: "unknown flow " + string(j.Flow)}
	}
}
