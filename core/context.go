/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/util"
)

// Context is what ServiceContext and its variants have in common.
//
// Links refer to Contexts, so a link can point into a
// PositionalContext or an ArrayContext as well as a plain
// ServiceContext.
type Context interface {
	Name() string

	// GetValue returns the (possibly evaluated) value at the path.
	GetValue(path string, args ...Arg) (interface{}, error)

	// PutValue stores the value at the path.
	PutValue(path string, v interface{}) error

	// Value0 returns the stored value without evaluating it.
	Value0(path string) (interface{}, error)

	// Contains reports whether a value is present at the path,
	// possibly in a linked context.
	Contains(path string) bool

	// Paths returns the context's own paths.
	Paths() []string

	// Base returns the underlying ServiceContext.
	Base() *ServiceContext
}

// ReturnPath names the path that holds a context's result.
type ReturnPath struct {
	Path      string    `json:"path"`
	Direction Direction `json:"direction,omitempty" yaml:",omitempty"`
	OutPaths  []string  `json:"outPaths,omitempty" yaml:"outPaths,omitempty"`
}

// Copy makes a deep copy.
func (rp *ReturnPath) Copy() *ReturnPath {
	if rp == nil {
		return nil
	}
	return &ReturnPath{
		Path:      rp.Path,
		Direction: rp.Direction,
		OutPaths:  append([]string(nil), rp.OutPaths...),
	}
}

// Option configures a new ServiceContext.
type Option func(*ServiceContext)

// WithAccessor sets the Accessor used to fetch linked contexts by
// name.
func WithAccessor(acc Accessor) Option {
	return func(sc *ServiceContext) {
		sc.accessor = acc
	}
}

// WithLogger sets the context's logger.  Otherwise util.Logger() is
// used.
func WithLogger(l *zap.Logger) Option {
	return func(sc *ServiceContext) {
		sc.logger = l
	}
}

// WithModeling starts the context in modeling mode.
func WithModeling(modeling bool) Option {
	return func(sc *ServiceContext) {
		sc.modeling = modeling
	}
}

// WithDescription sets the context's description.
func WithDescription(d string) Option {
	return func(sc *ServiceContext) {
		sc.description = d
	}
}

// WithSubject sets the context's subject.
func WithSubject(path string, value interface{}) Option {
	return func(sc *ServiceContext) {
		sc.subjectPath = path
		sc.subjectValue = value
	}
}

// ServiceContext is a map from paths to values, annotated with
// attributes, able to link to other contexts and to evaluate values
// lazily.
//
// The maps are guarded by a RWMutex.  Resolution through links and
// evaluation happen outside the lock, so an Evaluation can read its
// scope.
type ServiceContext struct {
	mu sync.RWMutex

	id           uuid.UUID
	name         string
	domain       string
	version      string
	description  string
	subjectPath  string
	subjectValue interface{}

	data  map[string]interface{}
	links map[string]*ContextLink
	meta  *Metacontext

	modeling   bool
	deps       map[string][]string
	returnPath *ReturnPath

	accessor Accessor
	traces   *Traces
	logger   *zap.Logger
}

// NewServiceContext makes an empty context.
func NewServiceContext(name string, opts ...Option) *ServiceContext {
	sc := &ServiceContext{
		id:     uuid.New(),
		name:   name,
		data:   make(map[string]interface{}, 16),
		links:  make(map[string]*ContextLink),
		meta:   NewMetacontext(),
		deps:   make(map[string][]string),
		traces: NewTraces(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Base implements Context.
func (sc *ServiceContext) Base() *ServiceContext {
	return sc
}

func (sc *ServiceContext) log() *zap.Logger {
	if sc.logger != nil {
		return sc.logger
	}
	return util.Logger()
}

func (sc *ServiceContext) ID() uuid.UUID {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.id
}

func (sc *ServiceContext) Name() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.name
}

func (sc *ServiceContext) SetName(name string) {
	sc.mu.Lock()
	sc.name = name
	sc.mu.Unlock()
}

// Domain is the name of the service domain the context belongs to.
func (sc *ServiceContext) Domain() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.domain
}

func (sc *ServiceContext) SetDomain(d string) {
	sc.mu.Lock()
	sc.domain = d
	sc.mu.Unlock()
}

func (sc *ServiceContext) Version() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.version
}

func (sc *ServiceContext) SetVersion(v string) {
	sc.mu.Lock()
	sc.version = v
	sc.mu.Unlock()
}

func (sc *ServiceContext) Description() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.description
}

func (sc *ServiceContext) SetDescription(d string) {
	sc.mu.Lock()
	sc.description = d
	sc.mu.Unlock()
}

// Subject returns the subject path and value.
func (sc *ServiceContext) Subject() (string, interface{}) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.subjectPath, sc.subjectValue
}

func (sc *ServiceContext) SetSubject(path string, value interface{}) {
	sc.mu.Lock()
	sc.subjectPath = path
	sc.subjectValue = value
	sc.mu.Unlock()
}

// IsModeling reports whether Evaluation values are evaluated on read.
func (sc *ServiceContext) IsModeling() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.modeling
}

func (sc *ServiceContext) SetModeling(modeling bool) {
	sc.mu.Lock()
	sc.modeling = modeling
	sc.mu.Unlock()
}

func (sc *ServiceContext) Accessor() Accessor {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.accessor
}

func (sc *ServiceContext) SetAccessor(acc Accessor) {
	sc.mu.Lock()
	sc.accessor = acc
	sc.mu.Unlock()
}

// identity tells contexts apart across fetches.  An Accessor can
// return a fresh instance of the same stored context each time, so
// pointers won't do.
type identity struct {
	id   uuid.UUID
	name string
}

func (sc *ServiceContext) identity() identity {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return identity{sc.id, sc.name}
}

type visit struct {
	identity
	path string
}

// coveringLink finds the local link whose extended path contains the
// given path.  When several do, the longest extended path wins.
//
// Caller must hold at least a read lock.
func (sc *ServiceContext) coveringLink(path string) (*ContextLink, string) {
	var (
		best    *ContextLink
		bestExt string
		key     string
	)
	for lp, l := range sc.links {
		ext := extendedLinkPath(lp, l.Offset)
		if !Within(ext, path) {
			continue
		}
		if best == nil || len(bestExt) < len(ext) {
			best, bestExt = l, ext
			key = linkedKey(ext, l.Offset, path)
		}
	}
	return best, key
}

// owner finds the context that owns the path and the path within
// that context.
//
// Direct containment wins.  Otherwise a covering link delegates the
// residual path to the linked context.  If nothing covers the path,
// the receiver owns it.
func (sc *ServiceContext) owner(path string, seen map[visit]bool) (*ServiceContext, string, error) {
	for {
		v := visit{sc.identity(), path}
		if seen[v] {
			return nil, "", &ContextError{Context: sc.Name(), Path: path, Err: ErrLinkCycle}
		}
		seen[v] = true

		sc.mu.RLock()
		if _, have := sc.data[path]; have {
			sc.mu.RUnlock()
			return sc, path, nil
		}
		link, key := sc.coveringLink(path)
		acc := sc.accessor
		name := sc.name
		sc.mu.RUnlock()

		if link == nil {
			return sc, path, nil
		}

		target, err := link.resolve(acc)
		if err != nil {
			return nil, "", &ContextError{Context: name, Path: path, Err: err}
		}

		sc.log().Debug("link",
			zap.String("context", name),
			zap.String("path", path),
			zap.String("target", link.Name),
			zap.String("key", key))

		sc, path = target.Base(), key
	}
}

// ContextMapping returns the context that owns the path and the path
// within that context.
func (sc *ServiceContext) ContextMapping(path string) (*ServiceContext, string, error) {
	return sc.owner(path, make(map[visit]bool))
}

// Value0 implements Context.
func (sc *ServiceContext) Value0(path string) (interface{}, error) {
	o, key, err := sc.owner(path, make(map[visit]bool))
	if err != nil {
		return nil, err
	}
	o.mu.RLock()
	v := o.data[key]
	o.mu.RUnlock()
	return v, nil
}

// Contains implements Context.
func (sc *ServiceContext) Contains(path string) bool {
	o, key, err := sc.owner(path, make(map[visit]bool))
	if err != nil {
		return false
	}
	o.mu.RLock()
	_, have := o.data[key]
	o.mu.RUnlock()
	return have
}

// PutValue implements Context.
//
// A path inside a linked subtree is written to the linked context.
// A *ContextLink value is stored as with PutLink.
func (sc *ServiceContext) PutValue(path string, v interface{}) error {
	if path == "" {
		return &ContextError{Context: sc.Name(), Msg: "empty path"}
	}
	if l, is := v.(*ContextLink); is {
		return sc.putLink(path, l)
	}
	o, key, err := sc.owner(path, make(map[visit]bool))
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.data[key] = v
	delete(o.links, key)
	o.mu.Unlock()
	return nil
}

// PutLink stores a link at the path to the target's subtree at
// offset.
//
// The (target, offset) pair is first resolved through the target's
// own links, so chains of links collapse to a link to the context
// that owns the offset.
func (sc *ServiceContext) PutLink(path string, target Context, offset string) error {
	if target == nil {
		return &ContextError{Context: sc.Name(), Path: path, Msg: "nil link target"}
	}
	return sc.putLink(path, NewContextLink(target, offset))
}

func (sc *ServiceContext) putLink(path string, l *ContextLink) error {
	if path == "" {
		return &ContextError{Context: sc.Name(), Msg: "empty link path"}
	}
	if target := l.Target(); target != nil {
		seen := make(map[visit]bool)
		o, key, err := target.Base().owner(l.Offset, seen)
		if err != nil {
			return err
		}
		// The offset can name a link node itself.  Follow it.
		for {
			o.mu.RLock()
			inner, isLink := o.data[key].(*ContextLink)
			acc := o.accessor
			o.mu.RUnlock()
			if !isLink {
				break
			}
			next, err := inner.resolve(acc)
			if err != nil {
				return err
			}
			if o, key, err = next.Base().owner(inner.Offset, seen); err != nil {
				return err
			}
		}
		if o != target.Base() {
			l = NewContextLink(o, key)
		} else if key != l.Offset {
			l = NewContextLink(target, key)
		}
	}
	sc.mu.Lock()
	sc.data[path] = l
	sc.links[path] = l
	sc.mu.Unlock()
	return nil
}

// Link returns the link stored at the path, if any.
func (sc *ServiceContext) Link(path string) (*ContextLink, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	l, have := sc.links[path]
	return l, have
}

// LinkTarget resolves the link stored at the path, fetching the
// target through the Accessor if needed.
func (sc *ServiceContext) LinkTarget(path string) (Context, error) {
	l, have := sc.Link(path)
	if !have {
		return nil, &ContextError{Context: sc.Name(), Path: path, Msg: "no link"}
	}
	return l.resolve(sc.Accessor())
}

// RemoveLink removes the link at the path.
func (sc *ServiceContext) RemoveLink(path string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if _, have := sc.links[path]; !have {
		return &ContextError{Context: sc.name, Path: path, Msg: "no link"}
	}
	delete(sc.links, path)
	delete(sc.data, path)
	sc.meta.removePath(path)
	return nil
}

// LinkPaths returns the paths of the local links.
func (sc *ServiceContext) LinkPaths() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	acc := make([]string, 0, len(sc.links))
	for p := range sc.links {
		acc = append(acc, p)
	}
	sort.Strings(acc)
	return acc
}

// LinkedContexts resolves and returns the targets of the local links
// in link path order.
func (sc *ServiceContext) LinkedContexts() ([]Context, error) {
	paths := sc.LinkPaths()
	acc := make([]Context, 0, len(paths))
	for _, p := range paths {
		l, have := sc.Link(p)
		if !have {
			continue
		}
		target, err := l.resolve(sc.Accessor())
		if err != nil {
			return nil, err
		}
		acc = append(acc, target)
	}
	return acc, nil
}

// Remove deletes the value at the path along with its marks.  A path
// inside a linked subtree is removed from the linked context.
func (sc *ServiceContext) Remove(path string) error {
	o, key, err := sc.owner(path, make(map[visit]bool))
	if err != nil {
		return err
	}
	o.mu.Lock()
	delete(o.data, key)
	delete(o.links, key)
	delete(o.deps, key)
	o.meta.removePath(key)
	o.mu.Unlock()
	return nil
}

// Paths implements Context.  The result is sorted.
func (sc *ServiceContext) Paths() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.paths()
}

func (sc *ServiceContext) paths() []string {
	acc := make([]string, 0, len(sc.data))
	for p := range sc.data {
		acc = append(acc, p)
	}
	sort.Strings(acc)
	return acc
}

// Keys is Paths.
func (sc *ServiceContext) Keys() []string {
	return sc.Paths()
}

// PathsUnder returns the local paths within the prefix.
func (sc *ServiceContext) PathsUnder(prefix string) []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	acc := make([]string, 0, 8)
	for p := range sc.data {
		if Within(prefix, p) {
			acc = append(acc, p)
		}
	}
	sort.Strings(acc)
	return acc
}

// VisiblePaths returns the local paths together with the paths that
// links expose.  The result is sorted.
func (sc *ServiceContext) VisiblePaths() ([]string, error) {
	found := make(map[string]bool)
	if err := sc.visiblePaths("", found, make(map[identity]bool)); err != nil {
		return nil, err
	}
	acc := make([]string, 0, len(found))
	for p := range found {
		acc = append(acc, p)
	}
	sort.Strings(acc)
	return acc, nil
}

// visiblePaths adds paths under the given offset, rebased on base,
// to found.
func (sc *ServiceContext) visiblePaths(base string, found map[string]bool, stack map[identity]bool) error {
	me := sc.identity()
	if stack[me] {
		return &ContextError{Context: me.name, Err: ErrLinkCycle}
	}
	stack[me] = true
	defer delete(stack, me)

	sc.mu.RLock()
	paths := sc.paths()
	links := make(map[string]*ContextLink, len(sc.links))
	for p, l := range sc.links {
		links[p] = l
	}
	acc := sc.accessor
	sc.mu.RUnlock()

	for _, p := range paths {
		found[Join(base, p)] = true
	}

	for lp, l := range links {
		target, err := l.resolve(acc)
		if err != nil {
			return err
		}
		sub := make(map[string]bool)
		if err := target.Base().visiblePaths("", sub, stack); err != nil {
			return err
		}
		ext := extendedLinkPath(lp, l.Offset)
		for tp := range sub {
			if l.Offset != "" && (!Within(l.Offset, tp) || tp == l.Offset) {
				continue
			}
			found[Join(base, ext, Residual(l.Offset, tp))] = true
		}
	}
	return nil
}

// Size returns the number of local paths.
func (sc *ServiceContext) Size() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.data)
}

// Clear removes all values, links, marks, and dependencies.  The
// attribute registry is kept.
func (sc *ServiceContext) Clear() {
	sc.mu.Lock()
	sc.data = make(map[string]interface{}, 16)
	sc.links = make(map[string]*ContextLink)
	sc.deps = make(map[string][]string)
	for _, tbl := range sc.meta.values {
		for p := range tbl {
			delete(tbl, p)
		}
	}
	sc.mu.Unlock()
}

// rename moves the value, link, marks, and dependencies at one local
// path to another.
func (sc *ServiceContext) rename(from, to string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	v, have := sc.data[from]
	if !have {
		return
	}
	delete(sc.data, from)
	sc.data[to] = v
	delete(sc.links, to)
	if l, have := sc.links[from]; have {
		delete(sc.links, from)
		sc.links[to] = l
	}
	delete(sc.deps, to)
	if ds, have := sc.deps[from]; have {
		delete(sc.deps, from)
		sc.deps[to] = ds
	}
	sc.meta.movePath(from, to)
}

// snapshot is a consistent copy of a context's local state.
type snapshot struct {
	data  map[string]interface{}
	marks map[string]map[string]string
	attrs []Attribute
	deps  map[string][]string
}

func (sc *ServiceContext) snapshot() *snapshot {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	s := &snapshot{
		data:  make(map[string]interface{}, len(sc.data)),
		marks: sc.meta.marks(),
		attrs: sc.meta.Attributes(),
		deps:  make(map[string][]string, len(sc.deps)),
	}
	for p, v := range sc.data {
		s.data[p] = detach(v, sc)
	}
	for p, ds := range sc.deps {
		s.deps[p] = append([]string(nil), ds...)
	}
	return s
}

// Append copies the other context's local values, links, marks, and
// composite attributes into this context.  Existing paths are
// overwritten.
func (sc *ServiceContext) Append(other Context) error {
	s := other.Base().snapshot()
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, a := range s.attrs {
		if a.Kind == Composite {
			if _, have := sc.meta.attrs[a.Name]; have {
				continue
			}
			if err := sc.meta.setCompositeAttribute(a.Name + APS + a.Metapath()); err != nil {
				return err
			}
		} else if err := sc.meta.setAttribute(a.Name); err != nil {
			return err
		}
	}
	for p, v := range s.data {
		sc.data[p] = v
		delete(sc.links, p)
		if l, is := v.(*ContextLink); is {
			sc.links[p] = l
		}
	}
	for attr, tbl := range s.marks {
		for p, v := range tbl {
			sc.meta.put(attr, p, v)
		}
	}
	for p, ds := range s.deps {
		sc.deps[p] = ds
	}
	return nil
}

// Copy makes a copy of the context.  Plain values are shared, but
// maps, links, marks, and evaluations are not.  Evaluations scoped to
// this context lose their scope so that the copy injects itself.
func (sc *ServiceContext) Copy() *ServiceContext {
	s := sc.snapshot()
	sc.mu.RLock()
	acc := &ServiceContext{
		id:           sc.id,
		name:         sc.name,
		domain:       sc.domain,
		version:      sc.version,
		description:  sc.description,
		subjectPath:  sc.subjectPath,
		subjectValue: sc.subjectValue,
		data:         s.data,
		links:        make(map[string]*ContextLink),
		meta:         sc.meta.Copy(),
		modeling:     sc.modeling,
		deps:         s.deps,
		returnPath:   sc.returnPath.Copy(),
		accessor:     sc.accessor,
		traces:       NewTraces(),
		logger:       sc.logger,
	}
	sc.mu.RUnlock()
	for p, v := range acc.data {
		if l, is := v.(*ContextLink); is {
			acc.links[p] = l
		}
	}
	return acc
}

// SubContext returns a new context with the values at the given
// paths and their marks.  Paths inside linked subtrees are copied by
// value.
func (sc *ServiceContext) SubContext(paths ...string) (*ServiceContext, error) {
	acc := NewServiceContext(sc.Name(), WithAccessor(sc.Accessor()), WithLogger(sc.logger))
	for _, p := range paths {
		if !sc.Contains(p) {
			continue
		}
		o, key, err := sc.ContextMapping(p)
		if err != nil {
			return nil, err
		}
		o.mu.RLock()
		v := o.data[key]
		o.mu.RUnlock()
		if err := acc.PutValue(p, detach(v, o)); err != nil {
			return nil, err
		}
		sc.mu.RLock()
		marks := sc.meta.pathMarks(p)
		sc.mu.RUnlock()
		acc.mu.Lock()
		for attr, v := range marks {
			acc.meta.put(attr, p, v)
		}
		acc.mu.Unlock()
	}
	return acc, nil
}

// AppendTrace adds messages to the context's trace.
func (sc *ServiceContext) AppendTrace(msgs ...string) {
	sc.traces.Add(msgs...)
}

// Trace returns a copy of the trace messages.
func (sc *ServiceContext) Trace() []string {
	msgs, _ := sc.traces.Snapshot()
	return msgs
}

// ReportException records a failure on the context's trace without
// affecting the error's propagation.
func (sc *ServiceContext) ReportException(msg string, err error) {
	sc.log().Warn("context exception",
		zap.String("context", sc.Name()),
		zap.String("msg", msg),
		zap.Error(err))
	sc.traces.Report(msg, err)
}

// Exceptions returns the reported failures.
func (sc *ServiceContext) Exceptions() []ThrowableTrace {
	_, exs := sc.traces.Snapshot()
	return exs
}

// Traces returns the context's trace buffer.
func (sc *ServiceContext) Traces() *Traces {
	return sc.traces
}

func (sc *ServiceContext) String() string {
	return "context:" + sc.Name()
}
