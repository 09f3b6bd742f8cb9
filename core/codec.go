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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

const (
	// LinkTag is the key of the JSON object that represents a
	// ContextLink.
	LinkTag = "$link"

	// EvalTag is the key of the JSON object that represents a
	// ScriptEvaluation.
	EvalTag = "$eval"
)

type subjectJSON struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// contextJSON is the wire form of a ServiceContext.
type contextJSON struct {
	ID          uuid.UUID                    `json:"id"`
	Name        string                       `json:"name"`
	Domain      string                       `json:"domain,omitempty"`
	Version     string                       `json:"version,omitempty"`
	Description string                       `json:"description,omitempty"`
	Subject     *subjectJSON                 `json:"subject,omitempty"`
	Modeling    bool                         `json:"modeling,omitempty"`
	Data        map[string]json.RawMessage   `json:"data"`
	Attributes  map[string]string            `json:"attributes,omitempty"`
	Marks       map[string]map[string]string `json:"marks,omitempty"`
	Deps        map[string][]string          `json:"dependencies,omitempty"`
	ReturnPath  *ReturnPath                  `json:"returnPath,omitempty"`
}

// encodeValue renders one stored value.
func encodeValue(path string, v interface{}) (json.RawMessage, error) {
	var x interface{}
	switch vv := v.(type) {
	case *ContextLink:
		x = map[string]interface{}{
			LinkTag: vv.Copy(),
		}
	case *ScriptEvaluation:
		x = map[string]interface{}{
			EvalTag: vv,
		}
	case Evaluation:
		return nil, &ContextError{Path: path, Msg: fmt.Sprintf("%T", v), Err: ErrNotSerializable}
	default:
		x = v
	}
	js, err := json.Marshal(x)
	if err != nil {
		return nil, &ContextError{Path: path, Msg: err.Error(), Err: ErrNotSerializable}
	}
	return js, nil
}

// decodeValue reverses encodeValue.  Links come back without targets.
func decodeValue(js json.RawMessage) (interface{}, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(js, &tagged); err == nil && len(tagged) == 1 {
		if raw, have := tagged[LinkTag]; have {
			l := &ContextLink{}
			if err := json.Unmarshal(raw, l); err != nil {
				return nil, err
			}
			return l, nil
		}
		if raw, have := tagged[EvalTag]; have {
			e := &ScriptEvaluation{}
			if err := json.Unmarshal(raw, e); err != nil {
				return nil, err
			}
			return e, nil
		}
	}
	var x interface{}
	if err := json.Unmarshal(js, &x); err != nil {
		return nil, err
	}
	return x, nil
}

// MarshalJSON encodes the context's local state.  Go-only
// evaluations such as Expr can't be encoded and cause
// ErrNotSerializable.
func (sc *ServiceContext) MarshalJSON() ([]byte, error) {
	s := sc.snapshot()

	sc.mu.RLock()
	w := contextJSON{
		ID:          sc.id,
		Name:        sc.name,
		Domain:      sc.domain,
		Version:     sc.version,
		Description: sc.description,
		Modeling:    sc.modeling,
		ReturnPath:  sc.returnPath.Copy(),
	}
	if sc.subjectPath != "" || sc.subjectValue != nil {
		w.Subject = &subjectJSON{
			Path:  sc.subjectPath,
			Value: sc.subjectValue,
		}
	}
	sc.mu.RUnlock()

	w.Data = make(map[string]json.RawMessage, len(s.data))
	for p, v := range s.data {
		js, err := encodeValue(p, v)
		if err != nil {
			err.(*ContextError).Context = w.Name
			return nil, err
		}
		w.Data[p] = js
	}

	defaults := NewMetacontext()
	for _, a := range s.attrs {
		if _, have := defaults.attrs[a.Name]; have {
			continue
		}
		if w.Attributes == nil {
			w.Attributes = make(map[string]string)
		}
		w.Attributes[a.Name] = a.Metapath()
	}
	if 0 < len(s.marks) {
		w.Marks = s.marks
	}
	if 0 < len(s.deps) {
		w.Deps = s.deps
	}

	return json.Marshal(&w)
}

// UnmarshalJSON replaces the context's state with the decoded one.
// The Accessor and logger are kept.  Decoded links resolve their
// targets through the Accessor.
func (sc *ServiceContext) UnmarshalJSON(js []byte) error {
	var w contextJSON
	if err := json.Unmarshal(js, &w); err != nil {
		return err
	}

	meta := NewMetacontext()
	// Singletons before composites so components keep their kind.
	names := make([]string, 0, len(w.Attributes))
	for name := range w.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if w.Attributes[name] == "" {
			if err := meta.setAttribute(name); err != nil {
				return err
			}
		}
	}
	for _, name := range names {
		if mp := w.Attributes[name]; mp != "" {
			if err := meta.setCompositeAttribute(name + APS + mp); err != nil {
				return err
			}
		}
	}
	for attr, tbl := range w.Marks {
		if _, have := meta.attrs[attr]; !have {
			return &ContextError{Context: w.Name, Msg: `marks for unknown attribute "` + attr + `"`}
		}
		for p, v := range tbl {
			meta.put(attr, p, v)
		}
	}

	data := make(map[string]interface{}, len(w.Data))
	links := make(map[string]*ContextLink)
	for p, raw := range w.Data {
		v, err := decodeValue(raw)
		if err != nil {
			return &ContextError{Context: w.Name, Path: p, Err: err}
		}
		data[p] = v
		if l, is := v.(*ContextLink); is {
			links[p] = l
		}
	}

	deps := make(map[string][]string, len(w.Deps))
	for p, ds := range w.Deps {
		deps[p] = ds
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.id = w.ID
	sc.name = w.Name
	sc.domain = w.Domain
	sc.version = w.Version
	sc.description = w.Description
	sc.subjectPath, sc.subjectValue = "", nil
	if w.Subject != nil {
		sc.subjectPath, sc.subjectValue = w.Subject.Path, w.Subject.Value
	}
	sc.modeling = w.Modeling
	sc.data = data
	sc.links = links
	sc.meta = meta
	sc.deps = deps
	sc.returnPath = w.ReturnPath
	if sc.traces == nil {
		sc.traces = NewTraces()
	}
	return nil
}

// DecodeContext makes a ServiceContext from its JSON form.
func DecodeContext(js []byte, opts ...Option) (*ServiceContext, error) {
	sc := NewServiceContext("", opts...)
	if err := json.Unmarshal(js, sc); err != nil {
		return nil, err
	}
	return sc, nil
}
