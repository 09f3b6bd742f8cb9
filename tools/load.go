/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package tools has utilities for loading, rendering, and checking
// contexts.
package tools

import (
	"fmt"

	"github.com/jsccast/yaml"

	"github.com/mwsobol/SORCER-sub002/core"
)

// ContextDoc is the YAML (or JSON) document form of a context.
//
// Unlike the codec's form, entries are listed in order with their
// direction, marks, and dependencies next to them.
type ContextDoc struct {
	Name        string         `json:"name" yaml:"name"`
	Domain      string         `json:"domain,omitempty" yaml:"domain,omitempty"`
	Version     string         `json:"version,omitempty" yaml:"version,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Modeling    bool           `json:"modeling,omitempty" yaml:"modeling,omitempty"`
	Subject     *SubjectDoc    `json:"subject,omitempty" yaml:"subject,omitempty"`
	Attributes  []AttributeDoc `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Entries     []EntryDoc     `json:"entries" yaml:"entries"`
	ReturnPath  *ReturnDoc     `json:"returnPath,omitempty" yaml:"returnPath,omitempty"`
}

type SubjectDoc struct {
	Path  string      `json:"path" yaml:"path"`
	Value interface{} `json:"value,omitempty" yaml:"value,omitempty"`
}

// AttributeDoc declares an attribute.  With Components, it's
// composite.
type AttributeDoc struct {
	Name       string   `json:"name" yaml:"name"`
	Components []string `json:"components,omitempty" yaml:"components,omitempty"`
}

// EntryDoc is one path.  At most one of Value, Eval, and Link should
// be given.
type EntryDoc struct {
	Path      string      `json:"path" yaml:"path"`
	Value     interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	Eval      *EvalDoc    `json:"eval,omitempty" yaml:"eval,omitempty"`
	Link      *LinkDoc    `json:"link,omitempty" yaml:"link,omitempty"`
	Dir       string      `json:"dir,omitempty" yaml:"dir,omitempty"`
	Marks     []string    `json:"marks,omitempty" yaml:"marks,omitempty"`
	DependsOn []string    `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

type EvalDoc struct {
	Interpreter string      `json:"interpreter" yaml:"interpreter"`
	Source      interface{} `json:"source" yaml:"source"`
}

// LinkDoc names the target context, which is found through the
// loaded context's Accessor.
type LinkDoc struct {
	Context string `json:"context" yaml:"context"`
	Offset  string `json:"offset,omitempty" yaml:"offset,omitempty"`
}

type ReturnDoc struct {
	Path      string   `json:"path" yaml:"path"`
	Direction string   `json:"direction,omitempty" yaml:"direction,omitempty"`
	OutPaths  []string `json:"outPaths,omitempty" yaml:"outPaths,omitempty"`
}

// LoadContext parses a YAML (or JSON) ContextDoc and builds the
// context.  The options apply to the new context.
func LoadContext(bs []byte, opts ...core.Option) (*core.ServiceContext, error) {
	var doc ContextDoc
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		return nil, err
	}
	return doc.Context(opts...)
}

// LoadContextFile is LoadContext on the file after
// ReadFileWithInlines.
func LoadContextFile(filename string, opts ...core.Option) (*core.ServiceContext, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	return LoadContext(bs, opts...)
}

// Context builds the context the document describes.
func (doc *ContextDoc) Context(opts ...core.Option) (*core.ServiceContext, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("context document without a name")
	}
	c := core.NewServiceContext(doc.Name, opts...)
	c.SetDomain(doc.Domain)
	c.SetVersion(doc.Version)
	c.SetDescription(doc.Description)
	c.SetModeling(doc.Modeling)

	if doc.Subject != nil {
		v, err := core.Canonicalize(doc.Subject.Value)
		if err != nil {
			return nil, err
		}
		c.SetSubject(doc.Subject.Path, v)
	}

	for _, a := range doc.Attributes {
		var err error
		if len(a.Components) == 0 {
			err = c.SetAttribute(a.Name)
		} else {
			desc := a.Name
			for _, comp := range a.Components {
				desc += core.APS + comp
			}
			err = c.SetCompositeAttribute(desc)
		}
		if err != nil {
			return nil, err
		}
	}

	for i, e := range doc.Entries {
		if err := e.apply(c); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	if rp := doc.ReturnPath; rp != nil {
		err := c.SetReturnPath(core.ReturnPath{
			Path:      rp.Path,
			Direction: core.Direction(rp.Direction),
			OutPaths:  rp.OutPaths,
		})
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (e *EntryDoc) apply(c *core.ServiceContext) error {
	given := 0
	if e.Value != nil {
		given++
	}
	if e.Eval != nil {
		given++
	}
	if e.Link != nil {
		given++
	}
	if 1 < given {
		return fmt.Errorf("%s: more than one of value, eval, and link", e.Path)
	}

	var v interface{}
	switch {
	case e.Eval != nil:
		src, err := core.Canonicalize(e.Eval.Source)
		if err != nil {
			return err
		}
		v = core.NewScriptEvaluation(e.Eval.Interpreter, src)
	case e.Link != nil:
		v = &core.ContextLink{
			Name:   e.Link.Context,
			Offset: e.Link.Offset,
		}
	default:
		var err error
		if v, err = core.Canonicalize(e.Value); err != nil {
			return err
		}
	}
	if err := c.PutValue(e.Path, v); err != nil {
		return err
	}

	if e.Dir != "" {
		if err := c.SetDirection(e.Path, core.Direction(e.Dir)); err != nil {
			return err
		}
	}
	for _, m := range e.Marks {
		if err := c.Mark(e.Path, m); err != nil {
			return err
		}
	}
	if 0 < len(e.DependsOn) {
		c.SetDependency(e.Path, e.DependsOn...)
	}
	return nil
}
