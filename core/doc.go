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

// Package core provides service contexts: path-keyed, attribute
// annotated data stores that carry the data of a unit of work.
//
// The primary type is ServiceContext.  Values live at slash-separated
// paths ("arg/x1").  Paths can be marked with attribute values
// ("dir|in||"), and composite attributes such as "dir" decompose into
// ordered tuples of simple ones (direction, index, type).
// MarkedPaths finds paths by their marks.
//
// A ContextLink stored at a path makes another context's subtree
// appear under that path without copying it.  Reads and writes below
// the link go to the linked context.
//
// A value that implements Evaluation is computed when read if the
// context is in modeling mode or the value is Reactive.  Evaluations
// get the context as their scope, and declared dependencies are
// evaluated first.  A ScriptEvaluation is an Evaluation given as
// source code for an Interpreter, which survives serialization.
//
// PositionalContext, ArrayContext, ListContext, and MapContext layer
// other indexing disciplines on top of ServiceContext.
package core
