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

// Package service exposes context management and exertion over
// WebSockets.
package service

import (
	"encoding/json"
)

// Op is a service operation.
//
// Only one of the operation fields should have a value.
type Op struct {
	// ID is echoed in the Response.
	ID string `json:"id,omitempty"`

	GetContext    *NameOp   `json:"getContext,omitempty"`
	SaveContext   *SaveOp   `json:"saveContext,omitempty"`
	DeleteContext *NameOp   `json:"deleteContext,omitempty"`
	ContextNames  *struct{} `json:"contextNames,omitempty"`
	Exert         *ExertOp  `json:"exert,omitempty"`
}

type NameOp struct {
	Name string `json:"name"`
}

type SaveOp struct {
	Name    string          `json:"name"`
	Context json.RawMessage `json:"context"`
}

// ExertOp carries a task to exert.
type ExertOp struct {
	Task json.RawMessage `json:"task"`
}

// Response answers an Op.
type Response struct {
	ID      string          `json:"id,omitempty"`
	Context json.RawMessage `json:"context,omitempty"`
	Names   []string        `json:"names,omitempty"`
	Task    json.RawMessage `json:"task,omitempty"`

	// Err will hold a string representation of an error (if any)
	// that results from processing the operation.
	Err string `json:"err,omitempty"`

	// NotFound is true when Err is due to a missing context.
	NotFound bool `json:"notFound,omitempty"`
}
