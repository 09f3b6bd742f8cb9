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

// Package testutil has small helpers for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes, parses that data as JSON.
// A string that isn't JSON comes back as is.  When given anything
// else, just returns what's given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			return vv
		}
		return v
	default:
		return x
	}
}

// Flatten turns nested maps into path/value pairs joined by "/".
// Useful for building contexts from JSON literals.
func Flatten(x interface{}) map[string]interface{} {
	acc := make(map[string]interface{})
	var walk func(prefix string, x interface{})
	walk = func(prefix string, x interface{}) {
		m, is := x.(map[string]interface{})
		if !is || len(m) == 0 {
			if prefix != "" {
				acc[prefix] = x
			}
			return
		}
		for k, v := range m {
			p := k
			if prefix != "" {
				p = prefix + "/" + k
			}
			walk(p, v)
		}
	}
	walk("", Dwimjs(x))
	return acc
}

// SortedKeys returns the keys of the map in order.
func SortedKeys(m map[string]interface{}) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

// ObservedLogger returns a debug-level logger that records its
// entries.
func ObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}
