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

package core

import "strings"

const (
	// CPS is the context path separator.
	CPS = "/"

	// APS is the attribute separator used in associations and
	// metapaths.
	APS = "|"
)

// Join builds a path from the given segments.  Empty segments and
// stray separators are dropped.
func Join(segments ...string) string {
	acc := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, CPS)
		if s == "" {
			continue
		}
		acc = append(acc, s)
	}
	return strings.Join(acc, CPS)
}

// Split returns the non-empty segments of the path.
func Split(path string) []string {
	parts := strings.Split(path, CPS)
	acc := parts[:0]
	for _, p := range parts {
		if p != "" {
			acc = append(acc, p)
		}
	}
	return acc
}

// LastSegment returns the part of the path after the last separator.
func LastSegment(path string) string {
	if i := strings.LastIndex(path, CPS); 0 <= i {
		return path[i+1:]
	}
	return path
}

// Parent returns the path without its last segment.
func Parent(path string) string {
	if i := strings.LastIndex(path, CPS); 0 <= i {
		return path[:i]
	}
	return ""
}

// Within reports whether path is prefix itself or lies below it.
//
// The check respects segment boundaries: "a/b" is within "a", but
// "ab" is not, and neither is "a/bc" within "a/b".
func Within(prefix, path string) bool {
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	n := len(prefix)
	return len(path) == n || path[n:n+1] == CPS
}

// Residual returns the part of path below prefix without a leading
// separator.  The result is only meaningful if Within(prefix, path).
func Residual(prefix, path string) string {
	return strings.TrimPrefix(path[len(prefix):], CPS)
}

// extendedLinkPath is the path under which a link exposes its target
// subtree: the link's own path plus the last segment of its offset.
func extendedLinkPath(linkPath, offset string) string {
	if offset == "" {
		return linkPath
	}
	return Join(linkPath, LastSegment(offset))
}

// linkedKey maps a path within a link's extended path to the path in
// the linked context.
func linkedKey(extended, offset, path string) string {
	return Join(offset, Residual(extended, path))
}
