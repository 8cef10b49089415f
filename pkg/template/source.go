// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import "regexp"

// source is one unit of template text being parsed. Nodes refer back to it
// by byte offset so error reporting can recover lines and columns.
type source struct {
	name string
	text string
}

// span is a half-open byte range [start, end) within a source.
type span struct {
	src   *source
	start int
	end   int
}

func (s span) text() string {
	return s.src.text[s.start:s.end]
}

func (s span) following() string {
	return s.src.text[s.end:]
}

// matchAt matches an \A-anchored pattern against the text at "pos". It
// returns the submatches (unmatched groups as "") and the offset just past
// the match.
func matchAt(re *regexp.Regexp, src *source, pos int) ([]string, int, bool) {
	loc := re.FindStringSubmatchIndex(src.text[pos:])
	if loc == nil {
		return nil, pos, false
	}
	groups := make([]string, 0, len(loc)/2-1)
	for i := 2; i < len(loc); i += 2 {
		if loc[i] < 0 {
			groups = append(groups, "")
		} else {
			groups = append(groups, src.text[pos+loc[i]:pos+loc[i+1]])
		}
	}
	return groups, pos + loc[1], true
}

// cursor tracks parse progress for a single grammar element, mirroring how
// each element owns its start offset, current end and a display name used in
// syntax errors.
type cursor struct {
	src   *source
	start int
	end   int
	name  string
}

func newCursor(src *source, pos int, name string) *cursor {
	return &cursor{src: src, start: pos, end: pos, name: name}
}

func (c *cursor) span() span {
	return span{src: c.src, start: c.start, end: c.end}
}

// identityMatch advances on match, otherwise reports a non-match.
func (c *cursor) identityMatch(re *regexp.Regexp) ([]string, bool) {
	groups, end, ok := matchAt(re, c.src, c.end)
	if !ok {
		return nil, false
	}
	c.end = end
	return groups, true
}

func (c *cursor) optionalMatch(re *regexp.Regexp) bool {
	_, ok := c.identityMatch(re)
	return ok
}

// requireMatch advances on match, otherwise raises a syntax error naming
// what was expected.
func (c *cursor) requireMatch(re *regexp.Regexp, expected string) ([]string, error) {
	groups, ok := c.identityMatch(re)
	if !ok {
		return nil, c.syntaxError(expected)
	}
	return groups, nil
}

func (c *cursor) syntaxError(expected string) *SyntaxError {
	return newSyntaxError(c.src, c.end, expected, c.name)
}
