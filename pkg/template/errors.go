// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"errors"
	"fmt"
	"strings"

	"velo.dev/velo/pkg/filepos"
)

// SyntaxError reports where compilation of a template got stuck: the
// position up to which the text was understood, what was expected next and
// the grammar element that required it.
type SyntaxError struct {
	Expected string
	Element  string
	Position *filepos.Position

	src    *source
	offset int
}

func newSyntaxError(src *source, offset int, expected, element string) *SyntaxError {
	return &SyntaxError{
		Expected: expected,
		Element:  element,
		Position: filepos.NewPositionFromOffset(src.text, offset, src.name),
		src:      src,
		offset:   offset,
	}
}

func (e *SyntaxError) Error() string {
	got := e.src.text[e.offset:]
	if len(got) > 40 {
		got = got[:36] + " ..."
	}
	return fmt.Sprintf("line %d, column %d: expected %s in %s, got: %s ...",
		e.Position.LineNum(), e.Position.ColNum(), e.Expected, e.Element, got)
}

// PositionStrings returns the source line containing the error plus a caret
// line pointing at the offending column.
func (e *SyntaxError) PositionStrings() []string {
	return []string{e.Position.GetLine(), strings.Repeat(" ", e.Position.ColNum()-1) + "^"}
}

// ExecutionError reports a failure while evaluating a compiled template. It
// carries the template name, the byte span of the failing expression and the
// expression text itself.
type ExecutionError struct {
	TemplateName string
	Start        int
	End          int
	SourceText   string
	Cause        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("Error in template '%s' at position %d-%d in expression: %s: %s",
		e.TemplateName, e.Start, e.End, e.SourceText, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// wrapExecErr annotates an evaluation failure with this span. Errors already
// carrying a span pass through so the innermost failing expression wins.
func (s span) wrapExecErr(err error) error {
	if err == nil {
		return nil
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	return &ExecutionError{
		TemplateName: s.src.name,
		Start:        s.start,
		End:          s.end,
		SourceText:   s.text(),
		Cause:        err,
	}
}
