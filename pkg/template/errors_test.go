// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"velo.dev/velo/pkg/template"
)

func TestSyntaxErrorReportsLineAndColumn(t *testing.T) {
	err := template.NewTemplate("Hello ${name.").Compile()
	require.Error(t, err)

	assert.Equal(t,
		"line 1, column 13: expected } in formal reference, got: . ...",
		err.Error())

	var syntaxErr *template.SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, "}", syntaxErr.Expected)
	assert.Equal(t, "formal reference", syntaxErr.Element)
	assert.Equal(t, 1, syntaxErr.Position.LineNum())
	assert.Equal(t, 13, syntaxErr.Position.ColNum())
}

func TestSyntaxErrorPositionStrings(t *testing.T) {
	err := template.NewTemplate("Hello ${name.").Compile()
	require.Error(t, err)

	var syntaxErr *template.SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, []string{
		"Hello ${name.",
		"            ^",
	}, syntaxErr.PositionStrings())
}

func TestSyntaxErrorOnLaterLine(t *testing.T) {
	err := template.NewTemplate("line one\n#if(true)x").Compile()
	require.Error(t, err)

	var syntaxErr *template.SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, 2, syntaxErr.Position.LineNum())
	assert.Contains(t, err.Error(), "#else, #elseif or #end")
}

func TestSyntaxErrorOnStrayEnd(t *testing.T) {
	err := template.NewTemplate("a#end").Compile()
	require.Error(t, err)

	assert.Equal(t,
		"line 1, column 2: expected block element in template body, got: #end ...",
		err.Error())
}

func TestSyntaxErrorTruncatesLongInput(t *testing.T) {
	tpl := "#foreach($x on ['a', 'b', 'c', 'd', 'e', 'f', 'g'])$x#end"
	err := template.NewTemplate(tpl).Compile()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "expected in in foreach directive")
	assert.Contains(t, err.Error(), " ...")
}

func TestExecutionErrorCarriesExpressionSpan(t *testing.T) {
	_, err := template.NewTemplate("#set($a = 'x' + 1)").Merge(nil, nil)
	require.Error(t, err)

	assert.Equal(t,
		"Error in template '<string>' at position 4-18 in expression: ($a = 'x' + 1): "+
			"unsupported operand types for +: string and int",
		err.Error())

	var execErr *template.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "<string>", execErr.TemplateName)
	assert.Equal(t, 4, execErr.Start)
	assert.Equal(t, 18, execErr.End)
	assert.Equal(t, "($a = 'x' + 1)", execErr.SourceText)
	assert.EqualError(t, execErr.Cause, "unsupported operand types for +: string and int")
}

func TestExecutionErrorNamesTemplate(t *testing.T) {
	_, err := template.NewTemplateNamed("#set($a = 1 / 0)", "bad.vm").Merge(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error in template 'bad.vm'")
}

func TestExecutionErrorReportsInnermostSpan(t *testing.T) {
	// the failing inner directive wins over the enclosing one's span
	_, err := template.NewTemplate("#if(true)#set($a = 1 / 0)#end").Merge(nil, nil)
	require.Error(t, err)

	var execErr *template.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 13, execErr.Start)
	assert.Equal(t, 25, execErr.End)
	assert.Equal(t, "($a = 1 / 0)", execErr.SourceText)
}

func TestExecutionErrorUnwraps(t *testing.T) {
	_, err := template.NewTemplate("#set($a = 1 / 0)").Merge(nil, nil)
	require.Error(t, err)
	assert.EqualError(t, errors.Unwrap(err), "integer division or modulo by zero")
}
