// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"velo.dev/velo/pkg/template"
)

func mergeTemplate(t *testing.T, tpl string, context map[string]interface{}) string {
	t.Helper()
	result, err := template.NewTemplate(tpl).Merge(context, nil)
	require.NoError(t, err)
	return result
}

func mergeError(t *testing.T, tpl string, context map[string]interface{}) error {
	t.Helper()
	_, err := template.NewTemplate(tpl).Merge(context, nil)
	require.Error(t, err)
	return err
}

func TestMergePlainText(t *testing.T) {
	assert.Equal(t, "hello world", mergeTemplate(t, "hello world", nil))
}

func TestMergeReference(t *testing.T) {
	result := mergeTemplate(t, "Hello $name", map[string]interface{}{"name": "World"})
	assert.Equal(t, "Hello World", result)
}

func TestMergeUnresolvedReferenceRendersVerbatim(t *testing.T) {
	assert.Equal(t, "Hello $name", mergeTemplate(t, "Hello $name", nil))
	assert.Equal(t, "Hello ${name}", mergeTemplate(t, "Hello ${name}", nil))
}

func TestMergeSilentReference(t *testing.T) {
	assert.Equal(t, "Hello ", mergeTemplate(t, "Hello $!name", nil))
	result := mergeTemplate(t, "Hello $!name", map[string]interface{}{"name": "World"})
	assert.Equal(t, "Hello World", result)
}

func TestMergeAlternateValue(t *testing.T) {
	assert.Equal(t, "Hello anon", mergeTemplate(t, "Hello ${name|'anon'}", nil))

	result := mergeTemplate(t, "Hello ${name|'anon'}", map[string]interface{}{"name": "Bob"})
	assert.Equal(t, "Hello Bob", result)

	// alternate only fires on nil, not on other falsy values
	result = mergeTemplate(t, "${flag|'missing'}", map[string]interface{}{"flag": false})
	assert.Equal(t, "false", result)
}

func TestMergeEscapedReference(t *testing.T) {
	result := mergeTemplate(t, `Say \$who`, map[string]interface{}{"who": "me"})
	assert.Equal(t, "Say $who", result)
}

func TestMergeIsRepeatable(t *testing.T) {
	tpl := template.NewTemplate("#set($n = $n + 1)n is $n")
	context := map[string]interface{}{"n": 1}

	first, err := tpl.Merge(context, nil)
	require.NoError(t, err)
	second, err := tpl.Merge(context, nil)
	require.NoError(t, err)

	// state from one merge never leaks into the next
	assert.Equal(t, "n is 2", first)
	assert.Equal(t, second, first)
}

func TestMergeDoesNotMutateContext(t *testing.T) {
	context := map[string]interface{}{"name": "orig"}

	result := mergeTemplate(t, "#set($name = 'changed')$name", context)

	assert.Equal(t, "changed", result)
	assert.Equal(t, "orig", context["name"])
}

func TestMergeName(t *testing.T) {
	assert.Equal(t, "<string>", template.NewTemplate("x").Name())
	assert.Equal(t, "greet.vm", template.NewTemplateNamed("x", "greet.vm").Name())
}

func TestCompileReportsSyntaxError(t *testing.T) {
	tpl := template.NewTemplate("#if(true)unclosed")

	err := tpl.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#else, #elseif or #end")

	// merge reports the same compilation failure
	_, err2 := tpl.Merge(nil, nil)
	assert.Equal(t, err, err2)
}

func TestMergeConcurrently(t *testing.T) {
	tpl := template.NewTemplate("Hello $name")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user%d", i)
			result, err := tpl.Merge(map[string]interface{}{"name": name}, nil)
			assert.NoError(t, err)
			assert.Equal(t, "Hello "+name, result)
		}(i)
	}
	wg.Wait()
}

func TestMergeToCustomSink(t *testing.T) {
	var buf strings.Builder

	err := template.NewTemplate("a $x b").MergeTo(map[string]interface{}{"x": 1}, &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "a 1 b", buf.String())
}

func TestStopSuppressesOutput(t *testing.T) {
	assert.Equal(t, "before", mergeTemplate(t, "before#stop after", nil))
}

func TestStopKeepsEvaluating(t *testing.T) {
	// side effects after #stop still happen even though output is discarded
	calls := 0
	context := map[string]interface{}{"note": func() string { calls++; return "x" }}

	result := mergeTemplate(t, "visible#stop $note()", context)

	assert.Equal(t, "visible", result)
	assert.Equal(t, 1, calls)
}

func TestStopIgnoredByPlainSink(t *testing.T) {
	var buf strings.Builder

	err := template.NewTemplate("before#stop after").MergeTo(nil, &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "before after", buf.String())
}

type stubLoader struct {
	texts map[string]string
}

func (l stubLoader) LoadText(name string) (string, error) {
	text, found := l.texts[name]
	if !found {
		return "", fmt.Errorf("not found: %s", name)
	}
	return text, nil
}

func (l stubLoader) LoadTemplate(name string) (*template.Template, error) {
	text, err := l.LoadText(name)
	if err != nil {
		return nil, err
	}
	return template.NewTemplateNamed(text, name), nil
}

func TestIncludeWritesRawText(t *testing.T) {
	loader := stubLoader{texts: map[string]string{"raw.vm": "value: $x"}}

	result, err := template.NewTemplate("#include('raw.vm')").Merge(
		map[string]interface{}{"x": 1}, loader)
	require.NoError(t, err)
	assert.Equal(t, "value: $x", result)
}

func TestParseSharesNamespace(t *testing.T) {
	loader := stubLoader{texts: map[string]string{
		"lib.vm": "#macro(hi)hello#end#set($y = 2)",
	}}

	result, err := template.NewTemplate("#parse('lib.vm')#hi() $y").Merge(nil, loader)
	require.NoError(t, err)
	assert.Equal(t, "hello 2", result)
}

func TestParseDynamicName(t *testing.T) {
	loader := stubLoader{texts: map[string]string{"part.vm": "from part"}}

	result, err := template.NewTemplate("#set($which = 'part.vm')#parse($which)").Merge(nil, loader)
	require.NoError(t, err)
	assert.Equal(t, "from part", result)
}

func TestIncludeWithoutLoaderFails(t *testing.T) {
	err := mergeError(t, "#include('x.vm')", nil)
	assert.Contains(t, err.Error(), "no loader available for 'x.vm'")
}

func TestEvaluateDirective(t *testing.T) {
	result := mergeTemplate(t, "#set($src = 'abc $n')#set($n = 5)#evaluate($src)", nil)
	assert.Equal(t, "abc 5", result)
}

func TestEvaluateDirectiveIsCaseSensitive(t *testing.T) {
	// unlike the other directives, #EVALUATE falls through to macro lookup
	err := mergeError(t, "#EVALUATE('x')", nil)
	assert.Contains(t, err.Error(), "no such macro: evaluate")
}

func TestEvaluateDirectiveRejectsNonString(t *testing.T) {
	err := mergeError(t, "#evaluate(42)", nil)
	assert.Contains(t, err.Error(), "#evaluate expects a string, got int")
}
