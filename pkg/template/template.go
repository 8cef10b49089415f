// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import "sync"

// Template is a compiled-on-demand template. Compilation happens on the
// first merge and its result (AST or SyntaxError) is published exactly once,
// so a Template can be merged concurrently from multiple goroutines.
type Template struct {
	src *source

	compileOnce sync.Once
	body        *templateBodyNode
	compileErr  error
}

// NewTemplate builds a Template from "content". The template name defaults
// to "<string>".
func NewTemplate(content string) *Template {
	return NewTemplateNamed(content, "<string>")
}

// NewTemplateNamed builds a Template whose name (usually a file name) is
// used in error messages.
func NewTemplateNamed(content, name string) *Template {
	return &Template{src: &source{name: name, text: content}}
}

func (t *Template) Name() string {
	return t.src.name
}

// Compile forces compilation, returning any SyntaxError without merging.
func (t *Template) Compile() error {
	return t.ensureCompiled()
}

// Merge evaluates the template against "context" and returns the output.
// "loader" resolves #include/#parse names; pass nil to forbid both.
func (t *Template) Merge(context map[string]interface{}, loader Loader) (string, error) {
	sink := NewStoppableSink()
	if err := t.MergeTo(context, sink, loader); err != nil {
		return "", err
	}
	return sink.String(), nil
}

// MergeTo evaluates the template against "context", writing output to
// "sink". The context map is read, never written.
func (t *Template) MergeTo(context map[string]interface{}, sink Sink, loader Loader) error {
	if loader == nil {
		loader = NullLoader{}
	}
	if err := t.ensureCompiled(); err != nil {
		return err
	}
	return t.body.evaluate(sink, NewNamespace(newRootNamespace(context)), loader)
}

// evaluateInto runs the template against an existing namespace chain; this
// is how #parse and #evaluate share scope with the including template.
func (t *Template) evaluateInto(sink Sink, ns *Namespace, loader Loader) error {
	if err := t.ensureCompiled(); err != nil {
		return err
	}
	return t.body.evaluate(sink, ns, loader)
}

func (t *Template) ensureCompiled() error {
	t.compileOnce.Do(func() {
		t.body, t.compileErr = parseTemplateBody(t.src)
	})
	return t.compileErr
}
