// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package template implements a Velocity-style template engine: templates are
compiled into an AST on first merge and then evaluated against a caller
supplied context.

A template is text interspersed with references ($name, ${name}, $!name,
${name|alternate}) and directives (#if/#elseif/#else, #foreach, #set, #macro,
#define, #include, #parse, #evaluate, #stop). Compilation happens once per
Template value and is safe to share across goroutines; each merge evaluates
against its own namespace chain so the caller's context map is never mutated.

Errors carry positions: a SyntaxError points at the offset where parsing got
stuck, an ExecutionError names the template and the span of the expression
that failed.
*/
package template
