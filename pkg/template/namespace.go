// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import "strings"

// Namespace is a chain of variable scopes. Lookups walk from the innermost
// scope outward; the root scope additionally exposes the caller's context
// map read-only. Writes never touch the context map itself: a write that
// resolves to a context key lands in the root scope's own overlay, so a
// merge can shadow context values without mutating caller state.
//
// Macros live in a separate key space on the root scope; their names are
// case-insensitive and can never collide with variables.
type Namespace struct {
	vars    map[string]interface{}
	parent  *Namespace
	context map[string]interface{}
	macros  map[string]*functionDefinitionNode
}

// NewNamespace returns a fresh scope whose lookups fall back to "parent".
func NewNamespace(parent *Namespace) *Namespace {
	return &Namespace{vars: map[string]interface{}{}, parent: parent}
}

func newRootNamespace(context map[string]interface{}) *Namespace {
	return &Namespace{
		vars:    map[string]interface{}{},
		context: context,
		macros:  map[string]*functionDefinitionNode{},
	}
}

// Get walks the scope chain and reports whether "key" is defined anywhere.
func (ns *Namespace) Get(key string) (interface{}, bool) {
	for cur := ns; cur != nil; cur = cur.parent {
		if val, found := cur.vars[key]; found {
			return val, true
		}
		if cur.context != nil {
			if val, found := cur.context[key]; found {
				return val, true
			}
		}
	}
	return nil, false
}

// SetLocal defines "key" in this scope regardless of outer definitions.
func (ns *Namespace) SetLocal(key string, value interface{}) {
	ns.vars[key] = value
}

// SetInherited writes to the nearest enclosing scope already defining "key";
// if no scope defines it, the innermost scope gains the definition. Context
// keys count as defined at the root, where the write lands in the root's
// overlay.
func (ns *Namespace) SetInherited(key string, value interface{}) {
	for cur := ns; cur != nil; cur = cur.parent {
		if cur.defines(key) {
			cur.vars[key] = value
			return
		}
	}
	ns.vars[key] = value
}

func (ns *Namespace) defines(key string) bool {
	if _, found := ns.vars[key]; found {
		return true
	}
	if ns.context != nil {
		_, found := ns.context[key]
		return found
	}
	return false
}

func (ns *Namespace) root() *Namespace {
	cur := ns
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

func (ns *Namespace) setMacro(name string, def *functionDefinitionNode) {
	ns.root().macros[strings.ToLower(name)] = def
}

func (ns *Namespace) macro(name string) (*functionDefinitionNode, bool) {
	def, found := ns.root().macros[strings.ToLower(name)]
	return def, found
}
