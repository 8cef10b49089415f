// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"velo.dev/velo/pkg/template"
)

func TestNamespaceGetWalksChain(t *testing.T) {
	parent := template.NewNamespace(nil)
	parent.SetLocal("a", 1)
	child := template.NewNamespace(parent)

	val, found := child.Get("a")
	require.True(t, found)
	assert.Equal(t, 1, val)

	_, found = child.Get("b")
	assert.False(t, found)
}

func TestNamespaceSetLocalShadows(t *testing.T) {
	parent := template.NewNamespace(nil)
	parent.SetLocal("a", 1)
	child := template.NewNamespace(parent)
	child.SetLocal("a", 2)

	val, _ := child.Get("a")
	assert.Equal(t, 2, val)

	val, _ = parent.Get("a")
	assert.Equal(t, 1, val)
}

func TestNamespaceSetInheritedUpdatesDefiningScope(t *testing.T) {
	parent := template.NewNamespace(nil)
	parent.SetLocal("a", 1)
	child := template.NewNamespace(parent)

	child.SetInherited("a", 2)

	val, _ := parent.Get("a")
	assert.Equal(t, 2, val)
	_, foundLocally := template.NewNamespace(nil).Get("a")
	assert.False(t, foundLocally)
}

func TestNamespaceSetInheritedFallsBackToInnermost(t *testing.T) {
	parent := template.NewNamespace(nil)
	child := template.NewNamespace(parent)

	child.SetInherited("fresh", 3)

	val, found := child.Get("fresh")
	require.True(t, found)
	assert.Equal(t, 3, val)

	_, found = parent.Get("fresh")
	assert.False(t, found)
}

func TestNamespaceSetInheritedPrefersOutermostDefinition(t *testing.T) {
	outer := template.NewNamespace(nil)
	outer.SetLocal("a", "outer")
	middle := template.NewNamespace(outer)
	middle.SetLocal("a", "middle")
	inner := template.NewNamespace(middle)

	inner.SetInherited("a", "new")

	// the innermost defining scope receives the write
	val, _ := middle.Get("a")
	assert.Equal(t, "new", val)
	val, _ = outer.Get("a")
	assert.Equal(t, "outer", val)
}
