// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package filepos_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"velo.dev/velo/pkg/filepos"
)

func TestNewPositionFromOffset(t *testing.T) {
	text := "first line\nsecond line\nthird"

	pos := filepos.NewPositionFromOffset(text, 0, "tpl.vm")
	assert.Equal(t, 1, pos.LineNum())
	assert.Equal(t, 1, pos.ColNum())
	assert.Equal(t, "first line", pos.GetLine())
	assert.Equal(t, "tpl.vm:1", pos.AsCompactString())

	pos = filepos.NewPositionFromOffset(text, 11, "tpl.vm")
	assert.Equal(t, 2, pos.LineNum())
	assert.Equal(t, 1, pos.ColNum())
	assert.Equal(t, "second line", pos.GetLine())

	pos = filepos.NewPositionFromOffset(text, 18, "tpl.vm")
	assert.Equal(t, 2, pos.LineNum())
	assert.Equal(t, 8, pos.ColNum())
	assert.Equal(t, "line 2, column 8", pos.AsString())

	pos = filepos.NewPositionFromOffset(text, len(text), "tpl.vm")
	assert.Equal(t, 3, pos.LineNum())
	assert.Equal(t, 6, pos.ColNum())
	assert.Equal(t, "third", pos.GetLine())
}

func TestNewPositionFromOffsetClampsRange(t *testing.T) {
	pos := filepos.NewPositionFromOffset("ab", 99, "")
	assert.Equal(t, 1, pos.LineNum())
	assert.Equal(t, 3, pos.ColNum())
}

func TestUnknownPosition(t *testing.T) {
	pos := filepos.NewUnknownPosition()
	require.False(t, pos.IsKnown())
	assert.Equal(t, "?", pos.AsCompactString())
	assert.Equal(t, "?", pos.AsIntString())
}

func TestDeepCopyKeepsColumn(t *testing.T) {
	pos := filepos.NewPositionFromOffset("hello", 3, "f")
	copied := pos.DeepCopy()
	require.True(t, copied.HasColNum())
	assert.Equal(t, pos.ColNum(), copied.ColNum())
	assert.Equal(t, pos.LineNum(), copied.LineNum())
}
