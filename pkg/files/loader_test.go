// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package files_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"velo.dev/velo/pkg/files"
)

func writeTemplateFile(t *testing.T, dir, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func TestDirLoaderLoadText(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "raw.vm", "plain $x", time.Now())

	text, err := files.NewDirLoader(dir).LoadText("raw.vm")
	require.NoError(t, err)
	assert.Equal(t, "plain $x", text)
}

func TestDirLoaderLoadTextMissing(t *testing.T) {
	_, err := files.NewDirLoader(t.TempDir()).LoadText("nope.vm")
	assert.Error(t, err)
}

func TestDirLoaderLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "greet.vm", "Hello $name", time.Now())

	tpl, err := files.NewDirLoader(dir).LoadTemplate("greet.vm")
	require.NoError(t, err)
	assert.Equal(t, "greet.vm", tpl.Name())

	result, err := tpl.Merge(map[string]interface{}{"name": "Bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob", result)
}

func TestDirLoaderCachesWhileUnchanged(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Now().Add(-time.Hour)
	writeTemplateFile(t, dir, "a.vm", "one", t0)
	loader := files.NewDirLoader(dir)

	first, err := loader.LoadTemplate("a.vm")
	require.NoError(t, err)

	// same mtime, so the rewritten content is not picked up
	writeTemplateFile(t, dir, "a.vm", "two", t0)
	second, err := loader.LoadTemplate("a.vm")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestDirLoaderReloadsOnNewerModTime(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Now().Add(-time.Hour)
	writeTemplateFile(t, dir, "a.vm", "one", t0)
	loader := files.NewDirLoader(dir)

	first, err := loader.LoadTemplate("a.vm")
	require.NoError(t, err)

	writeTemplateFile(t, dir, "a.vm", "two", t0.Add(time.Minute))
	second, err := loader.LoadTemplate("a.vm")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	result, err := second.Merge(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "two", result)
}

func TestDirLoaderReportsCompileError(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "bad.vm", "#if(true)x", time.Now())

	_, err := files.NewDirLoader(dir).LoadTemplate("bad.vm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#else, #elseif or #end")
}

func TestLoaderCacheReusesLoaders(t *testing.T) {
	cache := files.NewLoaderCache(4)

	a := cache.For("/tmp/a")
	b := cache.For("/tmp/b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, cache.For("/tmp/a"))
}

func TestLoaderCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := files.NewLoaderCache(2)

	a := cache.For("/tmp/a")
	b := cache.For("/tmp/b")
	cache.For("/tmp/a") // touch a so b becomes the eviction candidate
	cache.For("/tmp/c") // evicts b

	assert.Same(t, a, cache.For("/tmp/a"))
	assert.NotSame(t, b, cache.For("/tmp/b"))
}

func TestLoaderCacheRenderFile(t *testing.T) {
	dir := t.TempDir()
	writeTemplateFile(t, dir, "page.vm", "#include('part.vm') and $x", time.Now())
	writeTemplateFile(t, dir, "part.vm", "included", time.Now())

	result, err := files.NewLoaderCache(8).RenderFile(
		filepath.Join(dir, "page.vm"), map[string]interface{}{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "included and 1", result)
}
