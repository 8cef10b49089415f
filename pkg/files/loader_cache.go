// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package files

import (
	"container/list"
	"path/filepath"
	"sync"
)

// LoaderCache keeps an LRU of DirLoaders keyed by base directory, so
// rendering many templates spread over a few directories reuses their
// compiled-template caches.
type LoaderCache struct {
	maxSize int

	mu      sync.Mutex
	order   *list.List
	loaders map[string]*list.Element
}

type loaderEntry struct {
	basedir string
	loader  *DirLoader
}

func NewLoaderCache(maxSize int) *LoaderCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LoaderCache{
		maxSize: maxSize,
		order:   list.New(),
		loaders: map[string]*list.Element{},
	}
}

// For returns the loader for "basedir", creating it on first use and
// evicting the least recently used loader beyond capacity.
func (c *LoaderCache) For(basedir string) *DirLoader {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.loaders[basedir]; found {
		c.order.MoveToFront(elem)
		return elem.Value.(*loaderEntry).loader
	}

	entry := &loaderEntry{basedir: basedir, loader: NewDirLoader(basedir)}
	c.loaders[basedir] = c.order.PushFront(entry)

	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.loaders, oldest.Value.(*loaderEntry).basedir)
	}
	return entry.loader
}

// RenderFile loads, compiles and merges the template at "path" against
// "context", with #include/#parse names resolved next to it.
func (c *LoaderCache) RenderFile(path string, context map[string]interface{}) (string, error) {
	loader := c.For(filepath.Dir(path))
	tpl, err := loader.LoadTemplate(filepath.Base(path))
	if err != nil {
		return "", err
	}
	return tpl.Merge(context, loader)
}
