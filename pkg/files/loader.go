// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package files

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"velo.dev/velo/pkg/template"
)

// DirLoader resolves template names against a base directory. Compiled
// templates are cached and invalidated when the file's modification time
// moves forward.
type DirLoader struct {
	basedir string

	mu    sync.Mutex
	known map[string]cachedTemplate
}

type cachedTemplate struct {
	tpl     *template.Template
	modTime time.Time
}

var _ template.Loader = &DirLoader{}

func NewDirLoader(basedir string) *DirLoader {
	return &DirLoader{basedir: basedir, known: map[string]cachedTemplate{}}
}

// Path returns the filesystem path a template name resolves to.
func (l *DirLoader) Path(name string) string {
	return filepath.Join(l.basedir, name)
}

// LoadText reads raw template text; #include uses this.
func (l *DirLoader) LoadText(name string) (string, error) {
	bs, err := os.ReadFile(l.Path(name))
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// LoadTemplate returns a compiled template for #parse, reusing the cached
// compilation while the file is unchanged on disk.
func (l *DirLoader) LoadTemplate(name string) (*template.Template, error) {
	fi, err := os.Stat(l.Path(name))
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, found := l.known[name]; found && !fi.ModTime().After(cached.modTime) {
		return cached.tpl, nil
	}

	text, err := l.LoadText(name)
	if err != nil {
		return nil, err
	}
	tpl := template.NewTemplateNamed(text, name)
	if err := tpl.Compile(); err != nil {
		return nil, err
	}
	l.known[name] = cachedTemplate{tpl: tpl, modTime: fi.ModTime()}
	return tpl, nil
}
