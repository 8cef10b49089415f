// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import "fmt"

// Loader resolves template names used by #include and #parse. #include
// fetches raw text; #parse fetches a compiled template.
type Loader interface {
	LoadText(name string) (string, error)
	LoadTemplate(name string) (*Template, error)
}

// NullLoader is used when no loader is supplied; any #include or #parse
// fails with an error naming the missing template.
type NullLoader struct{}

func (NullLoader) LoadText(name string) (string, error) {
	return "", fmt.Errorf("no loader available for '%s'", name)
}

func (NullLoader) LoadTemplate(name string) (*Template, error) {
	return nil, fmt.Errorf("no loader available for '%s'", name)
}
