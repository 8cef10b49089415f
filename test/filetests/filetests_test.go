// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package filetests

import "testing"

func TestTemplates(t *testing.T) {
	FileTests{PathToTests: "filetests"}.Run(t)
}
