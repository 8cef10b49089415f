// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

// Package version holds the release version of this module. The value is
// overridden at build time via ldflags.
package version

// Version is the current release version.
var Version = "0.1.0"
