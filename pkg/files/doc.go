// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package files provides filesystem-backed template loading: DirLoader serves
#include/#parse names relative to a base directory while caching compiled
templates by modification time, and LoaderCache keeps an LRU of loaders
keyed by base directory for callers that render templates from many places.
*/
package files
