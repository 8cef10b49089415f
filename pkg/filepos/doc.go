// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package filepos provides the concept of Position: a source name (usually a
file), a line number and a column within that source.

File positions are crucial when reporting errors to the user. It is often
even more useful to share the actual source line as well. For this reason
Position also contains a cached copy of the source line at the Position.

Template text is addressed by byte offset while parsing; use
NewPositionFromOffset to translate an offset into a line/column Position.
*/
package filepos
