// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package orderedmap provides a map implementation where the order of keys is
maintained (unlike the native Go map).

Dictionary literals in templates evaluate to this flavor of map so that
iteration and rendering follow the order keys were written in.
*/
package orderedmap
