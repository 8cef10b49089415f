// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	uierrs "github.com/cppforlife/go-cli-ui/errors"
	"velo.dev/velo/pkg/cmd"
)

func main() {
	command := cmd.NewDefaultVeloCmd()

	err := command.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "velo: Error: %s\n", uierrs.NewMultiLineError(err))
		os.Exit(1)
	}
}
