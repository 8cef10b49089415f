// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

// Package cmd assembles the velo command line interface.
package cmd

import (
	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"
	"velo.dev/velo/pkg/version"
)

type VeloOptions struct{}

func NewDefaultVeloOptions() *VeloOptions {
	return &VeloOptions{}
}

func NewDefaultVeloCmd() *cobra.Command {
	return NewVeloCmd(NewDefaultVeloOptions())
}

func NewVeloCmd(o *VeloOptions) *cobra.Command {
	cmd := NewRenderCmd(NewRenderOptions())

	cmd.Use = "velo"
	cmd.Aliases = nil
	cmd.Version = version.Version
	cmd.Short = "velo renders Velocity-style templates"
	cmd.Long = `velo renders Velocity-style templates against context data
supplied inline or from YAML/TOML files.`

	// Affects children as well
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cmd.DisableAutoGenTag = true

	cmd.AddCommand(NewVersionCmd(NewVersionOptions()))

	// Reconfigure Commands
	cobrautil.VisitCommands(cmd, cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.DisallowExtraArgs, cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd))

	return cmd
}
