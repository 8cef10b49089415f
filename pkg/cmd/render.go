// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"velo.dev/velo/pkg/files"
	"velo.dev/velo/pkg/template"
)

type RenderOptions struct {
	TemplateFile string
	DataFiles    []string
	DataValues   []string
	OutputFile   string
}

func NewRenderOptions() *RenderOptions {
	return &RenderOptions{}
}

func NewRenderCmd(o *RenderOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a template against context data",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.TemplateFile, "file", "f", "-",
		"Template file to render ('-' for stdin)")
	cmd.Flags().StringArrayVar(&o.DataFiles, "data-file", nil,
		"Context data file (YAML, JSON or TOML; repeatable, later files win)")
	cmd.Flags().StringArrayVar(&o.DataValues, "data", nil,
		"Context value as key=value (repeatable, wins over data files)")
	cmd.Flags().StringVarP(&o.OutputFile, "output", "o", "",
		"Write output to file instead of stdout")
	return cmd
}

func (o *RenderOptions) Run() error {
	context, err := o.buildContext()
	if err != nil {
		return err
	}

	tpl, loader, err := o.loadTemplate()
	if err != nil {
		return err
	}

	output, err := tpl.Merge(context, loader)
	if err != nil {
		return err
	}

	if o.OutputFile != "" {
		return os.WriteFile(o.OutputFile, []byte(output), 0600)
	}
	_, err = fmt.Print(output)
	return err
}

func (o *RenderOptions) loadTemplate() (*template.Template, template.Loader, error) {
	if o.TemplateFile == "-" {
		bs, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("reading template from stdin: %w", err)
		}
		return template.NewTemplateNamed(string(bs), "stdin"), nil, nil
	}

	bs, err := os.ReadFile(o.TemplateFile)
	if err != nil {
		return nil, nil, err
	}
	// #include/#parse resolve next to the template
	loader := files.NewDirLoader(filepath.Dir(o.TemplateFile))
	return template.NewTemplateNamed(string(bs), filepath.Base(o.TemplateFile)), loader, nil
}

func (o *RenderOptions) buildContext() (map[string]interface{}, error) {
	context := map[string]interface{}{}

	for _, path := range o.DataFiles {
		vals, err := parseDataFile(path)
		if err != nil {
			return nil, err
		}
		for key, val := range vals {
			context[key] = val
		}
	}

	for _, kv := range o.DataValues {
		key, val, found := strings.Cut(kv, "=")
		if !found {
			return nil, fmt.Errorf("expected --data value '%s' to be in key=value form", kv)
		}
		context[key] = val
	}

	return context, nil
}

func parseDataFile(path string) (map[string]interface{}, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	vals := map[string]interface{}{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(bs, &vals); err != nil {
			return nil, fmt.Errorf("parsing TOML data file %s: %w", path, err)
		}
	default:
		// yaml.v3 parses JSON as well
		if err := yaml.Unmarshal(bs, &vals); err != nil {
			return nil, fmt.Errorf("parsing data file %s: %w", path, err)
		}
	}
	return vals, nil
}
