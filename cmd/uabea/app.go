// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/config"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/logging"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/patch"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// app holds state shared by all commands of one run.
type app struct {
	out     io.Writer
	cfg     *config.Config
	log     *zap.Logger
	patcher *patch.Patcher

	configPath string
	logLevel   string
	format     string
	verbose    bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "uabea",
		Short:         "Patch record containers and archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = a.log.Sync()
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")
	root.PersistentFlags().StringVar(&a.format, "format", formatText, "Output format: text|json|yaml")

	root.AddCommand(
		a.patchRawCmd(),
		a.patchDumpCmd(),
		a.dumpCmd(),
		a.infoCmd(),
		a.listCmd(),
		a.searchCmd(),
		a.bundleInfoCmd(),
		a.compressCmd(),
		a.decompressCmd(),
		a.batchExportCmd(),
		a.batchImportCmd(),
		a.applyPackageCmd(),
		a.makePackageCmd(),
	)

	return root
}

// setup loads configuration and builds the logger and patcher.
func (a *app) setup() error {
	switch a.format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", a.format)
	}

	if err := config.LoadEnvFiles(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.log = logging.New(logging.Options{Env: cfg.Log.Env, Level: level, Verbose: a.verbose})

	cache, err := cfg.SchemaCache()
	if err != nil {
		return err
	}

	scheme, err := cfg.PackScheme()
	if err != nil {
		return err
	}

	a.patcher = &patch.Patcher{
		Schemas: schema.NewProvider(cache),
		Log:     a.log,
		Pack:    bundle.PackOptions{Scheme: scheme},
	}

	return nil
}

// packOptions returns recompression options for scheme, or the configured
// scheme when name is empty.
func (a *app) packOptions(name string) (bundle.PackOptions, error) {
	scheme, err := a.cfg.PackScheme()
	if err != nil {
		return bundle.PackOptions{}, err
	}

	if name != "" {
		if scheme, err = bundle.ParseScheme(name); err != nil {
			return bundle.PackOptions{}, fmt.Errorf("scheme %q: %w", name, err)
		}
	}

	return bundle.PackOptions{Scheme: scheme, Compress: bundle.CompressAll()}, nil
}

// emit writes v as JSON or YAML, or calls text for the text format.
func (a *app) emit(v any, text func(w io.Writer) error) error {
	switch a.format {
	case formatJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}

		return enc.Close()
	default:
		return text(a.out)
	}
}

// printWarnings writes one line per warning.
func printWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintln(w, "Warning:", strings.TrimSpace(warning))
	}
}
