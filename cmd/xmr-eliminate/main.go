// Command xmr-eliminate drives the engine end to end: it collects input
// files (expanding any configured library directories through glob
// patterns), scans them with the best-effort frontend, runs xmr_eliminate,
// and writes the results to the chosen output directory.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hdltools/xmr-eliminate/internal/config"
	"github.com/hdltools/xmr-eliminate/internal/engine"
	"github.com/hdltools/xmr-eliminate/internal/frontend"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	outputDir      string
	modulesFilter  []string
	topModule      string
	pipeRegMode    string
	pipeRegCount   int
	clockName      string
	resetName      string
	resetActiveLow bool
	checkOutput    bool
	includeDirs    []string
	systemDirs     []string
	defineFlags    []string
	undefineFlags  []string
	libraryDirs    []string
	libraryExts    []string
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut *os.File) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "xmr-eliminate [files...]",
		Short:         "Rewrite SystemVerilog cross-module references into port connections",
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEliminate(args, out, errOut)
		},
	}

	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "out", "output directory")
	rootCmd.Flags().StringSliceVarP(&modulesFilter, "modules", "m", nil, "comma-separated module filter")
	rootCmd.Flags().StringVarP(&topModule, "top", "t", "", "top module")
	rootCmd.Flags().StringVar(&pipeRegMode, "pipe-reg-mode", "none", "pipeline register mode: none|global|permodule|selective")
	rootCmd.Flags().IntVar(&pipeRegCount, "pipe-reg-count", 0, "pipeline register stage count for global mode")
	rootCmd.Flags().StringVar(&clockName, "clock", "clk", "clock signal name")
	rootCmd.Flags().StringVar(&resetName, "reset", "rst_n", "reset signal name")
	rootCmd.Flags().BoolVar(&resetActiveLow, "reset-active-high", false, "treat the reset signal as active-high instead of active-low")
	rootCmd.Flags().BoolVar(&checkOutput, "check-output", false, "re-check emitted output with a downstream compile pass (not yet wired up)")
	rootCmd.Flags().StringArrayVarP(&includeDirs, "include", "I", nil, "add directory to include search path")
	rootCmd.Flags().StringArrayVar(&systemDirs, "isystem", nil, "add directory to system include search path")
	rootCmd.Flags().StringArrayVarP(&defineFlags, "define", "D", nil, "define macro (NAME or NAME=VALUE)")
	rootCmd.Flags().StringArrayVarP(&undefineFlags, "undefine", "U", nil, "undefine macro")
	rootCmd.Flags().StringArrayVar(&libraryDirs, "library-dir", nil, "library directory to expand via --library-ext glob patterns")
	rootCmd.Flags().StringArrayVar(&libraryExts, "library-ext", []string{"*.sv", "*.v"}, "glob patterns matched against files in each --library-dir")

	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	return rootCmd
}

func runEliminate(args []string, out, errOut *os.File) error {
	cfg := buildConfig()

	sources, err := collectSources(args, cfg.Driver)
	if err != nil {
		return err
	}

	design, files, err := frontend.Scan(sources)
	if err != nil {
		return fmt.Errorf("xmr-eliminate: %w", err)
	}

	result, err := engine.Run(context.Background(), design, files, cfg, outputDir)
	if err != nil {
		if cfgErr, ok := err.(*engine.ConfigError); ok {
			fmt.Fprintln(errOut, wordwrap.WrapString("xmr-eliminate: "+cfgErr.Message, 100))
			return cfgErr
		}
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintln(errOut, wordwrap.WrapString(fmt.Sprintf("xmr-eliminate: warning: %s", w.Message), 100))
	}
	for _, e := range result.Errors {
		fmt.Fprintln(errOut, wordwrap.WrapString(fmt.Sprintf("xmr-eliminate: error: %s", e.Message), 100))
	}

	if err := engine.WriteOutputs(outputDir, result); err != nil {
		return fmt.Errorf("xmr-eliminate: %w", err)
	}

	fmt.Fprintf(out, "xmr-eliminate: run %s eliminated %d XMR(s) across %d file(s), written to %s\n",
		result.RunID, len(result.Eliminated), len(result.Files), outputDir)

	if len(result.Errors) > 0 {
		return fmt.Errorf("xmr-eliminate: run completed with %d error(s)", len(result.Errors))
	}
	return nil
}

func buildConfig() *config.Config {
	cfg := config.Default()
	cfg.Modules = modulesFilter
	cfg.TopModule = topModule
	cfg.PipeRegMode = pipeRegMode
	cfg.PipeRegCount = pipeRegCount
	cfg.ClockName = clockName
	cfg.ResetName = resetName
	activeLow := !resetActiveLow
	cfg.ResetActiveLow = &activeLow
	cfg.CheckOutput = checkOutput
	cfg.Driver = config.DriverOptions{
		IncludeDirs:       includeDirs,
		SystemIncludeDirs: systemDirs,
		Defines:           parseDefines(defineFlags),
		Undefines:         undefineFlags,
		LibraryDirs:       libraryDirs,
		LibraryExtensions: libraryExts,
	}
	return cfg
}

func parseDefines(flags []string) map[string]string {
	defines := make(map[string]string, len(flags))
	for _, d := range flags {
		if idx := strings.Index(d, "="); idx >= 0 {
			defines[d[:idx]] = d[idx+1:]
		} else {
			defines[d] = ""
		}
	}
	return defines
}

// collectSources reads every positional input file plus every file inside
// a configured library directory whose name matches one of the configured
// glob extension patterns.
func collectSources(args []string, driver config.DriverOptions) (map[string][]byte, error) {
	sources := make(map[string][]byte)

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("xmr-eliminate: reading %s: %w", path, err)
		}
		sources[path] = data
	}

	globs := make([]glob.Glob, 0, len(driver.LibraryExtensions))
	for _, pattern := range driver.LibraryExtensions {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("xmr-eliminate: compiling library extension pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	for _, dir := range driver.LibraryDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("xmr-eliminate: reading library dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !matchesAny(globs, entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("xmr-eliminate: reading %s: %w", path, err)
			}
			sources[path] = data
		}
	}

	return sources, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
