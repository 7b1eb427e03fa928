package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	herrors "objmodel/pkg/errors"
	"objmodel/pkg/harness"
	"objmodel/pkg/source"
)

type runOptions struct {
	configPath string
	filter     string
	output     string
	backend    string
	locale     string
	verbose    bool
	cpuprofile string
	memprofile string
}

func newRootCmd(ctx context.Context, version string) *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:          "objconform",
		Short:        "Check an object model implementation against YAML scenarios of the ordinary object internal methods.",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default "+harness.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVarP(&opts.filter, "filter", "f", "", "only run tests whose suite/test name matches this ECMAScript regular expression")

	runCmd := &cobra.Command{
		Use:   "run [suite files or patterns...]",
		Short: "Run scenario suites and print a conformance summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConformance(ctx, cmd, opts, args)
		},
	}
	runCmd.Flags().StringVarP(&opts.output, "output", "o", "", "directory receiving latest.json and results.json")
	runCmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "engine under test: model or goja")
	runCmd.Flags().StringVar(&opts.locale, "locale", "", "locale for numbers in the summary")
	runCmd.Flags().StringVar(&opts.cpuprofile, "cpuprofile", "", "write CPU profile to file")
	runCmd.Flags().StringVar(&opts.memprofile, "memprofile", "", "write memory profile to file")

	listCmd := &cobra.Command{
		Use:   "list [suite files or patterns...]",
		Short: "List the tests the run command would execute",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTests(ctx, cmd, opts, args)
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare <base> <new>",
		Short: "Compare two result files (or directories holding latest.json)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compareResults(cmd, args[0], args[1])
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, compareCmd)
	return rootCmd
}

// setup resolves the configuration and attaches a logger writing to the
// command's error stream.
func setup(ctx context.Context, cmd *cobra.Command, opts *runOptions, args []string) (context.Context, harness.Config, error) {
	cfg, err := harness.LoadConfig(opts.configPath)
	if err != nil {
		return ctx, cfg, err
	}
	err = cfg.Override(harness.Config{
		Suites:  args,
		Output:  opts.output,
		Filter:  opts.filter,
		Backend: opts.backend,
		Locale:  opts.locale,
		Verbose: opts.verbose,
	})
	if err != nil {
		return ctx, cfg, err
	}

	logger := log.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return harness.WithLogger(ctx, logger), cfg, nil
}

// loadSuites parses every configured suite. Load errors are also shown with
// the offending line on errOut.
func loadSuites(ctx context.Context, errOut io.Writer, cfg harness.Config) ([]*harness.Suite, error) {
	files, err := cfg.SuiteFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no suite files match %v", cfg.Suites)
	}
	harness.Logger(ctx).Debugf("Loading %d suite files", len(files))

	suites := make([]*harness.Suite, 0, len(files))
	for _, f := range files {
		s, err := harness.LoadSuite(f)
		if err != nil {
			var loadErr *herrors.LoadError
			if errors.As(err, &loadErr) {
				if data, readErr := os.ReadFile(f); readErr == nil {
					herrors.DisplayErrors(errOut, source.FromFile(f, string(data)), []herrors.HarnessError{loadErr})
				}
			}
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

func runConformance(ctx context.Context, cmd *cobra.Command, opts *runOptions, args []string) error {
	if opts.cpuprofile != "" {
		f, err := os.Create(opts.cpuprofile)
		if err != nil {
			return errors.Wrap(err, "could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return errors.Wrap(err, "could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	ctx, cfg, err := setup(ctx, cmd, opts, args)
	if err != nil {
		return err
	}
	logger := harness.Logger(ctx)

	suites, err := loadSuites(ctx, cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	backend, err := harness.NewBackend(cfg.Backend)
	if err != nil {
		return err
	}
	runner, err := harness.NewRunner(backend, cfg.Filter)
	if err != nil {
		return err
	}

	report := runner.Run(ctx, suites)

	out := cmd.OutOrStdout()
	color.NoColor = !harness.Colorable(out)
	harness.PrintFailures(out, report)
	harness.PrintSummary(out, report, cfg.Locale)

	if cfg.Output != "" {
		commit, err := harness.FindRevision(ctx, ".")
		if err != nil {
			logger.WithError(err).Warn("results will not record a commit")
		}
		if err := harness.WriteResults(ctx, cfg.Output, report, commit); err != nil {
			return err
		}
	}

	if opts.memprofile != "" {
		runtime.GC()
		f, err := os.Create(opts.memprofile)
		if err != nil {
			return errors.Wrap(err, "could not create memory profile")
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errors.Wrap(err, "could not write memory profile")
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if bad := report.Failed() + report.Panic; bad > 0 {
		return errors.Errorf("%d of %d tests did not pass", bad, report.Total-report.Ignored)
	}
	return nil
}

func listTests(ctx context.Context, cmd *cobra.Command, opts *runOptions, args []string) error {
	ctx, cfg, err := setup(ctx, cmd, opts, args)
	if err != nil {
		return err
	}
	suites, err := loadSuites(ctx, cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	runner, err := harness.NewRunner(harness.NewModelBackend(), cfg.Filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range suites {
		for _, t := range s.Tests {
			name := s.Name + "/" + t.Name
			if !runner.Selected(name) {
				continue
			}
			if t.Skip != "" {
				fmt.Fprintf(out, "%s (skipped: %s)\n", name, t.Skip)
				continue
			}
			fmt.Fprintln(out, name)
		}
	}
	return nil
}

func compareResults(cmd *cobra.Command, basePath, newPath string) error {
	base, err := harness.ReadResultInfo(resultFile(basePath))
	if err != nil {
		return err
	}
	next, err := harness.ReadResultInfo(resultFile(newPath))
	if err != nil {
		return err
	}
	harness.PrintComparison(cmd.OutOrStdout(), harness.Compare(base, next))
	return nil
}

func resultFile(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Join(path, harness.LatestFileName)
	}
	return path
}
