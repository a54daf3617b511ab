package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"p4mid/internal/config"
	"p4mid/internal/diag"
	"p4mid/internal/diagfmt"
	"p4mid/internal/inline"
	"p4mid/internal/ir"
	"p4mid/internal/observ"
)

var (
	inlineOutDir        string
	inlinePrint         bool
	inlineAllowMultiple bool
	inlineAllowNested   bool
	inlineJobs          int
)

func init() {
	inlineCmd.Flags().StringVarP(&inlineOutDir, "out-dir", "o", "", "directory for transformed programs (default: next to input)")
	inlineCmd.Flags().BoolVar(&inlinePrint, "print", false, "pretty-print the transformed program to stdout")
	inlineCmd.Flags().BoolVar(&inlineAllowMultiple, "allow-multiple-calls", false, "permit inlining instances applied more than once")
	inlineCmd.Flags().BoolVar(&inlineAllowNested, "allow-nested-controls", true, "flatten controls instantiated inside other controls")
	inlineCmd.Flags().IntVarP(&inlineJobs, "jobs", "j", 0, "number of inputs processed in parallel (default: CPU count)")
}

var inlineCmd = &cobra.Command{
	Use:   "inline <program.irpack>...",
	Short: "Flatten control and parser instantiations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest, err := config.Load(".")
		if err != nil {
			return err
		}
		cfg := manifest.Config
		opts := inline.Options{
			AllowMultipleCalls:  inlineAllowMultiple || cfg.Midend.AllowMultipleCalls,
			AllowNestedControls: inlineAllowNested && cfg.Midend.AllowNestedControls,
		}
		maxDiags := maxDiagnostics(cmd, cfg.Midend.MaxDiagnostics)
		quiet, _ := cmd.Flags().GetBool("quiet")
		timings, _ := cmd.Flags().GetBool("timings")
		pretty := prettyOpts(cmd)

		jobs := inlineJobs
		if jobs <= 0 {
			jobs = runtime.NumCPU()
		}
		var mu sync.Mutex
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(jobs)
		for _, path := range args {
			path := path
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				return inlineOne(cmd, path, opts, maxDiags, pretty, quiet, timings, &mu)
			})
		}
		return g.Wait()
	},
}

// inlineOne runs the full pipeline over one serialized program. The
// mutex serializes terminal output across workers.
func inlineOne(cmd *cobra.Command, path string, opts inline.Options, maxDiags int, pretty diagfmt.PrettyOpts, quiet, timings bool, mu *sync.Mutex) (err error) {
	defer func() {
		var bug *diag.BugError
		if r := recover(); r != nil {
			if e, ok := r.(*diag.BugError); ok {
				bug = e
			} else {
				panic(r)
			}
		}
		if bug != nil && err == nil {
			err = fmt.Errorf("%s: %w", path, bug)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	prog, err := ir.DecodeProgram(f)
	closeErr := f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if closeErr != nil {
		return closeErr
	}

	bag := diag.NewBag(maxDiags)
	refMap := ir.NewReferenceMap()
	timer := observ.NewTimer()

	idx := timer.Begin("inline")
	in := inline.NewInliner(prog, refMap, bag, opts)
	in.Run()
	timer.End(idx, path)
	if !bag.HasErrors() {
		idx = timer.Begin("prune")
		in.Prune()
		timer.End(idx, "")
	}

	mu.Lock()
	bag.Sort()
	diagfmt.Pretty(cmd.ErrOrStderr(), bag, nil, pretty)
	if timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if inlinePrint && !bag.HasErrors() {
		ir.Dump(cmd.OutOrStdout(), prog)
	}
	mu.Unlock()

	if bag.HasErrors() {
		return fmt.Errorf("%s: inlining failed with %d errors", path, bag.ErrorCount())
	}

	out := outputPath(path, inlineOutDir, ".inlined.irpack")
	if err := writeProgram(out, prog); err != nil {
		return err
	}
	if !quiet {
		mu.Lock()
		fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s\n", path, out)
		mu.Unlock()
	}
	return nil
}

// outputPath derives the artifact path: strip the input extension, add
// the suffix, place it in dir when given.
func outputPath(input, dir, suffix string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + suffix
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base)
}

func writeProgram(path string, prog *ir.Program) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ir.EncodeProgram(f, prog); err != nil {
		closeErr := f.Close()
		return errors.Join(err, closeErr)
	}
	return f.Close()
}
