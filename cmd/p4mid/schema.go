package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"p4mid/internal/bfrt"
	"p4mid/internal/config"
	"p4mid/internal/dcache"
	"p4mid/internal/diag"
	"p4mid/internal/diagfmt"
)

var (
	schemaOutDir   string
	schemaUseCache bool
	schemaJobs     int
)

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutDir, "out-dir", "o", "", "directory for generated schemas (default: next to input)")
	schemaCmd.Flags().BoolVar(&schemaUseCache, "cache", false, "reuse cached schemas for unchanged inputs")
	schemaCmd.Flags().IntVarP(&schemaJobs, "jobs", "j", 0, "number of inputs processed in parallel (default: CPU count)")
}

var schemaCmd = &cobra.Command{
	Use:   "schema <p4info.json>...",
	Short: "Generate the runtime table schema from P4Info",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifest, err := config.Load(".")
		if err != nil {
			return err
		}
		cfg := manifest.Config
		maxDiags := maxDiagnostics(cmd, cfg.Midend.MaxDiagnostics)
		quiet, _ := cmd.Flags().GetBool("quiet")
		pretty := prettyOpts(cmd)

		var cache *dcache.DiskCache
		if schemaUseCache || cfg.Schema.Cache {
			if cfg.Schema.CacheDir != "" {
				cache, err = dcache.OpenAt(cfg.Schema.CacheDir)
			} else {
				cache, err = dcache.Open("p4mid")
			}
			if err != nil {
				return fmt.Errorf("open schema cache: %w", err)
			}
		}

		jobs := schemaJobs
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
				return schemaOne(cmd, path, cache, maxDiags, pretty, quiet, &mu)
			})
		}
		return g.Wait()
	},
}

// schemaOne generates the schema for one P4Info document, consulting
// the cache when enabled.
func schemaOne(cmd *cobra.Command, path string, cache *dcache.DiskCache, maxDiags int, pretty diagfmt.PrettyOpts, quiet bool, mu *sync.Mutex) (err error) {
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

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out := outputPath(path, schemaOutDir, ".bfrt.json")
	key := dcache.HashBytes(data)

	if cache != nil {
		cached, hit, err := cache.Get(key)
		if err != nil {
			return fmt.Errorf("%s: read schema cache: %w", path, err)
		}
		if hit {
			if err := writeFileAtomic(out, cached); err != nil {
				return err
			}
			if !quiet {
				mu.Lock()
				fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s (cached)\n", path, out)
				mu.Unlock()
			}
			return nil
		}
	}

	info, err := bfrt.LoadP4Info(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	bag := diag.NewBag(maxDiags)
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	gen := bfrt.NewGenerator(info, reporter)
	schema := gen.GenSchema()

	mu.Lock()
	bag.Sort()
	diagfmt.Pretty(cmd.ErrOrStderr(), bag, nil, pretty)
	mu.Unlock()
	if bag.HasErrors() {
		return fmt.Errorf("%s: schema generation failed with %d errors", path, bag.ErrorCount())
	}

	rendered, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: render schema: %w", path, err)
	}
	rendered = append(rendered, '\n')

	if err := writeFileAtomic(out, rendered); err != nil {
		return err
	}
	if cache != nil {
		if err := cache.Put(key, rendered); err != nil {
			return fmt.Errorf("%s: write schema cache: %w", path, err)
		}
	}
	if !quiet {
		mu.Lock()
		fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s\n", path, out)
		mu.Unlock()
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
