package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oisee/i8080-decoder/pkg/asm"
	"github.com/oisee/i8080-decoder/pkg/batch"
	"github.com/oisee/i8080-decoder/pkg/config"
	"github.com/oisee/i8080-decoder/pkg/dis"
	"github.com/oisee/i8080-decoder/pkg/inst"
	"github.com/oisee/i8080-decoder/pkg/render"
	"github.com/oisee/i8080-decoder/pkg/result"
)

var log = logrus.New()

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var configPath string
	var verbose bool
	cfg := config.Default()

	rootCmd := &cobra.Command{
		Use:           "i8080",
		Short:         "Intel 8080 decoder built from an opcode table",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			if configPath == "" {
				return nil
			}
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			log.WithField("path", configPath).Debug("loaded config")
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// dis command
	var (
		tablePath  string
		format     string
		output     string
		raw        bool
		numWorkers int
	)

	disCmd := &cobra.Command{
		Use:   "dis [files]",
		Short: "Decode binary files (\"-\" or none reads stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("table") {
				cfg.Table = tablePath
			}
			if flags.Changed("format") {
				cfg.Format = format
			}
			if flags.Changed("output") {
				cfg.Output = output
			}
			if flags.Changed("raw") {
				cfg.Raw = raw
			}
			if flags.Changed("workers") {
				cfg.Workers = numWorkers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			cat, err := loadCatalog(cfg.Table)
			if err != nil {
				return err
			}
			jobs, err := loadJobs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tbl := batch.Run(batch.Config{
				NumWorkers: cfg.Workers,
				Raw:        cfg.Raw,
				Log:        log,
			}, dis.NewDecoder(cat), jobs)

			if err := writeListings(cmd.OutOrStdout(), cfg, tbl.Listings()); err != nil {
				return err
			}
			if n := tbl.Failures(); n > 0 {
				return fmt.Errorf("%d of %d inputs failed to decode", n, tbl.Len())
			}
			return nil
		},
	}
	disCmd.Flags().StringVar(&tablePath, "table", "", "Opcode table file (default: built-in 8080 table)")
	disCmd.Flags().StringVarP(&format, "format", "f", config.FormatAuto, "Output format (text, table, json, auto)")
	disCmd.Flags().StringVarP(&output, "output", "o", "", "Write JSON listings to this file")
	disCmd.Flags().BoolVar(&raw, "raw", false, "Print raw opcode tags only")
	disCmd.Flags().IntVar(&numWorkers, "workers", 0, "Number of workers (0 = NumCPU)")

	// asm command
	var asmOut string

	asmCmd := &cobra.Command{
		Use:   "asm FILE",
		Short: "Assemble 8080 source into a binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg.Table)
			if err != nil {
				return err
			}

			ins, err := asm.New(cat).Assemble(string(src))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			bin := asm.Encode(ins)

			if asmOut == "" {
				asmOut = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".bin"
			}
			if err := os.WriteFile(asmOut, bin, 0o644); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"instructions": len(ins),
				"bytes":        len(bin),
			}).Debug("assembled")
			fmt.Fprintf(cmd.OutOrStdout(), "Written %d bytes to %s\n", len(bin), asmOut)
			return nil
		},
	}
	asmCmd.Flags().StringVarP(&asmOut, "output", "o", "", "Output binary (default: FILE with .bin extension)")

	// model command
	var dump, all bool

	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Print the decoder model derived from the opcode table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cfg.Table)
			if err != nil {
				return err
			}
			ops := cat.Defined()
			if all {
				ops = ops[:0]
				for code := 0; code < 256; code++ {
					ops = append(ops, cat.Lookup(uint8(code)))
				}
			}
			if dump {
				spew.Fdump(cmd.OutOrStdout(), ops)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), modelTable(ops, all))
			fmt.Fprintf(cmd.OutOrStdout(), "%d raw tags, %d variants\n", len(cat.RawTags()), len(cat.Variants()))
			return nil
		},
	}
	modelCmd.Flags().BoolVar(&dump, "dump", false, "Dump the model with go-spew")
	modelCmd.Flags().BoolVar(&all, "all", false, "Include undefined opcode bytes")

	// gen command
	var genOut, pkgName string

	genCmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a Go decoder for the opcode table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cfg.Table)
			if err != nil {
				return err
			}
			source := "the built-in 8080 table"
			if cfg.Table != "" {
				source = filepath.Base(cfg.Table)
			}

			var buf bytes.Buffer
			if err := render.Go(&buf, cat, render.Options{Package: pkgName, Source: source}); err != nil {
				return err
			}
			if genOut == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(genOut, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Written to %s\n", genOut)
			return nil
		},
	}
	genCmd.Flags().StringVarP(&genOut, "out", "o", "", "Output Go file (default: stdout)")
	genCmd.Flags().StringVar(&pkgName, "package", "i8080", "Package name of the generated file")

	rootCmd.AddCommand(disCmd, asmCmd, modelCmd, genCmd)
	return rootCmd
}

// loadCatalog builds the catalog from path, or the built-in table when path
// is empty.
func loadCatalog(path string) (*inst.Catalog, error) {
	if path == "" {
		return inst.DefaultCatalog(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tbl, err := inst.ParseTable(f)
	if err != nil {
		return nil, err
	}
	for _, line := range tbl.Skipped {
		log.WithFields(logrus.Fields{"table": path, "line": line}).Debug("skipped malformed table line")
	}
	log.WithFields(logrus.Fields{
		"table":    path,
		"defined":  len(tbl.Entries),
		"reserved": len(tbl.Reserved),
	}).Debug("loaded opcode table")
	return inst.NewCatalog(tbl), nil
}

// loadJobs reads the input files concurrently. No arguments, or "-", means
// stdin, which may appear at most once.
func loadJobs(args []string, stdin io.Reader) ([]batch.Job, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	stdinArgs := 0
	for _, name := range args {
		if name == "-" {
			stdinArgs++
		}
	}
	if stdinArgs > 1 {
		return nil, fmt.Errorf("stdin (\"-\") can be read only once, got it %d times", stdinArgs)
	}

	jobs := make([]batch.Job, len(args))
	var g errgroup.Group
	for i, name := range args {
		i, name := i, name
		g.Go(func() error {
			var data []byte
			var err error
			if name == "-" {
				data, err = io.ReadAll(stdin)
			} else {
				data, err = os.ReadFile(name)
			}
			if err != nil {
				return err
			}
			jobs[i] = batch.Job{Name: name, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func writeJSONFile(path string, listings []result.Listing) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := result.WriteJSON(f, listings); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeListings(w io.Writer, cfg config.Config, listings []result.Listing) error {
	if cfg.Output != "" {
		if err := writeJSONFile(cfg.Output, listings); err != nil {
			return err
		}
		log.WithField("path", cfg.Output).Debug("written listings")
	}

	switch resolveFormat(cfg.Format, w) {
	case config.FormatJSON:
		return result.WriteJSON(w, listings)
	case config.FormatTable:
		for _, l := range listings {
			fmt.Fprintln(w, listingTable(l))
		}
		return nil
	default:
		for _, l := range listings {
			writeText(w, l)
		}
		return nil
	}
}
