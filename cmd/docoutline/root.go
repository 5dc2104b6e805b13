package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/pipeline"
)

// options are the global flags shared by every command.
type options struct {
	cfgFile    string
	format     string
	classifier string
	encoder    string
}

// load resolves configuration and applies flag overrides on top.
func (o *options) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.OutputFormat = o.format
	}
	if flags.Changed("classifier") {
		cfg.ClassifierPath = o.classifier
	}
	if flags.Changed("encoder") {
		cfg.EncoderPath = o.encoder
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "docoutline [input.pdf output.json]",
		Short: "Extract a title and H1-H4 outline from PDF documents",
		Long: `docoutline extracts the title and a hierarchical heading outline from
PDF documents using line layout features and a pre-trained classifier.

With two arguments it processes a single file. Without arguments it
processes every PDF in the input directory and writes one result per
document to the output directory.

Examples:
  docoutline report.pdf report.json
  docoutline --format yaml
  DOCOUTLINE_INPUT_DIR=/data/in docoutline`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or <input.pdf> <output.json>, got %d", len(args))
			}
			return nil
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, false)
			if err != nil {
				return err
			}

			a, err := newApp(cfg, log)
			if err != nil {
				log.Error("startup failed", "error", err)
				return err
			}
			defer a.Close()

			b := &pipeline.Batch{Worker: a.worker, Workers: cfg.WorkerCount, Format: cfg.OutputFormat}
			ctx := cmd.Context()

			if len(args) == 2 {
				return b.File(ctx, args[0], args[1])
			}

			summary, err := b.Run(ctx, cfg.InputDir, cfg.OutputDir)
			if err != nil {
				return err
			}
			if summary.Failed() {
				for _, f := range summary.Failures {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", f.File, f.Err)
				}
				return fmt.Errorf("%w: %d of %d", errDocumentsFailed, len(summary.Failures), len(summary.Failures)+len(summary.Written))
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default: ./docoutline.yaml)")
	pf.StringVar(&opts.format, "format", "json", "output format: json or yaml")
	pf.StringVar(&opts.classifier, "classifier", "", "classifier artifact path (overrides config)")
	pf.StringVar(&opts.encoder, "encoder", "", "label encoder artifact path (overrides config)")

	cmd.AddCommand(newServeCmd(opts))
	return cmd
}
