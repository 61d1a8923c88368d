package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"animalia/internal/config"
	"animalia/internal/fetch"
	"animalia/internal/pipeline"
	"animalia/internal/send"
	"animalia/internal/staging"
	"animalia/internal/transform"
	"animalia/internal/validate"
	"animalia/pkg/logger"
	"animalia/pkg/models"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "animalia",
		Short:         "ETL pipeline populating the local animal API from GBIF",
		Long:          "Fetches species data from GBIF, normalizes it into the canonical animal record, validates it against the schema and pushes it to the configured animal API.\nConfiguration comes from ANIMALIA_* environment variables.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd())
	root.AddCommand(fetchCmd())
	root.AddCommand(fetchAllCmd())
	root.AddCommand(transformCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(sendCmd())
	return root
}

// setup loads configuration and builds the logger shared by all subcommands.
func setup() (*config.Config, *zap.Logger) {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Production: cfg.Production})
	if !cfg.Production {
		cfg.Display(os.Stdout)
	}
	return cfg, log
}

func speciesArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return pipeline.DefaultSpecies
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [species]",
		Short: "Run the full pipeline (fetch, transform, validate, send) for one species",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			defer log.Sync()

			s := pipeline.New(cfg, log).Run(cmd.Context(), speciesArg(args))
			printSummary(cfg, log, s)

			if s.Status == pipeline.StatusAborted {
				return fmt.Errorf("pipeline aborted at stage %s: %w", s.FailedStage, s.Err)
			}
			return nil
		},
	}
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [species...]",
		Short: "Fetch raw GBIF payloads into the staging area",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			defer log.Sync()

			client := fetch.New(cfg.GBIFURL, cfg.RawDir, cfg.HTTPTimeout, log)

			if len(args) == 0 {
				args = []string{pipeline.DefaultSpecies}
			}
			if len(args) == 1 {
				_, err := client.SpeciesDetail(cmd.Context(), args[0])
				return err
			}

			paths := client.SpeciesDetailAll(cmd.Context(), args)
			if len(paths) == 0 {
				return fmt.Errorf("no species fetched")
			}
			log.Info("fetch done", zap.Int("requested", len(args)), zap.Int("fetched", len(paths)))
			return nil
		},
	}
}

func fetchAllCmd() *cobra.Command {
	var classes []string
	cmd := &cobra.Command{
		Use:   "fetch-all",
		Short: "Bulk-fetch species per taxonomic class into the batch staging file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			defer log.Sync()

			client := fetch.New(cfg.GBIFURL, cfg.RawDir, cfg.HTTPTimeout, log)
			_, err := client.AllForClasses(cmd.Context(), classes, fetch.BulkOptions{
				PerClass:   cfg.MaxPerClass,
				MaxRecords: cfg.MaxRecords,
				Delay:      cfg.GBIFRateLimit,
			})
			return err
		},
	}
	cmd.Flags().StringSliceVar(&classes, "classes", fetch.DefaultClasses, "taxonomic classes to fetch")
	return cmd
}

func transformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Transform every raw staging payload into canonical records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			defer log.Sync()

			raw, errs := transform.LoadRawDir(cfg.RawDir, log)
			for _, err := range errs {
				log.Error("raw payload skipped", zap.Error(err))
			}

			if batch, err := transform.LoadBatch(cfg.RawDir); err == nil {
				raw = append(raw, batch...)
			}

			if len(raw) == 0 {
				return fmt.Errorf("nothing to transform in %s", cfg.RawDir)
			}

			records := transform.Species(raw, log)
			out := staging.TransformedFile(cfg.ProcessedDir, "animals")
			return staging.WriteJSON(out, records)
		},
	}
}

func validateCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate transformed records against the animal schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			defer log.Sync()

			if in == "" {
				in = staging.TransformedFile(cfg.ProcessedDir, "animals")
			}

			var records []models.Animal
			if err := staging.ReadJSON(in, &records); err != nil {
				return err
			}

			validated, rejected := validate.Animals(records)
			log.Info("validation done",
				zap.Int("valid", len(validated)),
				zap.Int("rejected", len(rejected)))

			if err := staging.WriteJSON(staging.ValidatedFile(cfg.ProcessedDir), validated); err != nil {
				return err
			}
			if len(rejected) > 0 {
				return staging.WriteJSON(staging.RejectedFile(cfg.ProcessedDir), rejected)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "transformed records file (default: processed staging file)")
	return cmd
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Send validated records to the target animal API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			defer log.Sync()

			animals, err := pipeline.ValidatedRecords(cfg.ProcessedDir)
			if err != nil {
				return err
			}
			if len(animals) == 0 {
				return fmt.Errorf("no validated records to send; run validate first")
			}

			report := send.New(cfg.TargetURL, cfg.HTTPTimeout, log).All(cmd.Context(), animals)
			if len(report.Failures) > 0 {
				if err := staging.WriteJSON(staging.SendErrorsFile(cfg.ProcessedDir), report.Failures); err != nil {
					return err
				}
				log.Warn("send completed with errors",
					zap.Int("sent", report.Sent),
					zap.Int("failed", len(report.Failures)))
			}
			return nil
		},
	}
}

// printSummary renders the run outcome. Production mode keeps it to one
// structured log line; otherwise a table is printed for the operator.
func printSummary(cfg *config.Config, log *zap.Logger, s pipeline.Summary) {
	if cfg.Production {
		log.Info("run summary",
			zap.String("runID", s.RunID),
			zap.String("species", s.Species),
			zap.String("status", string(s.Status)),
			zap.Int("fetched", s.Fetched),
			zap.Int("transformed", s.Transformed),
			zap.Int("validated", s.Validated),
			zap.Int("rejected", s.Rejected),
			zap.Int("sent", s.Sent),
			zap.Int("failed", s.Failed))
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("run %s (%s)", s.RunID[:8], s.Species)
	tw.AppendHeader(table.Row{"Stage", "Count"})
	tw.AppendRows([]table.Row{
		{"fetched", s.Fetched},
		{"transformed", s.Transformed},
		{"validated", s.Validated},
		{"rejected", s.Rejected},
		{"sent", s.Sent},
		{"failed", s.Failed},
	})
	tw.AppendFooter(table.Row{"status", string(s.Status)})
	tw.Render()
}
