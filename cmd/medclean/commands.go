package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/patrickmlong/Data-Intensive-PML/internal/app"
	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	"github.com/patrickmlong/Data-Intensive-PML/internal/dataprocessing"
	"github.com/patrickmlong/Data-Intensive-PML/internal/features"
	"github.com/patrickmlong/Data-Intensive-PML/internal/infrastructure"
	"github.com/patrickmlong/Data-Intensive-PML/internal/services"
	"github.com/patrickmlong/Data-Intensive-PML/internal/store"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
	"github.com/patrickmlong/Data-Intensive-PML/internal/validation"
)

type rootOptions struct {
	configPath string
	dataDir    string
	logLevel   string
}

// env is the resolved configuration shared by every command
type env struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *slog.Logger
}

func (o *rootOptions) load(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.Paths.DataDir = o.dataDir
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	paths, err := config.FromConfig(cfg.Paths)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	var logger *slog.Logger
	switch cfg.Logging.Output {
	case "file", "both":
		if logger, err = infrastructure.InitializeLogger(cfg.Logging); err != nil {
			return nil, err
		}
	default:
		logger = infrastructure.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level)
	}
	return &env{cfg: cfg, paths: paths, logger: logger}, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          config.AppName,
		Short:        "Clean, merge and prepare CMS hospital quality datasets",
		SilenceUsage: true,
		Version:      config.AppVersion,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default: medclean.yaml if present)")
	root.PersistentFlags().StringVarP(&opts.dataDir, "data-dir", "d", "", "data directory holding raw/, cleaned/ and processed/")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newCheckCmd(opts),
		newCleanCmd(opts),
		newRunsCmd(opts),
		newPrepareCmd(opts),
		newImportancesCmd(),
		newServeCmd(opts),
	)
	return root
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that every configured raw dataset is present and readable",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}

			v := validation.NewFileValidator(e.logger)
			reports, checkErr := v.ValidateDatasets(e.paths, e.cfg.Pipeline.Datasets)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATASET\tCOLUMNS\tSTATUS\tFILE")
			for _, r := range reports {
				status := "ok"
				if !r.OK() {
					status = "error: " + r.Err.Error()
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Name, r.Columns, status, filepath.Base(r.Path))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if err := v.ValidateOutputDirectory(e.paths.ProcessedDir); err != nil {
				return err
			}
			return checkErr
		},
	}
}

func newCleanCmd(opts *rootOptions) *cobra.Command {
	var (
		datasets   []string
		exportXLSX bool
		driver     string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the raw datasets, merge them and add regions",
		Long: `The clean command reads every configured dataset from the raw directory,
writes one cleaned CSV per dataset, outer-joins them on the provider id and
writes the merged table with a region column to the processed directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if driver != "" {
				e.cfg.Store.Driver = driver
			}
			if timeout > 0 {
				e.cfg.Server.RunTimeout = timeout
			}

			runs, err := store.Open(e.cfg.Store, e.paths)
			if err != nil {
				return err
			}
			defer runs.Close()

			req := services.RunRequest{Datasets: datasets}
			if cmd.Flags().Changed("xlsx") {
				req.ExportXLSX = &exportXLSX
			}

			svc := services.NewPipelineService(e.cfg, e.paths, runs, nil, e.logger)
			rec, err := svc.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s %s: %d rows x %d columns -> %s\n",
				rec.ID, rec.Status, rec.Rows, rec.Columns, rec.OutputPath)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&datasets, "datasets", nil, "datasets to clean (default: all configured)")
	cmd.Flags().BoolVar(&exportXLSX, "xlsx", false, "also write the region table as an Excel workbook")
	cmd.Flags().StringVar(&driver, "store", "", "run history backend: memory or sqlite")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the run after this long")
	return cmd
}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs from the SQLite history",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if e.cfg.Store.Driver == "memory" {
				e.cfg.Store.Driver = "sqlite"
			}

			runs, err := store.Open(e.cfg.Store, e.paths)
			if err != nil {
				return err
			}
			defer runs.Close()

			records, err := runs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tROWS\tDATASETS\tERROR")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.ID, r.Status, r.StartedAt.Format(time.RFC3339), r.Rows,
					strings.Join(r.Datasets, ","), r.Error)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	return cmd
}

func newPrepareCmd(opts *rootOptions) *cobra.Command {
	var input, outDir string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Split the merged table into model train and test sets",
		Long: `The prepare command reads the merged region table, drops rows without a
target, one-hot encodes text columns and writes X_train, X_test, y_train and
y_test CSVs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if input == "" {
				input = e.paths.GeoCSV()
			}
			if outDir == "" {
				outDir = e.paths.ProcessedDir
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
			}

			t, err := dataprocessing.LoadCleaned(input)
			if err != nil {
				return err
			}
			train, test, err := features.Prepare(t, e.cfg.Features)
			if err != nil {
				return err
			}

			written, err := features.WriteSplit(outDir, train, test, table.WriteOptions{BOMPrefix: e.cfg.Pipeline.BOMPrefix})
			if err != nil {
				return err
			}
			e.logger.InfoContext(cmd.Context(), "Model inputs written",
				slog.String("input", input),
				slog.Int("train_rows", train.Len()),
				slog.Int("test_rows", test.Len()),
				slog.Int("features", train.X.Width()))

			fmt.Fprintf(cmd.OutOrStdout(), "train %d rows, test %d rows, %d features -> %s\n",
				train.Len(), test.Len(), train.X.Width(), filepath.Dir(written[features.XTrainFile]))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "merged table to read (default: processed geo CSV)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: processed directory)")
	return cmd
}

func newImportancesCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "importances <file>",
		Short: "Rank model feature importances, keeping positive scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, scores, err := features.ReadImportances(args[0])
			if err != nil {
				return err
			}
			ranked, err := features.RankImportances(names, scores)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return features.WriteImportances(w, ranked)
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "write the ranking to this file instead of stdout")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				e.cfg.Server.Port = port
			}

			a, err := app.NewApplication(e.cfg, e.logger)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}
