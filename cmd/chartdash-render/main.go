// Command chartdash-render renders a dataset and a chart list to a static
// dashboard: an HTML page, one PNG per chart and the evaluated configuration.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chartdash/internal/charts"
	"chartdash/internal/dashboard"
	"chartdash/internal/fetchers"
	"chartdash/internal/logger"
	"chartdash/internal/models"
	"chartdash/internal/render"
	"chartdash/internal/reports"
	"chartdash/internal/storage"
)

// EChartsPageFile is the combined interactive page written with --echarts
const EChartsPageFile = "echarts.html"

type options struct {
	chartsFile string
	kinds      []string
	outputDir  string
	stylesheet string
	echarts    bool
	timeout    time.Duration
	logLevel   string
}

// chartSpec is one entry of the chart list file
type chartSpec struct {
	Kind   string          `json:"kind"`
	Config json.RawMessage `json:"config,omitempty"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "chartdash-render [dataset.csv|dataset.json|dataset.xlsx|URL]",
		Short: "Render a dataset to a static chart dashboard",
		Long: `chartdash-render loads a dataset from a file or URL, evaluates a list of
charts against it and writes index.html, chart-N.png, charts.json and the
data summary to the output directory.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Configure(opts.logLevel, "text", "development")
			return run(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.chartsFile, "charts", "c", "", "JSON file listing charts as [{\"kind\": ..., \"config\": {...}}]")
	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "Chart kind to add with default configuration (repeatable)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "dashboard", "Output directory")
	cmd.Flags().StringVar(&opts.stylesheet, "stylesheet", "", "CSS file to inline into the page")
	cmd.Flags().BoolVar(&opts.echarts, "echarts", false, "Also write all charts to one interactive "+EChartsPageFile)
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for fetching a dataset URL")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, out io.Writer, source string, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := loadSource(ctx, source, opts.timeout)
	if err != nil {
		return err
	}

	store := charts.NewStore()
	if opts.chartsFile != "" {
		if err := addChartsFromFile(store, opts.chartsFile); err != nil {
			return err
		}
	}
	for _, name := range opts.kinds {
		kind, err := charts.ParseKind(name)
		if err != nil {
			return err
		}
		store.Append(kind)
	}
	if store.Len() == 0 {
		return fmt.Errorf("no charts given: use --charts or --kind")
	}

	evaluated := dashboard.Evaluate(src.Dataset, store)

	echarts := render.NewEChartsRenderer()
	png := render.NewPNGRenderer()
	builder := reports.NewHTMLBuilder(reports.NewTemplateLoader(opts.stylesheet), echarts)

	files, err := reports.NewFileGenerator(builder, png).GenerateAllFiles(reports.Snapshot{
		Timestamp:  time.Now().UTC(),
		SourceName: src.Name,
		Dataset:    src.Dataset,
		Charts:     evaluated,
	})
	if err != nil {
		return err
	}
	// Write straight into the output directory instead of a dated folder
	files.FolderPath = ""

	client, err := storage.NewLocalStorageClient(opts.outputDir)
	if err != nil {
		return err
	}
	defer client.Close()

	stored, err := reports.NewStorageOrchestrator(client).StoreAllFiles(ctx, files)
	if err != nil {
		return err
	}

	if opts.echarts {
		if err := writeEChartsPage(echarts, filepath.Join(opts.outputDir, EChartsPageFile), evaluated); err != nil {
			return err
		}
		stored = append(stored, EChartsPageFile)
	}

	for _, name := range stored {
		fmt.Fprintln(out, filepath.Join(opts.outputDir, filepath.FromSlash(name)))
	}
	return nil
}

func loadSource(ctx context.Context, source string, timeout time.Duration) (*fetchers.Source, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchers.NewDataFetcher(timeout, 0).Fetch(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return fetchers.LoadUpload(filepath.Base(source), "", data)
}

func addChartsFromFile(store *charts.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read chart list: %w", err)
	}

	var specs []chartSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("invalid chart list %s: %w", path, err)
	}

	for i, spec := range specs {
		kind, err := charts.ParseKind(spec.Kind)
		if err != nil {
			return fmt.Errorf("chart %d: %w", i+1, err)
		}
		cfg, err := models.DecodeConfig(kind, spec.Config)
		if err != nil {
			return fmt.Errorf("chart %d: %w", i+1, err)
		}
		index := store.Append(kind)
		if err := store.Update(index, cfg); err != nil {
			return fmt.Errorf("chart %d: %w", i+1, err)
		}
	}
	return nil
}

func writeEChartsPage(r *render.EChartsRenderer, path string, evaluated []dashboard.Chart) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := r.RenderPage(f, reports.DashboardTitle, dashboard.Figures(evaluated)); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}
