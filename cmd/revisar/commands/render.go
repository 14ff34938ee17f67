package commands

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revisar/pkg/cluster"
	"github.com/Sumatoshi-tech/revisar/pkg/edit"
	"github.com/Sumatoshi-tech/revisar/pkg/persist"
)

// ErrNothingToRender indicates no mined edits were available for the report.
var ErrNothingToRender = errors.New("nothing to render")

const (
	defaultReportPath = "revisar-report.html"
	topGroupsLimit    = 20
	chartWidth        = "900px"
	chartHeight       = "500px"
)

// NewRenderCommand creates the HTML report command.
func NewRenderCommand(globals *Globals) *cobra.Command {
	var (
		outputDir  string
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an HTML report of mined edits and clusters",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}

			store, err := storeFor(cfg, outputDir)
			if err != nil {
				return err
			}

			var edits edit.Set
			if loadErr := store.Load(persist.EditsArtifact, &edits); loadErr != nil {
				return loadErr
			}

			if len(edits.Edits) == 0 {
				return ErrNothingToRender
			}

			var clusters cluster.Result
			if loadErr := store.Load(persist.ClustersArtifact, &clusters); loadErr != nil {
				return loadErr
			}

			if renderErr := renderReport(reportPath, &edits, &clusters); renderErr != nil {
				return renderErr
			}

			if !globals.Quiet {
				fmt.Fprintf(os.Stdout, "report written to %s\n", reportPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "artifact output directory")
	cmd.Flags().StringVar(&reportPath, "report", defaultReportPath, "report HTML file path")

	return cmd
}

func renderReport(path string, edits *edit.Set, clusters *cluster.Result) error {
	page := components.NewPage()
	page.PageTitle = "Revisar Report"
	page.AddCharts(
		createGroupSizeChart(clusters.Groups),
		createLanguagePieChart(edits.Edits),
	)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer file.Close()

	if renderErr := page.Render(file); renderErr != nil {
		return fmt.Errorf("render report: %w", renderErr)
	}

	return nil
}

// createGroupSizeChart plots the largest clusters by member count.
func createGroupSizeChart(groups []*cluster.Group) *charts.Bar {
	sorted := make([]*cluster.Group, len(groups))
	copy(sorted, groups)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i].Members) > len(sorted[j].Members) })

	if len(sorted) > topGroupsLimit {
		sorted = sorted[:topGroupsLimit]
	}

	labels := make([]string, len(sorted))
	data := make([]opts.BarData, len(sorted))

	for i, group := range sorted {
		labels[i] = fmt.Sprintf("group %d", group.ID)
		data[i] = opts.BarData{Value: len(group.Members)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Largest Edit Clusters",
			Subtitle: "Groups ranked by the number of mined edits they contain",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("Edits", data)

	return bar
}

// createLanguagePieChart plots the mined-edit distribution across languages.
func createLanguagePieChart(edits []*edit.Edit) *charts.Pie {
	counts := make(map[string]int)
	for _, e := range edits {
		counts[e.Language]++
	}

	languages := make([]string, 0, len(counts))
	for language := range counts {
		languages = append(languages, language)
	}

	sort.Strings(languages)

	data := make([]opts.PieData, len(languages))
	for i, language := range languages {
		data[i] = opts.PieData{Name: language, Value: counts[language]}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Edits by Language",
			Subtitle: "Distribution of mined edits across detected languages",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)
	pie.AddSeries("Edits", data).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{
			Show:      opts.Bool(true),
			Formatter: "{b}: {c} ({d}%)",
		}))

	return pie
}
