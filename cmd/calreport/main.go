// calreport renders calibration report charts without a UI window.
//
// Subcommands mirror the viewer's panes: summary (console only),
// error-convergence, value-evolution and error-distribution (PNG artifacts in
// the output directory). The chart subcommands accept the same filter/cap
// semantics the viewer uses, plus a legacy positional form where a lone
// trailing integer is taken as --max-vars (the filter engine itself never
// special-cases numeric terms).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JamesVaughan/visualize-calibration-report/src/analysis"
	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
	"github.com/JamesVaughan/visualize-calibration-report/src/export"
	"github.com/JamesVaughan/visualize-calibration-report/src/logging"
	"github.com/JamesVaughan/visualize-calibration-report/src/plot"
	"github.com/JamesVaughan/visualize-calibration-report/src/viewstate"
)

var (
	flagInput    string
	flagOutput   string
	flagTheme    string
	flagLogLevel string
	flagFilter   string
	flagMaxVars  int
	flagTopN     int
)

func main() {
	root := &cobra.Command{
		Use:           "calreport",
		Short:         "Headless calibration report charts and summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetLevel(flagLogLevel)
		},
	}
	root.PersistentFlags().StringVar(&flagInput, "input", "", "Path to the calibration report CSV (required)")
	root.PersistentFlags().StringVar(&flagOutput, "output", "output", "Directory for generated chart images")
	root.PersistentFlags().StringVar(&flagTheme, "theme", "light", "Chart theme (light|dark)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	_ = root.MarkPersistentFlagRequired("input")

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Print convergence statistics to the console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dataset.LoadFile(flagInput)
			if err != nil {
				return err
			}
			s, err := analysis.Summarize(d, flagTopN)
			if err != nil {
				return err
			}
			s.WriteText(cmd.OutOrStdout())
			return nil
		},
	}
	summaryCmd.Flags().IntVar(&flagTopN, "top-n", analysis.DefaultTopN, "Length of the worst-variables ranking")

	errConvCmd := chartCommand("error-convergence", "Render the error convergence chart",
		viewstate.PaneError, "error_convergence.png")
	valEvoCmd := chartCommand("value-evolution", "Render the value evolution chart",
		viewstate.PaneValue, "value_evolution.png")

	distCmd := &cobra.Command{
		Use:   "error-distribution",
		Short: "Render the histogram of final absolute errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dataset.LoadFile(flagInput)
			if err != nil {
				return err
			}
			finals := analysis.FinalAbsErrors(d)
			if len(finals) == 0 {
				logging.Warnf("%s has no error series; error distribution is empty", flagInput)
			}
			bins := plot.BuildHistogram(finals, plot.MaxHistogramBins)
			img, err := plot.RenderHistogram(bins, plot.RenderOptions{
				Width:      export.DefaultWidth,
				Height:     export.DefaultHeight,
				Theme:      parseTheme(flagTheme),
				Title:      "Final Absolute Error Distribution",
				YLabel:     "Variables",
				Annotation: filepath.Base(flagInput),
			})
			if err != nil {
				return err
			}
			out, err := outputPath("error_distribution.png")
			if err != nil {
				return err
			}
			if err := export.WritePNG(img, out); err != nil {
				return err
			}
			logging.Infof("wrote %s", out)
			return nil
		},
	}

	root.AddCommand(summaryCmd, errConvCmd, valEvoCmd, distCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "calreport: %v\n", err)
		os.Exit(1)
	}
}

// chartCommand builds the shared shape of the two line-chart subcommands.
func chartCommand(use, short string, pane viewstate.Pane, artifact string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, maxVars, err := applyPositionalArgs(args, flagFilter, flagMaxVars)
			if err != nil {
				return err
			}
			d, err := dataset.LoadFile(flagInput)
			if err != nil {
				return err
			}
			selection, err := analysis.SelectVariables(d, analysis.ParseTerms(filter), maxVars)
			if err != nil {
				return err
			}
			st := viewstate.New()
			st.SetTheme(parseTheme(flagTheme))
			st.LoadDataset(d, flagInput, selection)
			out, err := outputPath(artifact)
			if err != nil {
				return err
			}
			if err := export.WritePaneImage(st.Snapshot(), pane, export.DefaultWidth, export.DefaultHeight, out); err != nil {
				return err
			}
			logging.Infof("wrote %s", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagFilter, "filter", "", "Comma-separated case-insensitive filter terms")
	cmd.Flags().IntVar(&flagMaxVars, "max-vars", analysis.DefaultMaxVars, "Maximum number of variables to plot")
	return cmd
}

// applyPositionalArgs layers the legacy positional form over the flags:
// "<filter>", "<filter> <maxvars>", or a lone integer meaning max-vars.
func applyPositionalArgs(args []string, filter string, maxVars int) (string, int, error) {
	switch len(args) {
	case 0:
	case 1:
		if n, err := strconv.Atoi(args[0]); err == nil {
			maxVars = n
		} else {
			filter = args[0]
		}
	case 2:
		filter = args[0]
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return "", 0, fmt.Errorf("%w: max-vars argument %q is not an integer", dataset.ErrInvalidArgument, args[1])
		}
		maxVars = n
	}
	return filter, maxVars, nil
}

func parseTheme(s string) plot.Theme {
	if s == "dark" {
		return plot.ThemeDark
	}
	return plot.ThemeLight
}

// outputPath ensures the output directory exists and returns the artifact's
// full path.
func outputPath(name string) (string, error) {
	if err := os.MkdirAll(flagOutput, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output dir %s: %v", dataset.ErrMissingResource, flagOutput, err)
	}
	return filepath.Join(flagOutput, name), nil
}
