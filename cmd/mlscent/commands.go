package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlscent/mlscent/analyzer"
	"github.com/mlscent/mlscent/knowledge"
)

var (
	inputPath     string
	outputPath    string
	parallel      bool
	maxWalkers    int
	resume        bool
	multiple      bool
	knowledgePath string
	verbose       bool

	rootCmd = &cobra.Command{
		Use:   "mlscent",
		Short: "Static analyzer for machine-learning code smells in Python code",
		Long: `mlscent scans Python projects for a fixed catalogue of machine-learning
specific code smells (pandas, NumPy, TensorFlow and PyTorch API misuse) and
writes the findings as CSV reports.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging(verbose)
		},
		SilenceUsage: true,
	}

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Scan a project, or a directory of projects, for code smells",
		RunE:  runScan,
	}
)

func init() {
	scanCmd.Flags().StringVar(&inputPath, "input", "", "project directory (or directory of projects with --multiple) to analyze")
	scanCmd.Flags().StringVar(&outputPath, "output", "", "directory to write analysis results to")
	scanCmd.Flags().BoolVar(&parallel, "parallel", false, "analyze projects with a worker pool instead of sequentially")
	scanCmd.Flags().IntVar(&maxWalkers, "max_walkers", 5, "number of parallel workers")
	scanCmd.Flags().BoolVar(&resume, "resume", false, "skip projects already recorded in the execution log")
	scanCmd.Flags().BoolVar(&multiple, "multiple", false, "treat --input as a directory of project directories")
	scanCmd.Flags().StringVar(&knowledgePath, "knowledge", "", "directory of YAML files overriding the built-in knowledge base")
	cobra.CheckErr(scanCmd.MarkFlagRequired("input"))
	cobra.CheckErr(scanCmd.MarkFlagRequired("output"))

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("invalid --input path: %w", err)
	}
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return fmt.Errorf("invalid --output path: %w", err)
	}

	// A broken knowledge base is a configuration error: fail before any
	// analysis starts.
	kb := knowledge.Default()
	if knowledgePath != "" {
		loaded, err := knowledge.Load(knowledgePath)
		if err != nil {
			return fmt.Errorf("load knowledge base: %w", err)
		}
		kb = loaded
	}

	a := analyzer.New(kb, outputPath)
	ctx := cmd.Context()

	var summary *analyzer.RunSummary
	var err error
	switch {
	case !multiple:
		summary, err = a.AnalyzeSingle(ctx, inputPath)
	case parallel:
		summary, err = a.AnalyzeProjectsParallel(ctx, inputPath, maxWalkers, resume)
	default:
		summary, err = a.AnalyzeProjectsSequential(ctx, inputPath, resume)
	}
	if err != nil {
		return err
	}

	if multiple {
		if _, err := a.MergeAllResults(); err != nil {
			return err
		}
	}

	printSummary(cmd, summary, a.OutputDir())
	// Per-file parse failures are reported, not fatal: the scan still
	// exits zero.
	return nil
}

func printSummary(cmd *cobra.Command, s *analyzer.RunSummary, outputDir string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Analyzed %d project(s), %d file(s): %d smell(s) found in %s.\n",
		s.ProjectsAnalyzed, s.FilesAnalyzed, s.SmellCount, s.Elapsed.Round(time.Millisecond))
	if s.ProjectsSkipped > 0 {
		fmt.Fprintf(out, "Skipped %d project(s) already completed in a previous run.\n", s.ProjectsSkipped)
	}
	if s.ProjectsFailed > 0 {
		fmt.Fprintf(out, "%d project(s) failed and were not logged; re-run with --resume to retry them.\n", s.ProjectsFailed)
	}
	if s.ParseFailures > 0 {
		fmt.Fprintf(out, "Skipped %d file(s) that failed to parse; see %s.\n",
			s.ParseFailures, outputDir+string(os.PathSeparator)+analyzer.ErrorLogName)
	}
	fmt.Fprintf(out, "Results written to %s.\n", outputDir)
}
