// Command mlscent scans Python codebases for machine-learning specific code
// smells and writes CSV reports.
//
// Usage:
//
//	mlscent scan --input ./project --output ./results
//	mlscent scan --input ./projects --output ./results --multiple --parallel --max_walkers 8
//	mlscent scan --input ./projects --output ./results --multiple --resume
package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// initLogging installs the process-wide logger: human-readable text on a
// terminal, JSON when output is redirected.
func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
