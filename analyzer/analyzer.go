// Package analyzer discovers Python projects, drives the inspector over
// their files sequentially or across a bounded worker pool, persists
// per-project results, and maintains the resume log.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mlscent/mlscent/inspector"
	"github.com/mlscent/mlscent/knowledge"
	"github.com/mlscent/mlscent/report"
	"github.com/mlscent/mlscent/smells"
)

const (
	// OutputDirName is the subdirectory of the output root holding all
	// analysis artifacts.
	OutputDirName = "output"

	// DetailsDirName holds the per-project result files inside the output
	// directory.
	DetailsDirName = "project_details"

	// ErrorLogName records per-file parse failures inside the output
	// directory.
	ErrorLogName = "error.txt"
)

// Analyzer orchestrates project scans.
//
// Description:
//
//	Analyzer drives the inspector over one project or a directory of
//	projects, persists per-project result files, maintains the resume log,
//	and merges the per-project files into the overview report.
//
// Thread Safety:
//
//	Safe for concurrent use by the worker pool. Per-project state is local
//	to each call; the error log is the only shared file and its appends are
//	guarded by a lock.
type Analyzer struct {
	insp       *inspector.Inspector
	outputDir  string
	detailsDir string

	errMu sync.Mutex
}

// New builds an analyzer writing its artifacts under outputRoot/output.
func New(kb *knowledge.Base, outputRoot string) *Analyzer {
	outputDir := filepath.Join(outputRoot, OutputDirName)
	return &Analyzer{
		insp:       inspector.New(kb),
		outputDir:  outputDir,
		detailsDir: filepath.Join(outputDir, DetailsDirName),
	}
}

// OutputDir returns the directory analysis artifacts are written to.
func (a *Analyzer) OutputDir() string {
	return a.outputDir
}

// CleanOutput removes previous analysis artifacts and recreates the output
// directory tree.
func (a *Analyzer) CleanOutput() error {
	if err := os.RemoveAll(a.outputDir); err != nil {
		return fmt.Errorf("clean output directory: %w", err)
	}
	return a.ensureOutputDirs()
}

func (a *Analyzer) ensureOutputDirs() error {
	if err := os.MkdirAll(a.detailsDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// ProjectResult is the outcome of scanning one project.
type ProjectResult struct {
	Name          string
	Findings      []smells.Finding
	FilesAnalyzed int
	ParseFailures int
}

// SmellCount returns the number of findings in the project.
func (r *ProjectResult) SmellCount() int {
	return len(r.Findings)
}

// AnalyzeProject scans every Python file of one project in directory-listing
// order. A file that fails to parse is recorded in the error log and
// skipped; it never fails the project. Cancellation is surfaced as an error
// since a partially scanned project must not be logged as complete.
func (a *Analyzer) AnalyzeProject(ctx context.Context, projectPath string) (*ProjectResult, error) {
	res := &ProjectResult{Name: filepath.Base(filepath.Clean(projectPath))}

	files, err := PythonFiles(projectPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPythonFiles, projectPath)
	}

	slog.Info("analyzing project", "project", res.Name, "files", len(files))

	for _, file := range files {
		table, err := a.insp.Inspect(ctx, file)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("project %s canceled: %w", res.Name, ctx.Err())
			}
			res.ParseFailures++
			a.recordFileError(file, err)
			continue
		}
		res.FilesAnalyzed++
		if table.Len() > 0 {
			slog.Info("smells found", "project", res.Name, "file", file, "count", table.Len())
		}
		res.Findings = append(res.Findings, table.Rows()...)
	}
	return res, nil
}

// recordFileError appends a parse failure to the shared error log.
func (a *Analyzer) recordFileError(file string, inspectErr error) {
	a.errMu.Lock()
	defer a.errMu.Unlock()

	slog.Warn("file analysis failed", "file", file, "error", inspectErr)

	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		slog.Error("cannot create output directory for error log", "error", err)
		return
	}
	f, err := os.OpenFile(filepath.Join(a.outputDir, ErrorLogName), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		slog.Error("cannot open error log", "error", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "Error in file %s: %v\n", file, inspectErr)
}

// RunSummary aggregates one multi-project run.
type RunSummary struct {
	RunID            string
	ProjectsAnalyzed int
	ProjectsSkipped  int
	ProjectsFailed   int
	FilesAnalyzed    int
	ParseFailures    int
	SmellCount       int
	Elapsed          time.Duration
}

// AnalyzeSingle scans one project and writes its findings straight to
// output/overview.csv.
func (a *Analyzer) AnalyzeSingle(ctx context.Context, projectPath string) (*RunSummary, error) {
	summary := &RunSummary{RunID: uuid.NewString()}
	start := time.Now()

	if err := a.CleanOutput(); err != nil {
		return nil, err
	}

	res, err := a.AnalyzeProject(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	if err := a.writeWithRetry(filepath.Join(a.outputDir, report.OverviewName), res.Findings); err != nil {
		return nil, err
	}

	summary.ProjectsAnalyzed = 1
	summary.FilesAnalyzed = res.FilesAnalyzed
	summary.ParseFailures = res.ParseFailures
	summary.SmellCount = res.SmellCount()
	summary.Elapsed = time.Since(start)

	slog.Info("analysis complete",
		"run_id", summary.RunID,
		"project", res.Name,
		"files", summary.FilesAnalyzed,
		"parse_failures", summary.ParseFailures,
		"smells", summary.SmellCount,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// AnalyzeProjectsSequential scans every project directory under basePath one
// at a time, in listing order.
func (a *Analyzer) AnalyzeProjectsSequential(ctx context.Context, basePath string, resume bool) (*RunSummary, error) {
	log, projects, err := a.prepareRun(basePath, resume)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{RunID: uuid.NewString()}
	start := time.Now()

	for _, name := range projects {
		if resume && log.Completed(name) {
			summary.ProjectsSkipped++
			slog.Info("project already completed, skipping", "run_id", summary.RunID, "project", name)
			continue
		}
		res, err := a.runProject(ctx, basePath, name, log)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			summary.ProjectsFailed++
			slog.Error("project analysis failed", "run_id", summary.RunID, "project", name, "error", err)
			continue
		}
		summary.accumulate(res)
	}

	summary.Elapsed = time.Since(start)
	a.logRun("sequential", summary)
	return summary, nil
}

// AnalyzeProjectsParallel scans the project directories under basePath with
// a bounded pool of maxWalkers workers, each owning whole projects. A failed
// project never aborts its siblings; completion order is non-deterministic
// and the merge step must not rely on log order.
func (a *Analyzer) AnalyzeProjectsParallel(ctx context.Context, basePath string, maxWalkers int, resume bool) (*RunSummary, error) {
	if maxWalkers < 1 {
		maxWalkers = 1
	}
	log, projects, err := a.prepareRun(basePath, resume)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{RunID: uuid.NewString()}
	start := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWalkers)

	for _, name := range projects {
		if resume && log.Completed(name) {
			summary.ProjectsSkipped++
			slog.Info("project already completed, skipping", "run_id", summary.RunID, "project", name)
			continue
		}
		name := name
		g.Go(func() error {
			res, err := a.runProject(gctx, basePath, name, log)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				summary.ProjectsFailed++
				slog.Error("project analysis failed", "run_id", summary.RunID, "project", name, "error", err)
				return nil
			}
			summary.accumulate(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(start)
	a.logRun("parallel", summary)
	return summary, nil
}

// MergeAllResults concatenates every per-project result file into
// output/overview.csv.
func (a *Analyzer) MergeAllResults() ([]smells.Finding, error) {
	if err := a.ensureOutputDirs(); err != nil {
		return nil, err
	}
	return report.Merge(a.detailsDir, filepath.Join(a.outputDir, report.OverviewName))
}

// prepareRun opens the resume log, resets state for fresh runs, and lists
// the candidate project directories in name order.
func (a *Analyzer) prepareRun(basePath string, resume bool) (*ProgressLog, []string, error) {
	log, err := OpenProgressLog(filepath.Join(basePath, ProgressLogName))
	if err != nil {
		return nil, nil, err
	}
	if resume {
		if err := a.ensureOutputDirs(); err != nil {
			return nil, nil, err
		}
	} else {
		if err := log.Reset(); err != nil {
			return nil, nil, err
		}
		if err := a.CleanOutput(); err != nil {
			return nil, nil, err
		}
	}

	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read projects directory: %w", err)
	}
	var projects []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == OutputDirName || e.Name() == ProgressLogName {
			continue
		}
		projects = append(projects, e.Name())
	}
	return log, projects, nil
}

// runProject scans one project, persists its result file, and logs it as
// completed. The project is logged only after the result file is fully
// written, so a crash mid-write leaves it unlogged and a resumed run
// retries it.
func (a *Analyzer) runProject(ctx context.Context, basePath, name string, log *ProgressLog) (*ProjectResult, error) {
	res, err := a.AnalyzeProject(ctx, filepath.Join(basePath, name))
	if err != nil {
		return nil, err
	}

	if len(res.Findings) > 0 {
		path := filepath.Join(a.detailsDir, name+"_results.csv")
		if err := a.writeWithRetry(path, res.Findings); err != nil {
			return nil, err
		}
		slog.Info("project results saved", "project", name, "path", path)
	}

	if err := log.Append(name); err != nil {
		return nil, err
	}
	slog.Info("project complete", "project", name, "smells", res.SmellCount(),
		"files", res.FilesAnalyzed, "parse_failures", res.ParseFailures)
	return res, nil
}

// writeWithRetry writes a result file, retrying once on failure.
func (a *Analyzer) writeWithRetry(path string, rows []smells.Finding) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrResultWrite, err)
	}
	err := report.Write(path, rows)
	if err == nil {
		return nil
	}
	slog.Warn("result write failed, retrying once", "path", path, "error", err)
	if err := report.Write(path, rows); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrResultWrite, path, err)
	}
	return nil
}

func (s *RunSummary) accumulate(res *ProjectResult) {
	s.ProjectsAnalyzed++
	s.FilesAnalyzed += res.FilesAnalyzed
	s.ParseFailures += res.ParseFailures
	s.SmellCount += res.SmellCount()
}

func (a *Analyzer) logRun(mode string, s *RunSummary) {
	slog.Info(mode+" run complete",
		"run_id", s.RunID,
		"projects", s.ProjectsAnalyzed,
		"skipped", s.ProjectsSkipped,
		"failed", s.ProjectsFailed,
		"files", s.FilesAnalyzed,
		"parse_failures", s.ParseFailures,
		"smells", s.SmellCount,
		"elapsed", s.Elapsed)
}
