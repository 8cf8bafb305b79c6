// Package report serializes finding tables to CSV and merges per-project
// result files into one overview.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/mlscent/mlscent/smells"
)

// Header is the column layout of every result file.
var Header = []string{"file_name", "function_name", "smell_name", "line_number", "description", "additional_info"}

// OverviewName is the file name of the merged cross-project report.
const OverviewName = "overview.csv"

// Write serializes the findings to path, header first, rows in table order.
func Write(path string, rows []smells.Finding) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write result header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.FileName,
			r.FunctionName,
			r.SmellName,
			strconv.Itoa(r.Line),
			r.Description,
			r.AdditionalInfo,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write result row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush result file: %w", err)
	}
	return nil
}

// Read loads a result file back into finding rows, skipping the header.
func Read(path string) ([]smells.Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open result file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read result file %s: %w", path, err)
	}

	var rows []smells.Finding
	for i, rec := range records {
		if i == 0 {
			continue
		}
		line, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("result file %s row %d: bad line number %q", path, i, rec[3])
		}
		rows = append(rows, smells.Finding{
			FileName:       rec[0],
			FunctionName:   rec[1],
			SmellName:      rec[2],
			Line:           line,
			Description:    rec[4],
			AdditionalInfo: rec[5],
		})
	}
	return rows, nil
}

// Merge concatenates every per-project CSV under inputDir into one overview
// file at outputPath and returns the merged rows. Input files are taken in
// name order so the merge does not depend on project completion order.
func Merge(inputDir, outputPath string) ([]smells.Finding, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read results directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".csv" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var merged []smells.Finding
	for _, name := range names {
		rows, err := Read(filepath.Join(inputDir, name))
		if err != nil {
			return nil, err
		}
		merged = append(merged, rows...)
	}

	if err := Write(outputPath, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
