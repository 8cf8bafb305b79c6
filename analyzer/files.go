package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Directories never descended into during file discovery. Virtual
// environments and vendored libs dwarf the project's own code.
var skipDirs = map[string]bool{"venv": true, "lib": true}

// PythonFiles returns the Python source files under root in lexical walk
// order. A root that is itself a .py file is returned as-is. Hidden
// directories are skipped.
func PythonFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat project path: %w", err)
	}
	if !info.IsDir() {
		if strings.HasSuffix(root, ".py") {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".py") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk project %s: %w", root, err)
	}
	return files, nil
}
