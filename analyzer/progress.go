package analyzer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ProgressLogName is the resume log file kept in the input base directory.
const ProgressLogName = "execution_log.txt"

// ProgressLog is the durable record of fully-completed projects: a plain
// append-only text file, one project name per line. The whole file is read
// into a skip-set at open; appends are serialized under a lock and a name is
// never written twice.
type ProgressLog struct {
	path string

	mu   sync.Mutex
	done map[string]bool
}

// OpenProgressLog reads the log at path, creating an empty one if absent.
func OpenProgressLog(path string) (*ProgressLog, error) {
	l := &ProgressLog{path: path, done: make(map[string]bool)}

	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open progress log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			l.done[name] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read progress log: %w", err)
	}
	return l, nil
}

// Completed reports whether the project is already logged.
func (l *ProgressLog) Completed(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done[name]
}

// Count returns the number of logged projects.
func (l *ProgressLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.done)
}

// Append durably records a completed project. Appending an already-logged
// name is a no-op, preserving the log's no-duplicates invariant.
func (l *ProgressLog) Append(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done[name] {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open progress log for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(name + "\n"); err != nil {
		return fmt.Errorf("append to progress log: %w", err)
	}
	l.done[name] = true
	return nil
}

// Reset truncates the log and clears the skip-set.
func (l *ProgressLog) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.WriteFile(l.path, nil, 0o644); err != nil {
		return fmt.Errorf("reset progress log: %w", err)
	}
	l.done = make(map[string]bool)
	return nil
}
