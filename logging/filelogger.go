package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
)

// RunDirectoryPrefix is the standardized prefix for per-run log directories.
const RunDirectoryPrefix = "testrun-"

// FileLogger captures worker output into one log file per worker under a
// per-run directory. Lines are stripped of ANSI escapes before writing so the
// files stay grep-friendly.
type FileLogger struct {
	runDir string

	mu    sync.Mutex
	files map[int]*os.File
	err   error
}

// NewFileLogger creates the run directory under baseDir and returns a logger
// for it.
func NewFileLogger(baseDir, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID is required")
	}
	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", runDir, err)
	}
	return &FileLogger{
		runDir: runDir,
		files:  make(map[int]*os.File),
	}, nil
}

// RunDir returns the directory logs are written to.
func (l *FileLogger) RunDir() string {
	return l.runDir
}

// Append writes one line of worker output, timestamped, to the worker's log
// file. Write failures are sticky; once a file errors, subsequent appends for
// the run become no-ops rather than spamming errors per line.
func (l *FileLogger) Append(workerID int, line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}

	f, ok := l.files[workerID]
	if !ok {
		var err error
		f, err = os.Create(filepath.Join(l.runDir, fmt.Sprintf("worker-%d.log", workerID)))
		if err != nil {
			l.err = err
			return
		}
		l.files[workerID] = f
	}

	clean := stripansi.Strip(line)
	if _, err := fmt.Fprintf(f, "%s %s\n", time.Now().Format(time.RFC3339), clean); err != nil {
		l.err = err
	}
}

// Close flushes and closes all worker log files.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = make(map[int]*os.File)
	if firstErr == nil {
		firstErr = l.err
	}
	return firstErr
}
