package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileWriter writes reports atomically: the content goes to a temporary file
// in the target directory which is then renamed over the report. Writes to the
// same report path are serialized.
type FileWriter struct {
	locks sync.Map
}

// NewFileWriter returns a ready FileWriter.
func NewFileWriter() *FileWriter {
	return &FileWriter{}
}

// Write stores content as dir/filename and returns the written path.
func (w *FileWriter) Write(dir, filename string, content []byte) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid report filename %q", filename)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, filename)

	mu, _ := w.locks.LoadOrStore(path, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, "."+filename+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary report: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}
	return path, nil
}
