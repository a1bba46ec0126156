package logtrace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFileWriter is an io.Writer that appends to <dir>/<prefix>-YYYY-MM-DD.log and
// switches to a new file when the local date changes. Files are never truncated.
type DailyFileWriter struct {
	mu     sync.Mutex
	dir    string
	prefix string
	day    string
	file   *os.File
	now    func() time.Time
}

// NewDailyFileWriter creates dir if needed and opens the file for the current day.
func NewDailyFileWriter(dir, prefix string) (*DailyFileWriter, error) {
	return newDailyFileWriter(dir, prefix, time.Now)
}

func newDailyFileWriter(dir, prefix string, now func() time.Time) (*DailyFileWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	w := &DailyFileWriter{
		dir:    dir,
		prefix: prefix,
		now:    now,
	}
	if err := w.rotate(w.now().Format(time.DateOnly)); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer.
func (w *DailyFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if day := w.now().Format(time.DateOnly); day != w.day || w.file == nil {
		if err := w.rotate(day); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

// Path returns the path of the file currently written to.
func (w *DailyFileWriter) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pathFor(w.day)
}

// Close closes the current file.
func (w *DailyFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *DailyFileWriter) pathFor(day string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.prefix, day))
}

// rotate must be called with mu held.
func (w *DailyFileWriter) rotate(day string) error {
	f, err := os.OpenFile(w.pathFor(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	if w.file != nil {
		w.file.Close()
	}
	w.file = f
	w.day = day
	return nil
}
