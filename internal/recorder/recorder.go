// Package recorder appends canonical events to an hourly-rotated,
// append-only binary log on disk.
package recorder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"marketdata-pipeline/internal/event"
	"marketdata-pipeline/internal/logging"
	"marketdata-pipeline/internal/xerrors"
)

// Recorder owns a single output file at a time and rotates to a new one
// every RotationFreq wall-clock duration, measured from the first write
// into the current file. It is not safe for concurrent use — the pipeline
// runs one recorder goroutine per process, matching the single-consumer
// handoff the rest of the ingest pipeline feeds into.
type Recorder struct {
	Dir          string
	RotationFreq time.Duration

	file     *os.File
	writer   *bufio.Writer
	openedAt time.Time
	closed   bool
	log      *logging.Logger
}

// New builds a Recorder writing rotated files into dir.
func New(dir string, rotationFreq time.Duration) *Recorder {
	return &Recorder{
		Dir:          dir,
		RotationFreq: rotationFreq,
		log:          logging.Default().WithComponent("recorder"),
	}
}

// Write appends e to the current file, rotating first if RotationFreq has
// elapsed since the current file was opened or no file is open yet. A
// write error is fatal to the recorder: the caller should treat it as
// fatal to the pipeline, per the persistence-error class.
func (r *Recorder) Write(e event.Event) error {
	if r.closed {
		return xerrors.ErrRecorderClosed
	}
	if err := r.rotateIfNeeded(); err != nil {
		return err
	}
	if err := e.Encode(r.writer); err != nil {
		return fmt.Errorf("recorder: write event: %w", err)
	}
	return nil
}

// Flush flushes any buffered bytes to the underlying file without
// rotating.
func (r *Recorder) Flush() error {
	if r.closed {
		return xerrors.ErrRecorderClosed
	}
	if r.writer == nil {
		return nil
	}
	if err := r.writer.Flush(); err != nil {
		return fmt.Errorf("recorder: flush: %w", err)
	}
	return nil
}

// Close flushes and closes the current file, if any. A Recorder is not
// reusable after Close.
func (r *Recorder) Close() error {
	defer func() { r.closed = true }()
	return r.closeCurrentFile()
}

func (r *Recorder) closeCurrentFile() error {
	if r.file == nil {
		return nil
	}
	if r.writer != nil {
		if err := r.writer.Flush(); err != nil {
			return fmt.Errorf("recorder: flush: %w", err)
		}
	}
	err := r.file.Close()
	r.file = nil
	r.writer = nil
	if err != nil {
		return fmt.Errorf("recorder: close: %w", err)
	}
	return nil
}

func (r *Recorder) rotateIfNeeded() error {
	if r.file != nil && time.Since(r.openedAt) < r.RotationFreq {
		return nil
	}
	if err := r.closeCurrentFile(); err != nil {
		return err
	}
	return r.openNewFile()
}

func (r *Recorder) openNewFile() error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("recorder: create output directory %s: %w", r.Dir, err)
	}

	name := time.Now().UTC().Format("02-01-2006 15-04-05") + ".bin"
	path := filepath.Join(r.Dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("recorder: open %s: %w", path, err)
	}

	r.file = f
	r.writer = bufio.NewWriter(f)
	r.openedAt = time.Now()
	r.log.WithField("path", path).Info("opened new log file")
	return nil
}
