package filehandler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/formatter"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/internal/status"
)

// ErrNoFilename is returned by NewFileHandler without FileConfig.Filename.
var ErrNoFilename = errors.New("filehandler: filename is required")

// sizeTrackingWriter wraps an io.Writer and tracks total bytes written
type sizeTrackingWriter struct {
	w       io.Writer
	written int64
}

func (s *sizeTrackingWriter) Write(p []byte) (n int, err error) {
	n, err = s.w.Write(p)
	s.written += int64(n)
	return
}

func (s *sizeTrackingWriter) reset(w io.Writer) {
	s.w = w
	s.written = 0
}

// FileConfig holds configuration for file handler
type FileConfig struct {
	// Filename is the path to the log file
	Filename string
	// Formatter to use (default: TextFormatter)
	Formatter formatter.Formatter
	// Async puts an async pipeline in front of the file (default: false)
	Async bool
	// BufferSize is the ring capacity of the async pipeline, rounded up to a
	// power of two (default: 1024)
	BufferSize int
	// Policy runs when the async ring is full (default: drop below ERROR,
	// block ERROR and FATAL for BlockTimeout, then write synchronously)
	Policy handler.QueueFullPolicy
	// BlockTimeout is the timeout for the default policy (default: 100ms)
	BlockTimeout time.Duration
	// DrainTimeout is the timeout for draining queue on Close (default: 5s)
	DrainTimeout time.Duration
	// MaxSize is the maximum size in bytes before rotation (0 = no size rotation)
	MaxSize int64
	// MaxAge is the maximum age before rotation (0 = no time rotation)
	MaxAge time.Duration
	// MaxBackups is the maximum number of old log files to retain (0 = keep all)
	MaxBackups int
	// RotateInterval is the interval for time-based rotation (0 = no interval rotation)
	RotateInterval time.Duration
	// Compress zstd-compresses rotated backups into <backup>.zst
	Compress bool
	// WatchRotation reopens the file when another process renames or
	// removes it, as logrotate does
	WatchRotation bool
	// BufferBytes is the size of the write buffer (default: 4096)
	BufferBytes int
}

// applyFileDefaults fills in zero-value fields with defaults.
func applyFileDefaults(cfg *FileConfig) {
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewTextFormatter(formatter.Config{})
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 100 * time.Millisecond
	}
	if cfg.BufferBytes <= 0 {
		cfg.BufferBytes = 4096
	}
}

// FileHandler writes formatted entries to a buffered file and rotates it by
// size, age or interval. Output reaches the file on Flush, Close, rotation,
// or when the write buffer fills.
type FileHandler struct {
	filename        string
	file            *os.File
	bufWriter       *bufio.Writer
	sizeWriter      *sizeTrackingWriter
	formatter       formatter.Formatter
	writerFormatter formatter.WriterFormatter
	bufferFormatter formatter.BufferFormatter
	mu              sync.Mutex
	syncBuf         bytes.Buffer
	maxSize         int64
	maxAge          time.Duration
	maxBackups      int
	rotateInterval  time.Duration
	compress        bool
	currentSize     int64
	lastRotateTime  time.Time
	hasRotation     bool
	stats           *handler.Stats
	log             *zap.Logger
	watcher         *watcher
	closeOnce       sync.Once
	closeErr        error
}

// NewFileHandler opens cfg.Filename for appending, creating its directory.
// With Async set the returned handler is a started *asynchandler.Pipeline
// in front of a *FileHandler; otherwise it is the *FileHandler itself.
func NewFileHandler(cfg FileConfig) (handler.Handler, error) {
	h, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Async {
		return newAsyncFileHandler(h, cfg)
	}
	return h, nil
}

// Open creates a synchronous FileHandler.
func Open(cfg FileConfig) (*FileHandler, error) {
	if cfg.Filename == "" {
		return nil, ErrNoFilename
	}
	applyFileDefaults(&cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0755); err != nil {
		return nil, err
	}
	file, size, err := openAppend(cfg.Filename)
	if err != nil {
		return nil, err
	}

	sw := &sizeTrackingWriter{w: file}
	h := &FileHandler{
		filename:       cfg.Filename,
		file:           file,
		sizeWriter:     sw,
		bufWriter:      bufio.NewWriterSize(sw, cfg.BufferBytes),
		formatter:      cfg.Formatter,
		maxSize:        cfg.MaxSize,
		maxAge:         cfg.MaxAge,
		maxBackups:     cfg.MaxBackups,
		rotateInterval: cfg.RotateInterval,
		compress:       cfg.Compress,
		currentSize:    size,
		lastRotateTime: time.Now(),
		hasRotation:    cfg.MaxSize > 0 || cfg.MaxAge > 0 || cfg.RotateInterval > 0,
		stats:          handler.NewStats(),
		log:            status.For("file").With(zap.String("filename", cfg.Filename)),
	}

	// Cache WriterFormatter for zero-alloc path
	h.writerFormatter, _ = cfg.Formatter.(formatter.WriterFormatter)

	// Cache BufferFormatter for the handler-owned buffer path
	h.bufferFormatter, _ = cfg.Formatter.(formatter.BufferFormatter)
	if h.bufferFormatter != nil {
		h.syncBuf.Grow(256)
	}

	if cfg.WatchRotation {
		w, err := newWatcher(h)
		if err != nil {
			return nil, multierr.Append(err, file.Close())
		}
		h.watcher = w
	}
	return h, nil
}

func openAppend(name string) (*os.File, int64, error) {
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		return nil, 0, multierr.Append(err, file.Close())
	}
	return file, info.Size(), nil
}

// Handle formats and buffers an entry, rotating first when due.
func (h *FileHandler) Handle(entry *core.Entry) error {
	// BufferFormatter fast path: format into handler-owned buffer, write to bufio.Writer.
	if h.bufferFormatter != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		if err := h.prepare(); err != nil {
			return err
		}
		h.syncBuf.Reset()
		h.bufferFormatter.FormatEntry(entry, &h.syncBuf)
		n, err := h.bufWriter.Write(h.syncBuf.Bytes())
		return h.account(int64(n), err)
	}

	if h.writerFormatter != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		if err := h.prepare(); err != nil {
			return err
		}
		prevFlushed := h.sizeWriter.written
		prevBuffered := h.bufWriter.Buffered()
		err := h.writerFormatter.FormatTo(entry, h.bufWriter)
		written := (h.sizeWriter.written - prevFlushed) + int64(h.bufWriter.Buffered()-prevBuffered)
		return h.account(written, err)
	}

	data, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.prepare(); err != nil {
		return err
	}
	n, err := h.bufWriter.Write(data)
	return h.account(int64(n), err)
}

func (h *FileHandler) account(n int64, err error) error {
	if err != nil {
		return err
	}
	h.currentSize += n
	h.stats.IncrementProcessed()
	return nil
}

// prepare fails on a closed handler and rotates when due.
func (h *FileHandler) prepare() error {
	if h.file == nil {
		return os.ErrClosed
	}
	if !h.hasRotation {
		return nil
	}
	due := h.maxSize > 0 && h.currentSize >= h.maxSize
	if h.maxAge > 0 && time.Since(h.lastRotateTime) >= h.maxAge {
		due = true
	}
	if h.rotateInterval > 0 && time.Since(h.lastRotateTime) >= h.rotateInterval {
		due = true
	}
	if !due {
		return nil
	}
	return h.rotate()
}

// Rotate moves the current file to a timestamped backup and starts a new one.
func (h *FileHandler) Rotate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return os.ErrClosed
	}
	return h.rotate()
}

func (h *FileHandler) rotate() error {
	if err := h.closeCurrent(); err != nil {
		return err
	}

	backup := h.backupName(time.Now())
	if err := os.Rename(h.filename, backup); err != nil {
		// Keep logging to the original file.
		if openErr := h.reopenLocked(); openErr != nil {
			return fmt.Errorf("rotation failed: %w, reopen failed: %w", err, openErr)
		}
		return err
	}

	if err := h.reopenLocked(); err != nil {
		return err
	}
	h.currentSize = 0
	h.lastRotateTime = time.Now()

	if h.compress {
		if err := compressFile(backup); err != nil {
			h.log.Warn("compress backup failed", zap.String("backup", backup), zap.Error(err))
		}
	}
	if h.maxBackups > 0 {
		h.cleanupOldBackups()
	}
	h.log.Debug("rotated", zap.String("backup", backup))
	return nil
}

// backupName returns a free <filename>.<timestamp>[-n] path.
func (h *FileHandler) backupName(now time.Time) string {
	base := fmt.Sprintf("%s.%s", h.filename, now.Format("2006-01-02T15-04-05.000"))
	name := base
	for i := 1; exists(name) || exists(name+zstdExt); i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return name
}

func exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// closeCurrent flushes, syncs and closes the open file.
func (h *FileHandler) closeCurrent() error {
	if h.file == nil {
		return nil
	}
	err := h.bufWriter.Flush()
	err = multierr.Append(err, h.file.Sync())
	err = multierr.Append(err, h.file.Close())
	h.file = nil
	return err
}

func (h *FileHandler) reopenLocked() error {
	file, size, err := openAppend(h.filename)
	if err != nil {
		return err
	}
	h.file = file
	h.sizeWriter.reset(file)
	h.bufWriter.Reset(h.sizeWriter)
	h.currentSize = size
	return nil
}

// Reopen closes the current file and opens Filename again. It is used
// after an external tool moved the file away.
func (h *FileHandler) Reopen() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return os.ErrClosed
	}
	err := h.closeCurrent()
	return multierr.Append(err, h.reopenLocked())
}

// reopenIfMoved reopens when Filename no longer names the open file.
func (h *FileHandler) reopenIfMoved() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return nil
	}
	if cur, err := h.file.Stat(); err == nil {
		if onDisk, err := os.Stat(h.filename); err == nil && os.SameFile(cur, onDisk) {
			return nil
		}
	}
	err := h.closeCurrent()
	return multierr.Append(err, h.reopenLocked())
}

// backups returns rotated files of Filename, oldest first.
func (h *FileHandler) backups() []string {
	dir := filepath.Dir(h.filename)
	base := filepath.Base(h.filename)
	matches, err := filepath.Glob(filepath.Join(dir, base+".*"))
	if err != nil {
		return nil
	}

	type backup struct {
		name string
		mod  time.Time
	}
	var list []backup
	for _, m := range matches {
		if !strings.HasPrefix(filepath.Base(m), base+".") {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		list = append(list, backup{m, info.ModTime()})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].mod.Equal(list[j].mod) {
			return list[i].name < list[j].name
		}
		return list[i].mod.Before(list[j].mod)
	})

	names := make([]string, len(list))
	for i, b := range list {
		names[i] = b.name
	}
	return names
}

// cleanupOldBackups removes old backup files based on MaxBackups
func (h *FileHandler) cleanupOldBackups() {
	backups := h.backups()
	if len(backups) <= h.maxBackups {
		return
	}
	for _, name := range backups[:len(backups)-h.maxBackups] {
		if err := os.Remove(name); err != nil {
			h.log.Warn("remove backup failed", zap.String("backup", name), zap.Error(err))
			return
		}
	}
}

// Flush writes buffered output to the file.
func (h *FileHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return nil
	}
	return h.bufWriter.Flush()
}

// CanRecycleEntry returns true because entries are formatted before Handle
// returns.
func (h *FileHandler) CanRecycleEntry() bool {
	return true
}

// Name identifies the handler in diagnostics.
func (h *FileHandler) Name() string { return "file" }

// Filename returns the path being written.
func (h *FileHandler) Filename() string { return h.filename }

// Stats returns a snapshot of the current statistics
func (h *FileHandler) Stats() handler.Snapshot {
	return h.stats.GetSnapshot()
}

// Close stops the rotation watcher, then flushes, syncs and closes the file.
// It is idempotent.
func (h *FileHandler) Close() error {
	h.closeOnce.Do(func() {
		if h.watcher != nil {
			h.closeErr = h.watcher.close()
		}
		h.mu.Lock()
		h.closeErr = multierr.Append(h.closeErr, h.closeCurrent())
		h.mu.Unlock()
	})
	return h.closeErr
}
