package consolehandler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/formatter"
	"github.com/philipp01105/ringlog/handler"
)

// lockedWriter wraps an io.Writer with a mutex, acquiring the lock only
// for Write calls. Formatters prepare data in their own pooled buffers
// and call Write once, so the lock is held only during the actual I/O.
// Uses the handler's main mu to serialize all writes.
type lockedWriter struct {
	mu *sync.Mutex // points to handler's mu
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (n int, err error) {
	lw.mu.Lock()
	n, err = lw.w.Write(p)
	lw.mu.Unlock()
	return
}

// isConcurrentSafeWriter returns true if the writer is known to be safe for
// concurrent Write calls, allowing the handler to skip write-level locking.
func isConcurrentSafeWriter(w io.Writer) bool {
	if w == io.Discard {
		return true
	}
	_, ok := w.(*os.File)
	return ok
}

// ColorMode controls ANSI colours in the default text formatter.
type ColorMode uint8

const (
	// ColorAuto colours output written to a terminal unless NO_COLOR is set.
	ColorAuto ColorMode = iota
	// ColorAlways always colours.
	ColorAlways
	// ColorNever never colours.
	ColorNever
)

func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

// ParseColorMode converts "auto", "always" or "never".
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "always", "force":
		return ColorAlways, nil
	case "never", "none":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("unknown color mode %q", s)
	}
}

// ShouldColor resolves mode for w.
func ShouldColor(w io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isTerminal(w)
}

// ConsoleConfig holds configuration for console handler
type ConsoleConfig struct {
	// Writer to write to (default: os.Stdout)
	Writer io.Writer
	// Formatter to use (default: TextFormatter, coloured per Color)
	Formatter formatter.Formatter
	// Color selects colours for the default formatter (default: ColorAuto)
	Color ColorMode
	// Async puts an async pipeline in front of the handler (default: false)
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
	// ConcurrentWriter indicates the Writer supports concurrent Write calls.
	// When true, the handler skips write-level locking for parallel log entries,
	// significantly improving parallel throughput. Automatically detected for
	// io.Discard and *os.File; set true for other goroutine-safe writers.
	ConcurrentWriter bool
}

// applyConsoleDefaults fills in zero-value fields with defaults.
func applyConsoleDefaults(cfg *ConsoleConfig) {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewTextFormatter(formatter.Config{
			Colors: ShouldColor(cfg.Writer, cfg.Color),
		})
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 100 * time.Millisecond
	}
}

// ConsoleHandler writes formatted entries to an io.Writer on the calling
// goroutine. Under no contention it formats into a handler-owned buffer;
// parallel callers format into pooled buffers outside the lock.
type ConsoleHandler struct {
	writer          io.Writer
	formatter       formatter.Formatter
	writerFormatter formatter.WriterFormatter
	bufferFormatter formatter.BufferFormatter
	concurrentSafe  bool // true if writer is safe for concurrent Write calls
	stats           *handler.Stats
	mu              sync.Mutex // protects syncBuf and writer (single lock)
	lw              lockedWriter
	syncBuf         bytes.Buffer
	parBufPool      sync.Pool
	closed          chan struct{}
}

// NewConsoleHandler creates a new console handler. With Async set the
// returned handler is a started *asynchandler.Pipeline in front of a
// *ConsoleHandler; otherwise it is the *ConsoleHandler itself.
func NewConsoleHandler(cfg ConsoleConfig) handler.Handler {
	applyConsoleDefaults(&cfg)
	h := newConsoleHandler(cfg)
	if cfg.Async {
		return newAsyncConsoleHandler(h, cfg)
	}
	return h
}

func newConsoleHandler(cfg ConsoleConfig) *ConsoleHandler {
	h := &ConsoleHandler{
		writer:         cfg.Writer,
		formatter:      cfg.Formatter,
		concurrentSafe: cfg.ConcurrentWriter || isConcurrentSafeWriter(cfg.Writer),
		stats:          handler.NewStats(),
		closed:         make(chan struct{}),
	}

	// Cache WriterFormatter for zero-alloc path
	h.writerFormatter, _ = cfg.Formatter.(formatter.WriterFormatter)

	// Cache BufferFormatter for sync fast path (avoids buffer pool + lockedWriter)
	h.bufferFormatter, _ = cfg.Formatter.(formatter.BufferFormatter)

	// Pre-allocate lockedWriter for lock-minimal write path
	h.lw = lockedWriter{mu: &h.mu, w: h.writer}

	if h.bufferFormatter != nil {
		h.syncBuf.Grow(256)
		h.parBufPool = sync.Pool{
			New: func() interface{} {
				b := new(bytes.Buffer)
				b.Grow(256)
				return b
			},
		}
	}
	return h
}

// Handle formats and writes an entry.
// Uses TryLock on mu to access handler-owned buffer when uncontended (zero pool
// overhead). When contended and bufferFormatter is available, formats into a
// pooled buffer outside the lock, then writes under mu. Otherwise, falls
// through to writerFormatter or generic formatter paths.
func (h *ConsoleHandler) Handle(entry *core.Entry) error {
	err := h.write(entry)
	if err == nil {
		h.stats.IncrementProcessed()
	}
	return err
}

func (h *ConsoleHandler) write(entry *core.Entry) error {
	if h.bufferFormatter != nil {
		if h.mu.TryLock() {
			h.syncBuf.Reset()
			h.bufferFormatter.FormatEntry(entry, &h.syncBuf)
			_, err := h.writer.Write(h.syncBuf.Bytes())
			h.mu.Unlock()
			return err
		}

		// Parallel fallback: format in pool buffer outside lock, then
		// write under mu (or directly for concurrent-safe writers).
		buf := h.parBufPool.Get().(*bytes.Buffer)
		buf.Reset()
		h.bufferFormatter.FormatEntry(entry, buf)
		var err error
		if h.concurrentSafe {
			_, err = h.writer.Write(buf.Bytes())
		} else {
			h.mu.Lock()
			_, err = h.writer.Write(buf.Bytes())
			h.mu.Unlock()
		}
		h.parBufPool.Put(buf)
		return err
	}

	if h.writerFormatter != nil {
		if h.concurrentSafe {
			return h.writerFormatter.FormatTo(entry, h.writer)
		}
		return h.writerFormatter.FormatTo(entry, &h.lw)
	}

	data, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	if h.concurrentSafe {
		_, err = h.writer.Write(data)
		return err
	}
	h.mu.Lock()
	_, err = h.writer.Write(data)
	h.mu.Unlock()
	return err
}

// Flush flushes writers that buffer, such as *bufio.Writer.
func (h *ConsoleHandler) Flush() error {
	f, ok := h.writer.(interface{ Flush() error })
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return f.Flush()
}

// CanRecycleEntry returns true because the handler is done with the entry
// when Handle returns.
func (h *ConsoleHandler) CanRecycleEntry() bool {
	return true
}

// Name identifies the handler in diagnostics.
func (h *ConsoleHandler) Name() string { return "console" }

// Stats returns a snapshot of the current statistics
func (h *ConsoleHandler) Stats() handler.Snapshot {
	return h.stats.GetSnapshot()
}

// Close flushes the writer. The writer itself is not closed. Close is
// idempotent.
func (h *ConsoleHandler) Close() error {
	select {
	case <-h.closed:
		return nil // Already closed
	default:
		close(h.closed)
	}
	return h.Flush()
}
