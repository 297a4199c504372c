package sqlhandler

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/diag"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/asynchandler"
	"github.com/philipp01105/ringlog/ring"
)

const (
	// DefaultTable is the table used when Config.Table is empty.
	DefaultTable = "events"
	// DefaultBatchSize bounds the rows of one transaction.
	DefaultBatchSize = 256
)

var (
	// ErrNoDSN is returned by Open without Config.DSN.
	ErrNoDSN = errors.New("sqlhandler: dsn is required")
	// ErrInvalidTable is returned for a table name that is not a plain
	// SQL identifier.
	ErrInvalidTable = errors.New("sqlhandler: invalid table name")
	// ErrClosed is returned by Handle after Close.
	ErrClosed = errors.New("sqlhandler: closed")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config configures a SQLHandler.
type Config struct {
	// DSN is a database path or a modernc.org/sqlite DSN. A plain path gets
	// WAL journaling and a busy timeout.
	DSN string

	// Table receives the rows. Default: "events"
	Table string

	// BatchSize commits the open transaction once this many rows are
	// pending. Default: 256
	BatchSize int

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5s
	BusyTimeout time.Duration

	// Async puts an async pipeline in front of the handler.
	Async bool
	// BufferSize is the ring capacity of the async pipeline, rounded up to
	// a power of two. Default: 1024
	BufferSize int
	// Policy runs when the async ring is full. Default: handler.DefaultPolicyConfig
	Policy handler.QueueFullPolicy
	// DrainTimeout bounds the drain on Close. Default: 5s
	DrainTimeout time.Duration
}

func applyDefaults(cfg *Config) error {
	if cfg.DSN == "" {
		return ErrNoDSN
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !identRe.MatchString(cfg.Table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, cfg.Table)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	return nil
}

// dsn adds pragmas to a plain path.
func dsn(cfg Config) string {
	if strings.ContainsRune(cfg.DSN, '?') || strings.HasPrefix(cfg.DSN, "file:") {
		return cfg.DSN
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.DSN, cfg.BusyTimeout.Milliseconds())
}

// SQLHandler inserts entries into a SQLite table.
type SQLHandler struct {
	db        *sql.DB
	table     string
	batchSize int

	mu      sync.Mutex
	insert  *sql.Stmt
	tx      *sql.Tx
	txStmt  *sql.Stmt
	pending int
	arena   fastjson.Arena
	buf     []byte
	closed  bool
	stats   *handler.Stats
}

// NewSQLHandler opens the database. With Async set the returned handler is
// a started *asynchandler.Pipeline in front of the *SQLHandler.
func NewSQLHandler(cfg Config) (handler.Handler, error) {
	h, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.Async {
		return h, nil
	}

	policy := cfg.Policy
	if policy == nil {
		if policy, err = handler.NewPolicy(handler.DefaultPolicyConfig()); err != nil {
			return nil, multierr.Append(err, h.Close())
		}
	}
	capacity := asynchandler.DefaultCapacity
	if cfg.BufferSize > 0 {
		capacity = ring.RoundUp(cfg.BufferSize)
	}
	p, err := asynchandler.New(asynchandler.Config{
		Handler:      h,
		Name:         "sqlite",
		Capacity:     capacity,
		Policy:       policy,
		DrainTimeout: cfg.DrainTimeout,
	})
	if err != nil {
		return nil, multierr.Append(err, h.Close())
	}
	p.Start()
	return p, nil
}

// Open creates a synchronous SQLHandler and its table.
func Open(cfg Config) (*SQLHandler, error) {
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	h := &SQLHandler{
		db:        db,
		table:     cfg.Table,
		batchSize: cfg.BatchSize,
		stats:     handler.NewStats(),
	}
	if err := h.initSchema(); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to initialize schema: %w", err), db.Close())
	}
	h.insert, err = db.Prepare(fmt.Sprintf(`INSERT INTO %s
		(seq, time, level, logger, thread_id, thread, message, error, context, ndc, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, h.table))
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to prepare insert: %w", err), db.Close())
	}
	return h, nil
}

func (h *SQLHandler) initSchema() error {
	_, err := h.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seq INTEGER NOT NULL,
		time TEXT NOT NULL,
		level TEXT NOT NULL,
		logger TEXT,
		thread_id INTEGER,
		thread TEXT,
		message TEXT,
		error TEXT,
		context TEXT,
		ndc TEXT,
		fields TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_time ON %[1]s(time);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_level ON %[1]s(level);
	`, h.table))
	return err
}

// Handle inserts entry into the open transaction, beginning one if needed.
func (h *SQLHandler) Handle(entry *core.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.tx == nil {
		tx, err := h.db.Begin()
		if err != nil {
			return err
		}
		h.tx = tx
		h.txStmt = tx.Stmt(h.insert)
	}

	var errText sql.NullString
	if entry.Err != nil {
		errText = sql.NullString{String: entry.Err.Error(), Valid: true}
	}
	ctxJSON, ndcJSON := h.contextJSON(entry.Context)
	_, err := h.txStmt.Exec(
		entry.Sequence,
		entry.Time.UTC().Format(time.RFC3339Nano),
		entry.Level.String(),
		entry.LoggerName,
		int64(entry.ThreadID),
		entry.ThreadName,
		entry.RenderedMessage(),
		errText,
		ctxJSON,
		ndcJSON,
		h.fieldsJSON(entry.Fields),
	)
	if err != nil {
		return err
	}
	h.pending++
	h.stats.IncrementProcessed()
	if h.pending >= h.batchSize {
		return h.commit()
	}
	return nil
}

// contextJSON renders the snapshot's map and stack as JSON.
func (h *SQLHandler) contextJSON(s *diag.Snapshot) (string, string) {
	if s == nil || s.IsEmpty() {
		return "{}", "[]"
	}
	defer h.arena.Reset()
	obj := h.arena.NewObject()
	for i := 0; i < s.Len(); i++ {
		p := s.At(i)
		obj.Set(p.Key, h.arena.NewString(p.Value))
	}
	arr := h.arena.NewArray()
	for i := 0; i < s.StackDepth(); i++ {
		arr.SetArrayItem(i, h.arena.NewString(s.StackAt(i)))
	}
	h.buf = obj.MarshalTo(h.buf[:0])
	ctxJSON := string(h.buf)
	h.buf = arr.MarshalTo(h.buf[:0])
	return ctxJSON, string(h.buf)
}

// fieldsJSON renders structured fields with their native JSON types.
func (h *SQLHandler) fieldsJSON(fields []core.Field) string {
	if len(fields) == 0 {
		return "{}"
	}
	defer h.arena.Reset()
	obj := h.arena.NewObject()
	for _, f := range fields {
		var v *fastjson.Value
		switch f.Type {
		case core.IntType, core.Int64Type:
			v = h.arena.NewNumberInt(int(f.Int64))
		case core.Uint64Type:
			v = h.arena.NewNumberString(strconv.FormatUint(uint64(f.Int64), 10))
		case core.Float64Type:
			v = h.arena.NewNumberFloat64(f.Float64)
		case core.BoolType:
			if f.Int64 == 1 {
				v = h.arena.NewTrue()
			} else {
				v = h.arena.NewFalse()
			}
		default:
			v = h.arena.NewString(f.StringValue())
		}
		obj.Set(f.Key, v)
	}
	h.buf = obj.MarshalTo(h.buf[:0])
	return string(h.buf)
}

func (h *SQLHandler) commit() error {
	if h.tx == nil {
		return nil
	}
	err := multierr.Append(h.txStmt.Close(), h.tx.Commit())
	h.tx, h.txStmt, h.pending = nil, nil, 0
	return err
}

// Flush commits the open transaction.
func (h *SQLHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.commit()
}

// DB returns the underlying database for queries.
func (h *SQLHandler) DB() *sql.DB { return h.db }

// Table returns the table name.
func (h *SQLHandler) Table() string { return h.table }

// CanRecycleEntry returns true because rows are written before Handle
// returns.
func (h *SQLHandler) CanRecycleEntry() bool { return true }

// Name identifies the handler in diagnostics.
func (h *SQLHandler) Name() string { return "sqlite" }

// Stats returns a snapshot of the current statistics
func (h *SQLHandler) Stats() handler.Snapshot { return h.stats.GetSnapshot() }

// Close commits pending rows and closes the database. It is idempotent.
func (h *SQLHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return multierr.Combine(h.commit(), h.insert.Close(), h.db.Close())
}
