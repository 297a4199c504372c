package sqlhandler

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/diag"
	"github.com/philipp01105/ringlog/handler/asynchandler"
)

func openTest(t *testing.T, cfg Config) *SQLHandler {
	t.Helper()
	if cfg.DSN == "" {
		cfg.DSN = filepath.Join(t.TempDir(), "log.db")
	}
	h, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSQLHandler_Config(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, ErrNoDSN)

	_, err = Open(Config{DSN: filepath.Join(t.TempDir(), "x.db"), Table: "events; DROP TABLE x"})
	assert.ErrorIs(t, err, ErrInvalidTable)

	assert.Contains(t, dsn(Config{DSN: "/tmp/a.db", BusyTimeout: 1000000000}), "busy_timeout(1000)")
	assert.Equal(t, "file:a.db?mode=memory", dsn(Config{DSN: "file:a.db?mode=memory"}))
}

func TestSQLHandler_RowContents(t *testing.T) {
	h := openTest(t, Config{Table: "app_log"})

	c := diag.New("worker-1")
	c.Put("req", "42")
	c.Push("outer")

	e := core.GetEntry()
	e.Level = core.WarnLevel
	e.LoggerName = "db"
	e.Format = "slow query %dms"
	e.Args = []any{250}
	e.ThreadID = c.ID()
	e.ThreadName = c.Name()
	e.Context = c.Capture()
	e.Err = errors.New("timeout")
	e.Fields = append(e.Fields,
		core.Field{Key: "rows", Type: core.IntType, Int64: 3},
		core.Field{Key: "cached", Type: core.BoolType, Int64: 1},
		core.Field{Key: "table", Type: core.StringType, Str: "users"},
	)
	require.NoError(t, h.Handle(e))
	require.NoError(t, h.Flush())

	var (
		level, logger, thread, msg, ctxJSON, ndcJSON, fieldsJSON string
		errText                                                   sql.NullString
		seq                                                       int64
	)
	row := h.DB().QueryRow(`SELECT seq, level, logger, thread, message, error, context, ndc, fields FROM app_log`)
	require.NoError(t, row.Scan(&seq, &level, &logger, &thread, &msg, &errText, &ctxJSON, &ndcJSON, &fieldsJSON))

	assert.Equal(t, int64(-1), seq)
	assert.Equal(t, "WARN", level)
	assert.Equal(t, "db", logger)
	assert.Equal(t, "worker-1", thread)
	assert.Equal(t, "slow query 250ms", msg)
	assert.Equal(t, "timeout", errText.String)
	assert.JSONEq(t, `{"req":"42"}`, ctxJSON)
	assert.JSONEq(t, `["outer"]`, ndcJSON)

	v, err := fastjson.Parse(fieldsJSON)
	require.NoError(t, err)
	assert.Equal(t, 3, v.GetInt("rows"))
	assert.True(t, v.GetBool("cached"))
	assert.Equal(t, "users", string(v.GetStringBytes("table")))
}

func TestSQLHandler_EmptyContext(t *testing.T) {
	h := openTest(t, Config{})
	e := core.GetEntry()
	e.Message = "plain"
	require.NoError(t, h.Handle(e))
	require.NoError(t, h.Flush())

	var ctxJSON, ndcJSON, fieldsJSON string
	var errText sql.NullString
	require.NoError(t, h.DB().QueryRow(`SELECT context, ndc, fields, error FROM events`).
		Scan(&ctxJSON, &ndcJSON, &fieldsJSON, &errText))
	assert.Equal(t, "{}", ctxJSON)
	assert.Equal(t, "[]", ndcJSON)
	assert.Equal(t, "{}", fieldsJSON)
	assert.False(t, errText.Valid)
}

func TestSQLHandler_BatchCommits(t *testing.T) {
	h := openTest(t, Config{BatchSize: 4})
	for i := 0; i < 10; i++ {
		e := core.GetEntry()
		e.Message = fmt.Sprintf("m%d", i)
		require.NoError(t, h.Handle(e))
		core.PutEntry(e)
	}
	// Two full batches are committed; two rows wait for Flush.
	h.mu.Lock()
	pending := h.pending
	h.mu.Unlock()
	assert.Equal(t, 2, pending)

	require.NoError(t, h.Flush())
	assert.Equal(t, 10, count(t, h.DB(), "events"))
	assert.Equal(t, uint64(10), h.Stats().ProcessedTotal)
}

func TestSQLHandler_CloseCommitsAndRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	h, err := Open(Config{DSN: path})
	require.NoError(t, err)

	e := core.GetEntry()
	e.Message = "last"
	require.NoError(t, h.Handle(e))
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.ErrorIs(t, h.Handle(e), ErrClosed)

	reopened := openTest(t, Config{DSN: path})
	assert.Equal(t, 1, count(t, reopened.DB(), "events"))
}

func TestSQLHandler_Async(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	h, err := NewSQLHandler(Config{DSN: path, Async: true, BufferSize: 64})
	require.NoError(t, err)
	p, ok := h.(*asynchandler.Pipeline)
	require.True(t, ok)
	assert.Equal(t, "sqlite", p.Name())

	for i := 0; i < 200; i++ {
		e := core.GetEntry()
		e.Level = core.ErrorLevel
		e.Message = fmt.Sprintf("async %d", i)
		require.NoError(t, h.Handle(e))
		core.PutEntry(e)
	}
	require.NoError(t, h.Close())

	reopened := openTest(t, Config{DSN: path})
	assert.Equal(t, 200, count(t, reopened.DB(), "events"))

	// Rows from the ring keep their sequence; sync fallbacks carry -1.
	var maxSeq int64
	require.NoError(t, reopened.DB().QueryRow(`SELECT MAX(seq) FROM events`).Scan(&maxSeq))
	assert.GreaterOrEqual(t, maxSeq, int64(0))
}
