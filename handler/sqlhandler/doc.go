// Package sqlhandler stores log entries as rows of a SQLite table using the
// pure Go modernc.org/sqlite driver.
//
// Rows are written inside a transaction that is committed on Flush, on
// Close, or once BatchSize rows are pending. Behind an async pipeline this
// means one transaction per consumer batch.
//
// The table has one column per envelope field; the diagnostic context and
// structured fields are stored as JSON objects:
//
//	seq INTEGER, time TEXT, level TEXT, logger TEXT, thread_id INTEGER,
//	thread TEXT, message TEXT, error TEXT, context TEXT, ndc TEXT, fields TEXT
package sqlhandler
