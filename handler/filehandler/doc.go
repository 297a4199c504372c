// Package filehandler provides a file handler that writes formatted log
// entries to a buffered file with rotation by size, age, or interval.
//
// Rotated backups are named <filename>.<timestamp> and may be zstd
// compressed. MaxBackups bounds how many are kept. With WatchRotation the
// handler follows external rotation tools by reopening the file once it is
// renamed or removed.
//
// NewFileHandler returns a *FileHandler, or with Async set a started
// asynchandler.Pipeline in front of it. The pipeline flushes the write
// buffer at the end of every batch.
package filehandler
