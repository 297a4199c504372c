// Package core defines the shared types used across ringlog.
//
// It provides the Level type for severity filtering (TRACE < DEBUG < INFO <
// WARN < ERROR < FATAL), the Entry type that is the envelope of a single log
// event, and the Field type for zero-allocation structured key-value pairs.
//
// An Entry carries the logger name, level, message (rendered or lazily
// rendered from Format and Args), timestamp, producer identity, optional
// caller location, the producer's diag.Snapshot, an optional error and the
// structured fields. Once handed to a handler it is never modified.
//
// Entry objects are pooled via sync.Pool to keep the hot path
// allocation-free. Callers get an Entry with GetEntry and return it with
// PutEntry once the handler has consumed it. Async pipelines copy the entry
// into a reusable ring slot with CopyFrom, so the producer can recycle its
// entry immediately.
//
// Field encodes values into fixed-size numeric fields (Int64, Float64)
// wherever possible so that common types like int, bool, and time.Time
// never escape to the heap. The Any field exists as a fallback for
// arbitrary types but will cause an allocation.
package core
