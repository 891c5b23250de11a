// Package docstore is a minimal key-document store for the planning engine.
//
// Documents are JSON objects grouped into named collections. Filters match
// top-level string fields by equality. Each document is updated atomically
// through FindOneAndUpdate or UpdateMany, which hand the current bytes to a
// caller-supplied UpdateFunc while the document is locked.
//
// Two implementations are provided: MemoryStore for tests and single-process
// deployments, and SQLiteStore for durable storage.
package docstore
