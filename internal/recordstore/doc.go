// Package recordstore keeps the ordered collection of wine records in memory
// and mirrors it to a single pretty-printed JSON file.
//
// # Storage
//
// The backing file (wineRecords.json under paths.data_dir) holds a JSON
// array of records. Every mutation rewrites the whole file atomically via a
// temp file and rename. A file that cannot be parsed is moved aside and the
// store starts empty; it never fails the caller.
//
// # Ownership
//
// The store owns the photo lifecycle of its records: removing a record, or
// replacing a photo during an edit, deletes the managed photo files through
// the photo manager. ReplaceAll skips that step because the import path
// reconciles photo ownership itself.
//
// # Concurrency
//
// Mutations are serialized by a mutex, and an exclusive file lock next to
// the backing file keeps two winenotes processes from interleaving writes.
package recordstore
