// Command winenotes keeps wine tasting notes with photos and moves them
// between devices as zip bundles.
//
// Records live in a JSON file guarded by a lock file; photos live in a
// managed album directory. Exports and imports work in transient
// directories that are removed when the command exits or, failing that, by
// the stale sweep that runs on the next start.
package main
