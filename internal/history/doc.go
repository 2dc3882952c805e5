// Package history journals export and import outcomes in a small SQLite
// database so `winenotes history` can show what was shared or restored, and
// how many photos were degraded along the way.
//
// The journal is advisory: callers log a failure to record an entry and carry
// on. The schema version lives in PRAGMA user_version. An older journal is
// dropped and recreated; a newer one makes Open fail so it is not destroyed.
package history
