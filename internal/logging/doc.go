// Package logging builds the slog loggers winenotes writes to stderr and to
// a daily file under paths.log_dir.
//
// Each output has its own level: the file receives the configured level while
// the terminal only sees warnings unless debug logging is on. Console lines
// lift the component, record index and photo kind into a short prefix.
// WarnWithContext gives every warning an event_type, error_hint and impact.
package logging
