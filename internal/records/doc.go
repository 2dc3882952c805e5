// Package records defines the wine tasting record model shared by the store,
// the photo manager, and the export/import pipeline.
//
// It owns the JSON wire shape of a record (camelCase keys, fixed enum values),
// the coercion rules applied to form input, the validation applied before a
// record enters the store, and the case-folded search and sort used by the
// CLI. It also carries the error category taxonomy the CLI maps failures onto.
package records
