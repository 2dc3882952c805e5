// Package importer reads export archives and loose JSON files back into
// records. Photos referenced through bundle-relative paths are copied into
// the managed photo directory; references that cannot be resolved are
// cleared. The caller decides how the result merges into the store.
package importer
