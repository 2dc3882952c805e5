// Package bundle defines the on-disk shape shared by export and import: the
// fixed artifact names, bundle-relative photo paths, the manifest written
// next to the archive, and zip helpers that use the klauspost deflate
// implementation.
package bundle
