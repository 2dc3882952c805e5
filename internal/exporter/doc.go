// Package exporter packages records and their photos into a portable bundle:
// a working directory holding the records JSON, an images folder, a zip
// archive of both, a manifest, and a readme. The working directory is handed
// to the janitor once the archive has been produced.
package exporter
