// Package share hands finished export archives to an outside surface.
//
// DirSurface copies the archive into a local directory. When an ntfy topic is
// configured, NewSurface returns a surface that uploads the archive as an
// ntfy attachment; otherwise it returns a no-op so callers never need to
// check whether sharing is enabled.
package share
