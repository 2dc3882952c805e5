// Package config reads winenotes.toml.
//
// Load applies defaults, the WINENOTES_DATA_DIR override and ~ expansion,
// then validates the result. Every other package takes its directories from
// the returned Config: the records file and history journal under data_dir,
// the photo album, transient bundles, exports and logs.
package config
