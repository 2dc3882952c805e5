// Package preflight verifies the filesystem locations winenotes depends on
// and answers storage-access questions for the photo manager and the
// export packager.
//
// RunAll powers the `winenotes preflight` command. DirAccess is the
// StorageAccess implementation used by the CLI; tests substitute Static.
package preflight
