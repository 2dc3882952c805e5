package preflight

import (
	"winenotes/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckRecordsFile("Records file", cfg.RecordsPath()),
		CheckWritable("Photo directory", cfg.Paths.PhotoDir),
	}
	if cfg.Paths.FallbackPhotoDir != "" {
		results = append(results, CheckWritable("Fallback photo directory", cfg.Paths.FallbackPhotoDir))
	}
	results = append(results,
		CheckWritable("Transient directory", cfg.Paths.TransientDir),
		CheckWritable("Export directory", cfg.Paths.ExportDir),
	)
	return results
}
