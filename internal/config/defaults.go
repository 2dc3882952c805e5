package config

// RecordsFileName is the fixed name of the record store backing file.
const RecordsFileName = "wineRecords.json"

const (
	defaultDataDir             = "~/.local/share/winenotes"
	defaultPhotoDir            = "~/Pictures/winetastenote"
	defaultFallbackPhotoDir    = "~/.local/share/winenotes/winetastenote"
	defaultTransientDir        = "~/.cache/winenotes/transient"
	defaultExportDir           = "."
	defaultLogDir              = "~/.local/share/winenotes/logs"
	defaultAlbum               = "winetastenote"
	defaultCleanupGraceSeconds = 60
	defaultCleanupRetrySeconds = 120
	defaultStaleTransientHours = 24
	defaultShareTimeoutSeconds = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "warn"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:          defaultDataDir,
			PhotoDir:         defaultPhotoDir,
			FallbackPhotoDir: defaultFallbackPhotoDir,
			TransientDir:     defaultTransientDir,
			ExportDir:        defaultExportDir,
			LogDir:           defaultLogDir,
		},
		Photos: Photos{
			Album: defaultAlbum,
		},
		Export: Export{
			CleanupGraceSeconds: defaultCleanupGraceSeconds,
			CleanupRetrySeconds: defaultCleanupRetrySeconds,
			StaleTransientHours: defaultStaleTransientHours,
		},
		Share: Share{
			RequestTimeoutSeconds: defaultShareTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
