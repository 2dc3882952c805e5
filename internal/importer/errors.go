package importer

import "winenotes/internal/records"

var (
	// ErrUnsupportedFile reports an input that is neither .zip nor .json.
	ErrUnsupportedFile = records.NewError(records.CategoryFatal, "unsupported import file; expected .zip or .json")
	// ErrArchive reports an archive that could not be opened or extracted.
	ErrArchive = records.NewError(records.CategoryFatal, "archive could not be read")
	// ErrMissingData reports an archive without the records file.
	ErrMissingData = records.NewError(records.CategoryFatal, "archive does not contain WineTastingData.json")
	// ErrRead reports an unreadable records file.
	ErrRead = records.NewError(records.CategoryFatal, "import file could not be read")
	// ErrMalformedJSON reports input that is not valid JSON.
	ErrMalformedJSON = records.NewError(records.CategoryFatal, "file is not valid JSON")
	// ErrNotArray reports JSON whose top-level value is not an array.
	ErrNotArray = records.NewError(records.CategoryFatal, "file does not contain a list of records")
	// ErrShape reports an array that does not hold wine records.
	ErrShape = records.NewError(records.CategoryFatal, "file does not contain wine records")
	// ErrWorkDir reports that the extraction directory could not be created.
	ErrWorkDir = records.NewError(records.CategoryFatal, "import working directory could not be created")

	// ErrStrategyRequired reports a missing merge strategy.
	ErrStrategyRequired = records.NewError(records.CategoryFatal, "choose an import strategy: replace or append")
	// ErrUnknownStrategy reports an unrecognized merge strategy.
	ErrUnknownStrategy = records.NewError(records.CategoryFatal, "unknown import strategy")
	// ErrApplied reports a second Apply of the same import.
	ErrApplied = records.NewError(records.CategoryFatal, "import already applied")
	// ErrClosed reports use of an import after Close.
	ErrClosed = records.NewError(records.CategoryFatal, "import already closed")
)
