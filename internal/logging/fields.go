package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (export_completed, photo_delete_failed, ...).
	FieldEventType = "event_type"
	// FieldErrorHint tells the reader what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRecordID is the stable identifier of the record a line concerns.
	FieldRecordID = "record_id"
	// FieldRecordIndex is the 1-based position of a record in the store.
	FieldRecordIndex = "record_index"
	// FieldPhotoKind is the photo slot (bottle, label, backlabel, plaque).
	FieldPhotoKind = "photo_kind"
	// FieldPath is the filesystem path a line concerns.
	FieldPath = "path"
)
