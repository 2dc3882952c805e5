package records

import "errors"

// Category says how a failure is surfaced to the user.
type Category int

const (
	// CategoryFatal aborts the operation and is reported as an error.
	CategoryFatal Category = iota
	// CategoryDegraded lets the operation complete; the user sees a count.
	CategoryDegraded
	// CategorySilent is logged only.
	CategorySilent
)

func (c Category) String() string {
	switch c {
	case CategoryDegraded:
		return "degraded"
	case CategorySilent:
		return "silent"
	default:
		return "fatal"
	}
}

// Error is a sentinel that carries its category. Packages declare their
// sentinels with NewError and wrap them with %w.
type Error struct {
	msg      string
	category Category
}

// NewError declares a categorized sentinel error.
func NewError(category Category, msg string) *Error {
	return &Error{msg: msg, category: category}
}

func (e *Error) Error() string { return e.msg }

// Category returns the sentinel's category.
func (e *Error) Category() Category { return e.category }

// Classify finds the outermost categorized sentinel in err's chain.
// Uncategorized errors are fatal.
func Classify(err error) Category {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.category
	}
	return CategoryFatal
}

// ErrInvalidRecord reports a record that failed validation.
var ErrInvalidRecord = NewError(CategoryFatal, "invalid record")
