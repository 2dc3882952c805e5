// Package photos owns the managed photo directory. Every photo referenced by
// a stored record lives there under a collision-resistant name, and nothing
// outside it is ever deleted through this package, except import-time temp
// copies guarded by the caller's temp root.
package photos
