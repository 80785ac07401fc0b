package sffs

import (
	"errors"
)

// These are the filesystem's own error kinds. Kinds, not types: where an
// operation fails for one of these reasons it returns the sentinel (wrapped
// via log.Wrap) rather than a bespoke error type per call-site. Errors from
// the flash device are propagated as the device returned them, not mapped
// onto these, and ErrNotFound is not returned by any operation.
var (
	// ErrBadGeometry indicates a magic mismatch or an impossible header --
	// an unformatted or corrupt medium.
	ErrBadGeometry = errors.New("sffs: bad geometry or unformatted medium")

	// ErrMediumFull indicates no erased page and no reclaimable sector was
	// available to satisfy a write.
	ErrMediumFull = errors.New("sffs: medium full")

	// ErrNotFound indicates a (file_id, block) pair has no current page.
	ErrNotFound = errors.New("sffs: page not found")

	// ErrInvalidArgument indicates a programmer error: file_id 0 or 0xffff
	// passed to Open or Remove, or 0xffff passed to OpenID.
	ErrInvalidArgument = errors.New("sffs: invalid argument")
)
