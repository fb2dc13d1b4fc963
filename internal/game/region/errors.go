package region

import "errors"

// Sentinel errors for the region system.
var (
	ErrEmptyID              = errors.New("empty region id")
	ErrEmptyWorld           = errors.New("empty world")
	ErrMalformedCorner      = errors.New("malformed corner")
	ErrAuthorityUnavailable = errors.New("region authority unavailable")
	ErrExternalManaged      = errors.New("regions are managed by the external authority")
	ErrSelectionIncomplete  = errors.New("selection needs two corners")
	ErrWorldMismatch        = errors.New("selection corners are in different worlds")
	ErrRegionNotFound       = errors.New("region not found")
)
