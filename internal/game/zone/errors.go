package zone

import "errors"

// Sentinel errors for zone binding configuration.
var (
	ErrEmptyGroupID      = errors.New("empty zone group id")
	ErrDuplicateGroup    = errors.New("duplicate zone group")
	ErrInvalidLevelRange = errors.New("invalid level range")
	ErrUnknownExitPolicy = errors.New("unknown exit policy")
	ErrNegativeFloor     = errors.New("negative floor index")
	ErrEmptyRegion       = errors.New("floor without region")
	ErrDuplicateBinding  = errors.New("region already bound")
	ErrDuplicateFloor    = errors.New("floor already defined")
)
