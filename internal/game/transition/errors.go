package transition

import "errors"

// ErrDispatcherClosed is returned for work submitted after Run returned.
var ErrDispatcherClosed = errors.New("dispatcher closed")
