package camera

import "errors"

// ErrUnknownAfMode is returned by ParseAfMode for names outside the known set.
var ErrUnknownAfMode = errors.New("camera: unknown autofocus mode")
