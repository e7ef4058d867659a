package metrics

import "errors"

// ErrObserveFailed marks a failed metric observation.
var ErrObserveFailed = errors.New("metrics observe failed")
