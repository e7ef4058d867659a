package api

import "errors"

// ErrBadRequest marks requests rejected before reaching the service.
var ErrBadRequest = errors.New("bad request")
