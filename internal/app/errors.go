package service

import "errors"

// ErrNotStarted is returned when frames arrive before Start or after Stop.
var ErrNotStarted = errors.New("service not started")
