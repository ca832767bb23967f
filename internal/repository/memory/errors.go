package memory

import "errors"

var errIncrementUnavailable = errors.New("memory: counter store unavailable")
