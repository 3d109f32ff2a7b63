package ai

import "errors"

// ErrUnavailable marks a provider that is configured but cannot serve, e.g.
// a missing api key. Callers translate it into the degraded answer path.
var ErrUnavailable = errors.New("ai provider unavailable")
