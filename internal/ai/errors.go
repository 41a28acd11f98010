package ai

import "errors"

// ErrUnavailable means the provider is not configured (missing key/endpoint).
var ErrUnavailable = errors.New("ai provider unavailable")
