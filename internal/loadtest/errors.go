package loadtest

import "errors"

// Sentinel kinds for load test failures.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrRequest      = errors.New("request failed")
	ErrVerification = errors.New("verification failed")
)
