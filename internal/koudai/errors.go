// SPDX-License-Identifier: MIT

package koudai

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTimeout marks a request that timed out on every allowed attempt.
	ErrTimeout = errors.New("koudai: request timed out")

	// ErrBadResponse marks a well-formed HTTP response with an
	// unexpected shape. Never retried.
	ErrBadResponse = errors.New("koudai: invalid response format or malformed data")
)

// APIError wraps a failed API call with the endpoint and request payload
// for diagnostics. It aborts the entire walk: the caller sees either a
// complete-for-the-request sequence or a hard failure.
type APIError struct {
	Endpoint string
	Payload  any
	Cause    error
}

func (e *APIError) Error() string {
	buf, err := json.Marshal(e.Payload)
	if err != nil {
		buf = []byte("{}")
	}
	return fmt.Sprintf("POST %s %s: %v", e.Endpoint, buf, e.Cause)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}
