// Package client talks to the any2json HTTP API.
//
// HTTPClient implements Client. It carries the session token, decodes the
// JSON responses and turns error bodies into *APIError values that unwrap to
// the sentinels in internal/common, so callers can match them with
// errors.Is. Transport failures are reported as ErrUnavailable.
package client
