package domain

import "errors"

// ErrAlreadyRunning is returned when a request targets an identity that
// already has a live run. The existing run is unaffected.
var ErrAlreadyRunning = errors.New("script is already running")

// ErrNotRunning is returned by stop when no run exists for the identity.
// Informational, not alarming.
var ErrNotRunning = errors.New("script is not running")

// ErrPermissionGrant is returned when the script lacks the execute bit and
// granting it failed (e.g. read-only filesystem). Fatal for the request,
// not retried automatically.
var ErrPermissionGrant = errors.New("could not grant execute permission")

// ErrSecurityDenied is returned when the security gate rejects the command.
// The wrapped message carries the matched rule text.
var ErrSecurityDenied = errors.New("command denied by security policy")

// ErrSecurityDeclined is returned when the user declined (or dismissed) a
// confirmation prompt for a suspicious command.
var ErrSecurityDeclined = errors.New("execution declined by user")

// ErrSessionAcquisition is returned when the terminal pool could not
// provide a session for the run.
var ErrSessionAcquisition = errors.New("failed to acquire terminal session")
