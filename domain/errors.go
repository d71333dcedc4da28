package domain

import "errors"

// ErrPermissionDenied indicates the viewer's role does not allow the
// attempted action. The board is left untouched.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNotFound indicates the remote store has no such project or task.
var ErrNotFound = errors.New("not found")
