// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects Real(); tests inject Fake() with deterministic time control.
package clock

import "time"

// Clock provides the current time. Every production function that
// would call time.Now should take a Clock (or be a method on a struct
// with a Clock field) instead of calling the time package directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}
