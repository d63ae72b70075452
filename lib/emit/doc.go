// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

// Package emit is the client half of the tracelens pipeline: an
// in-memory buffer of structured records for one traced unit of work,
// and a router that delivers the drained batch to a remote ingest
// endpoint, a local append file, or the console.
//
// The delivery contract is "never lose a captured trace": when the
// remote endpoint is unreachable the batch degrades to a durable HTML
// artifact on local disk and the caller is told where it went. Local
// sinks have no further fallback, so their failures are hard errors.
//
// A Buffer is owned by exactly one logical execution context and does
// no internal locking. Concurrent traces use one Buffer each.
package emit
