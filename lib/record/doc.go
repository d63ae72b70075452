// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the structured event record accumulated by
// the emitter and exchanged with the trace server.
//
// A Record is an ordered mapping of field name to value. Field order
// is insertion order and survives a JSON round trip: the exchange
// format must preserve it because insertion order is the tie-break
// when the server reconstructs a trace tree from records with equal
// timestamps.
//
// Values of arbitrary Go types are admitted through a normalization
// table (see Normalize) so that serialization never fails: recognized
// shapes (temporal, binary, textual, collection, struct) get a
// faithful JSON form, everything else degrades to its string
// representation.
package record
