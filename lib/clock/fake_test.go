// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeNowStandsStill(t *testing.T) {
	fake := Fake(epoch)
	if !fake.Now().Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", fake.Now(), epoch)
	}
	if !fake.Now().Equal(epoch) {
		t.Fatalf("second Now() moved without Advance")
	}
}

func TestFakeAdvanceMovesNow(t *testing.T) {
	fake := Fake(epoch)
	fake.Advance(90 * time.Second)
	want := epoch.Add(90 * time.Second)
	if !fake.Now().Equal(want) {
		t.Fatalf("Now() = %v, want %v", fake.Now(), want)
	}
}
