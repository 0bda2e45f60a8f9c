// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock reads so that token issuance and
// expiry can be tested deterministically.
//
// Production code injects [Real]. Tests inject [Fake] and move time
// forward explicitly with [FakeClock.Advance]. Code that stamps or
// checks timestamps should take a Clock instead of calling time.Now.
package clock
