// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used everywhere
// KGEN reads a timestamp. Production code injects Real(); tests and
// reproducible builds inject Fixed(), which pins every timestamp to
// one configured instant so that repeated runs with identical inputs
// produce byte-identical attestation records.
//
// Nothing in this core schedules timers, so the interface is just
// Now. Anything that needs the current time takes a Clock parameter
// (or holds one in a struct field) instead of calling time.Now.
package clock
