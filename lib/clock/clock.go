// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EpochEnv is the environment variable holding a fixed epoch override
// as Unix seconds. When set, every timestamp KGEN records uses that
// instant, making regenerated output byte-identical.
const EpochEnv = "KGEN_BUILD_EPOCH"

// Clock is the time source injected into anything that records a
// timestamp.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Fixed returns a Clock pinned to the given instant. Every Now call
// returns exactly t.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// FromEnv returns a Fixed clock when the KGEN_BUILD_EPOCH environment
// variable is set, or Real otherwise. A set-but-unparseable value is
// an error rather than a silent fall back to wall-clock time — the
// caller asked for reproducibility and must not quietly lose it.
func FromEnv() (Clock, error) {
	raw, ok := os.LookupEnv(EpochEnv)
	if !ok || raw == "" {
		return Real(), nil
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s=%q: %w", EpochEnv, raw, err)
	}
	return Fixed(time.Unix(seconds, 0).UTC()), nil
}
