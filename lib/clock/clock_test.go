// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	epoch := time.Unix(1700000000, 0).UTC()
	clk := Fixed(epoch)
	if !clk.Now().Equal(epoch) {
		t.Fatal("fixed clock drifted")
	}
	time.Sleep(time.Millisecond)
	if !clk.Now().Equal(epoch) {
		t.Fatal("fixed clock advanced")
	}
}

func TestFromEnvUnset(t *testing.T) {
	t.Setenv(EpochEnv, "")
	clk, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if _, fixed := clk.(fixedClock); fixed {
		t.Fatal("unset epoch produced a fixed clock")
	}
}

func TestFromEnvSet(t *testing.T) {
	t.Setenv(EpochEnv, "1700000000")
	clk, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	want := time.Unix(1700000000, 0).UTC()
	if !clk.Now().Equal(want) {
		t.Fatalf("FromEnv clock reads %v, want %v", clk.Now(), want)
	}
}

func TestFromEnvMalformed(t *testing.T) {
	t.Setenv(EpochEnv, "not-a-number")
	if _, err := FromEnv(); err == nil {
		t.Fatal("unparseable epoch silently ignored")
	}
}
