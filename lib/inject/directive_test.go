// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"errors"
	"testing"
)

func TestDirectiveValidate(t *testing.T) {
	tests := []struct {
		name      string
		directive Directive
		ok        bool
	}{
		{"after with marker", Directive{TargetPath: "f", Mode: ModeAfter, Marker: "m", Payload: "p"}, true},
		{"after without marker", Directive{TargetPath: "f", Mode: ModeAfter, Payload: "p"}, false},
		{"after with line number", Directive{TargetPath: "f", Mode: ModeAfter, Marker: "m", LineNumber: 3}, false},
		{"empty target", Directive{Mode: ModeAppend, Payload: "p"}, false},
		{"unknown mode", Directive{TargetPath: "f", Mode: "replace", Payload: "p"}, false},
		{"line-at positive", Directive{TargetPath: "f", Mode: ModeLineAt, LineNumber: 1, Payload: "p"}, true},
		{"line-at zero", Directive{TargetPath: "f", Mode: ModeLineAt, LineNumber: 0, Payload: "p"}, false},
		{"line-at with marker", Directive{TargetPath: "f", Mode: ModeLineAt, LineNumber: 1, Marker: "m"}, false},
		{"append with marker", Directive{TargetPath: "f", Mode: ModeAppend, Marker: "m"}, false},
		{"bad predicate", Directive{TargetPath: "f", Mode: ModeAppend, SkipIf: "contains:"}, false},
		{"good predicate", Directive{TargetPath: "f", Mode: ModeAppend, SkipIf: "contains:x"}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.directive.Validate()
			if test.ok && err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if !test.ok {
				var validation *ValidationError
				if !errors.As(err, &validation) {
					t.Fatalf("Validate returned %v, want ValidationError", err)
				}
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range []Mode{ModeAfter, ModeBefore, ModeAppend, ModePrepend, ModeLineAt, ModeOverwrite} {
		parsed, err := ParseMode(string(mode))
		if err != nil {
			t.Fatalf("ParseMode(%q) failed: %v", mode, err)
		}
		if parsed != mode {
			t.Fatalf("mode %s did not round trip", mode)
		}
	}
	if _, err := ParseMode("sed"); err == nil {
		t.Fatal("unknown mode accepted")
	}
}
