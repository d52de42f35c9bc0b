// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"fmt"
	"strings"
)

// Predicate is a compiled skip condition. The grammar is
// deliberately small:
//
//	contains:<literal>   true when the target content contains the literal
//	var:<name>=<value>   true when the named variable equals the value
//	<name>               true when the named variable is set and truthy
//
// Truthy means any value other than "", "0", "false", or "no".
type Predicate struct {
	kind    predicateKind
	name    string
	value   string
	literal string
}

type predicateKind int

const (
	predicateContains predicateKind = iota
	predicateVarEquals
	predicateVarTruthy
)

// ParsePredicate compiles a skip expression.
func ParsePredicate(expr string) (*Predicate, error) {
	switch {
	case strings.HasPrefix(expr, "contains:"):
		literal := strings.TrimPrefix(expr, "contains:")
		if literal == "" {
			return nil, fmt.Errorf("contains predicate has no literal")
		}
		return &Predicate{kind: predicateContains, literal: literal}, nil

	case strings.HasPrefix(expr, "var:"):
		assignment := strings.TrimPrefix(expr, "var:")
		name, value, found := strings.Cut(assignment, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("var predicate %q is not of the form var:<name>=<value>", expr)
		}
		return &Predicate{kind: predicateVarEquals, name: name, value: value}, nil

	case expr == "":
		return nil, fmt.Errorf("empty predicate")

	case strings.ContainsAny(expr, ":= \t"):
		return nil, fmt.Errorf("predicate %q is not a bare variable name", expr)

	default:
		return &Predicate{kind: predicateVarTruthy, name: expr}, nil
	}
}

// Evaluate applies the predicate to the target's current content and
// the caller-supplied variable set.
func (p *Predicate) Evaluate(content []byte, vars map[string]string) bool {
	switch p.kind {
	case predicateContains:
		return strings.Contains(string(content), p.literal)
	case predicateVarEquals:
		value, ok := vars[p.name]
		return ok && value == p.value
	case predicateVarTruthy:
		value, ok := vars[p.name]
		return ok && truthy(value)
	}
	return false
}

func truthy(value string) bool {
	switch strings.ToLower(value) {
	case "", "0", "false", "no":
		return false
	}
	return true
}
