// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package preprocess

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind is the type of a shader def value.
type ValueKind uint8

const (
	KindBool ValueKind = iota
	KindInt
	KindUint
)

// String returns the type name used in diagnostics.
func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	default:
		return "unknown"
	}
}

// ShaderDefValue is a typed compile-time constant.
type ShaderDefValue struct {
	kind ValueKind
	b    bool
	i    int32
	u    uint32
}

// Bool returns a boolean def value.
func Bool(v bool) ShaderDefValue { return ShaderDefValue{kind: KindBool, b: v} }

// Int returns a signed def value.
func Int(v int32) ShaderDefValue { return ShaderDefValue{kind: KindInt, i: v} }

// Uint returns an unsigned def value.
func Uint(v uint32) ShaderDefValue { return ShaderDefValue{kind: KindUint, u: v} }

// Kind returns the value's type.
func (v ShaderDefValue) Kind() ValueKind { return v.kind }

// String returns the literal substituted for #NAME.
func (v ShaderDefValue) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(int64(v.i), 10)
	case KindUint:
		return strconv.FormatUint(uint64(v.u), 10)
	default:
		return strconv.FormatBool(v.b)
	}
}

// GoString distinguishes the kinds, e.g. Uint(5).
func (v ShaderDefValue) GoString() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("Int(%d)", v.i)
	case KindUint:
		return fmt.Sprintf("Uint(%d)", v.u)
	default:
		return fmt.Sprintf("Bool(%t)", v.b)
	}
}

// ParseShaderDefValue reads the value of a #define line: unsigned first,
// then signed, then boolean. An empty string means true.
func ParseShaderDefValue(s string) (ShaderDefValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Bool(true), nil
	}
	if u, err := strconv.ParseUint(s, 10, 32); err == nil {
		return Uint(uint32(u)), nil
	}
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return Int(int32(i)), nil
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return Bool(b), nil
	}
	return ShaderDefValue{}, fmt.Errorf("invalid shader def value %q", s)
}

// ParseTypedValue is ParseShaderDefValue plus explicit suffixes: 3u is
// unsigned, 3i is signed. Used for values given on command lines.
func ParseTypedValue(s string) (ShaderDefValue, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(s, "u"):
		u, err := strconv.ParseUint(strings.TrimSuffix(s, "u"), 10, 32)
		if err != nil {
			return ShaderDefValue{}, fmt.Errorf("invalid unsigned value %q", s)
		}
		return Uint(uint32(u)), nil
	case strings.HasSuffix(s, "i"):
		i, err := strconv.ParseInt(strings.TrimSuffix(s, "i"), 10, 32)
		if err != nil {
			return ShaderDefValue{}, fmt.Errorf("invalid signed value %q", s)
		}
		return Int(int32(i)), nil
	}
	return ParseShaderDefValue(s)
}

// compare evaluates "v op lit" using v's own type semantics.
func (v ShaderDefValue) compare(op, lit string) (bool, error) {
	switch v.kind {
	case KindBool:
		if lit != "true" && lit != "false" {
			return false, errMismatch
		}
		b := lit == "true"
		switch op {
		case "==":
			return v.b == b, nil
		case "!=":
			return v.b != b, nil
		}
		return false, errOrderedBool
	case KindInt:
		n, err := strconv.ParseInt(lit, 10, 32)
		if err != nil {
			return false, errMismatch
		}
		return ordered(int64(v.i), n, op)
	default:
		n, err := strconv.ParseUint(lit, 10, 32)
		if err != nil {
			return false, errMismatch
		}
		return ordered(uint64(v.u), n, op)
	}
}

func ordered[T int64 | uint64](a, b T, op string) (bool, error) {
	switch op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	}
	return false, errOperator
}

// ShaderDefs maps def names to values.
type ShaderDefs map[string]ShaderDefValue

// Clone returns an independent copy; a nil receiver yields an empty map.
func (d ShaderDefs) Clone() ShaderDefs {
	out := make(ShaderDefs, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Names returns the def names in sorted order.
func (d ShaderDefs) Names() []string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Key is a canonical encoding of the set, stable across map order.
func (d ShaderDefs) Key() string {
	var sb strings.Builder
	for i, name := range d.Names() {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(d[name].GoString())
	}
	return sb.String()
}

// Restrict returns the subset of d whose names appear in names.
func (d ShaderDefs) Restrict(names []string) ShaderDefs {
	out := make(ShaderDefs)
	for _, n := range names {
		if v, ok := d[n]; ok {
			out[n] = v
		}
	}
	return out
}

// Equal reports whether both sets hold the same names and values.
func (d ShaderDefs) Equal(other ShaderDefs) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Merge returns d overlaid with other. If a name is bound to different
// values in both sets the first such name (sorted) is returned as conflict.
func (d ShaderDefs) Merge(other ShaderDefs) (merged ShaderDefs, conflict string) {
	merged = d.Clone()
	for _, name := range other.Names() {
		v := other[name]
		if cur, ok := merged[name]; ok && cur != v && conflict == "" {
			conflict = name
		}
		merged[name] = v
	}
	return merged, conflict
}
