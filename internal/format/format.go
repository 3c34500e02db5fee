// Package format turns gauge values into display text.
//
// Profiles may attach a formatter to a gauge. A formatter is either the
// name of a preset (see Presets) or a template such as
//
//	${$value.toFixed(1)} kt
//	${(round($value) % 360).toFixed(0).padStart(3, '0')}
//
// Templates are compiled once by Compile and evaluated by a small
// interpreter over a single numeric variable. Nothing in a template can
// reach the process environment.
package format

import (
	"math"
	"strconv"
)

// Sentinel is rendered in place of a non-finite value.
const Sentinel = "X"

// Presets maps preset names to their template source.
var Presets = map[string]string{
	"int":       "${$value.toFixed(0)}",
	"fixed1":    "${$value.toFixed(1)}",
	"fixed2":    "${$value.toFixed(2)}",
	"heading":   "${((round($value) % 360 + 360) % 360).toFixed(0).padStart(3, '0')}",
	"percent":   "${($value * 100).toFixed(0)}%",
	"thousands": "${($value / 1000).toFixed(1)}k",
}

// Value applies the shared numeric formatting rule: a non-finite value
// yields Sentinel, a nil template yields the integer string, otherwise the
// template output. A template that fails at evaluation time falls back to
// the integer string.
func Value(t *Template, v float64) string {
	if !IsFinite(v) {
		return Sentinel
	}
	if t == nil {
		return Integer(v)
	}
	s, err := t.Execute(v)
	if err != nil {
		return Integer(v)
	}
	return s
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Integer formats v rounded to the nearest integer, halves away from zero.
func Integer(v float64) string {
	return ToFixed(v, 0)
}

// ToFixed formats v with exactly digits decimals. Ties round away from
// zero and negative zero prints as zero.
func ToFixed(v float64, digits int) string {
	if !IsFinite(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if digits < 0 {
		digits = 0
	}
	if digits > 20 {
		digits = 20
	}
	if digits <= 15 {
		p := math.Pow(10, float64(digits))
		if r := math.Round(v*p) / p; IsFinite(r) {
			v = r
		}
	}
	s := strconv.FormatFloat(v, 'f', digits, 64)
	if isNegativeZero(s) {
		s = s[1:]
	}
	return s
}

func isNegativeZero(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	for _, c := range s[1:] {
		if c != '0' && c != '.' {
			return false
		}
	}
	return true
}

// numberString mirrors how a template converts a number to text when it is
// concatenated without toFixed.
func numberString(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e21 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
