// Package config holds the value conversion shared by the configuration
// stores. Store implementations live in sub-packages.
package config

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Lookup returns the raw value stored under key.
type Lookup func(key string) (any, bool)

// Typed derives the typed getters of driven.ConfigReader from a Lookup.
// Strings only come from string values. Numbers and booleans are also parsed
// from strings, since environment overrides always arrive as text.
type Typed struct {
	Lookup Lookup
}

func (t Typed) raw(key string) (any, bool) {
	v, ok := t.Lookup(key)
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s), true
	}
	return v, true
}

// GetString returns a string value.
func (t Typed) GetString(key string) string {
	v, _ := t.Lookup(key)
	s, _ := v.(string)
	return s
}

// GetInt returns an integer value. Floats are truncated.
func (t Typed) GetInt(key string) int {
	v, ok := t.raw(key)
	if !ok {
		return 0
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0
	}
	return n
}

// GetFloat returns a float value. Integers are widened.
func (t Typed) GetFloat(key string) float64 {
	v, ok := t.raw(key)
	if !ok {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

// GetBool returns a boolean value.
func (t Typed) GetBool(key string) bool {
	v, ok := t.raw(key)
	if !ok {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

// GetDuration returns a time.Duration or a parsed duration string. Bare
// numbers are rejected so "90" is not read as nanoseconds.
func (t Typed) GetDuration(key string) time.Duration {
	v, ok := t.raw(key)
	if !ok {
		return 0
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// GetStringSlice returns a list. A string is split on commas.
func (t Typed) GetStringSlice(key string) []string {
	v, ok := t.raw(key)
	if !ok {
		return nil
	}
	if s, isString := v.(string); isString {
		return SplitList(s)
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil
	}
	return list
}

// SplitList splits a comma-separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
