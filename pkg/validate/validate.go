// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package validate

import (
	"cmp"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// 🚫 Kinds of validation failure, matchable with errors.Is
var (
	ErrNil        = errors.Base("value is nil")
	ErrEmpty      = errors.Base("value is empty")
	ErrOutOfRange = errors.Base("value is out of range")
	ErrFormat     = errors.Base("value has an invalid format")
	ErrInvalid    = errors.Base("value is invalid")
)

// Number is any integer or float type.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// 🎯 ArgumentError describes a single failed assertion
type ArgumentError struct {
	Name    string // Argument or property name
	Owner   string // Owning type for property errors
	Message string // Human readable reason
	Value   any    // Offending value, if any

	kind error
}

func (e *ArgumentError) Error() string {
	if e.Owner != "" {
		return e.Owner + "." + e.Name + ": " + e.Message
	}
	return e.Name + ": " + e.Message
}

func (e *ArgumentError) Unwrap() error {
	return e.kind
}

func newError(kind error, name string, value any, format string, args ...any) *ArgumentError {
	return &ArgumentError{
		Name:    name,
		Message: fmt.Sprintf(format, args...),
		Value:   value,
		kind:    kind,
	}
}

// NotNil fails when v is nil, including typed nils held in an interface.
func NotNil(name string, v any) error {
	if isNil(v) {
		return newError(ErrNil, name, v, "must not be nil")
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// NotEmpty fails on the empty string.
func NotEmpty(name, s string) error {
	if s == "" {
		return newError(ErrEmpty, name, s, "must not be empty")
	}
	return nil
}

// NotBlank fails on the empty string or one made only of whitespace.
func NotBlank(name, s string) error {
	if strings.TrimSpace(s) == "" {
		return newError(ErrEmpty, name, s, "must not be blank")
	}
	return nil
}

// NotEmptySlice fails on a nil or zero-length slice.
func NotEmptySlice[T any](name string, s []T) error {
	if len(s) == 0 {
		return newError(ErrEmpty, name, s, "must contain at least one item")
	}
	return nil
}

// MinLength checks s has at least n runes.
func MinLength(name, s string, n int) error {
	if l := utf8.RuneCountInString(s); l < n {
		return newError(ErrOutOfRange, name, s, "length %d is less than %d", l, n)
	}
	return nil
}

// MaxLength checks s has at most n runes.
func MaxLength(name, s string, n int) error {
	if l := utf8.RuneCountInString(s); l > n {
		return newError(ErrOutOfRange, name, s, "length %d exceeds %d", l, n)
	}
	return nil
}

// Length checks the rune count of s is within [min, max].
func Length(name, s string, min, max int) error {
	if l := utf8.RuneCountInString(s); l < min || l > max {
		return newError(ErrOutOfRange, name, s, "length %d is not between %d and %d", l, min, max)
	}
	return nil
}

// InRange checks min <= v <= max.
func InRange[T cmp.Ordered](name string, v, min, max T) error {
	if cmp.Less(v, min) || cmp.Less(max, v) {
		return newError(ErrOutOfRange, name, v, "%v is not between %v and %v", v, min, max)
	}
	return nil
}

// Min checks v >= min.
func Min[T cmp.Ordered](name string, v, min T) error {
	if cmp.Less(v, min) {
		return newError(ErrOutOfRange, name, v, "%v is less than %v", v, min)
	}
	return nil
}

// Max checks v <= max.
func Max[T cmp.Ordered](name string, v, max T) error {
	if cmp.Less(max, v) {
		return newError(ErrOutOfRange, name, v, "%v is greater than %v", v, max)
	}
	return nil
}

// Positive checks v > 0.
func Positive[T Number](name string, v T) error {
	if v <= 0 {
		return newError(ErrOutOfRange, name, v, "%v must be positive", v)
	}
	return nil
}

// NonNegative checks v >= 0.
func NonNegative[T Number](name string, v T) error {
	if v < 0 {
		return newError(ErrOutOfRange, name, v, "%v must not be negative", v)
	}
	return nil
}

// Matches checks s against re. A nil expression is reported as ErrInvalid.
func Matches(name, s string, re *regexp.Regexp) error {
	if re == nil {
		return newError(ErrInvalid, name, s, "no pattern to match against")
	}
	if !re.MatchString(s) {
		return newError(ErrFormat, name, s, "%q does not match %s", s, re.String())
	}
	return nil
}

// OneOf checks v is equal to one of allowed.
func OneOf[T comparable](name string, v T, allowed ...T) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return newError(ErrInvalid, name, v, "%v is not one of %v", v, allowed)
}

// True fails with message when cond does not hold.
func True(name string, cond bool, message string) error {
	if !cond {
		return newError(ErrInvalid, name, nil, "%s", message)
	}
	return nil
}

// Property labels ArgumentErrors as belonging to owner. A joined error is
// relabelled member by member. Other errors pass through unchanged.
func Property(owner string, err error) error {
	out, _ := relabel(owner, err)
	return out
}

// relabel reports whether err held an ArgumentError to relabel.
func relabel(owner string, err error) (error, bool) {
	switch e := err.(type) {
	case nil:
		return nil, false
	case *ArgumentError:
		cp := *e
		if cp.Owner != "" {
			cp.Owner = owner + "." + cp.Owner
		} else {
			cp.Owner = owner
		}
		return &cp, true
	case interface{ Unwrap() []error }:
		members := e.Unwrap()
		out := make([]error, len(members))
		changed := false
		for i, m := range members {
			var ok bool
			out[i], ok = relabel(owner, m)
			changed = changed || ok
		}
		if !changed {
			return err, false
		}
		return All(out...), true
	default:
		return err, false
	}
}

// All joins every non-nil error. It returns nil when nothing failed.
func All(errs ...error) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return errors.Join(failed...)
}

// Must panics on a failed assertion.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}
