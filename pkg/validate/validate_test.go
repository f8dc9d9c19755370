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
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestAssertions(t *testing.T) {
	var nilPtr *int
	var nilMap map[string]int
	one := 1

	tests := []struct {
		name    string
		err     error
		wantErr error
		wantMsg string
	}{
		{name: "not_nil_ok", err: NotNil("p", &one)},
		{name: "not_nil_untyped", err: NotNil("p", nil), wantErr: ErrNil, wantMsg: "p: must not be nil"},
		{name: "not_nil_typed_pointer", err: NotNil("p", nilPtr), wantErr: ErrNil},
		{name: "not_nil_typed_map", err: NotNil("m", nilMap), wantErr: ErrNil},
		{name: "not_nil_value_type", err: NotNil("n", 0)},
		{name: "not_empty_ok", err: NotEmpty("s", "x")},
		{name: "not_empty_fail", err: NotEmpty("s", ""), wantErr: ErrEmpty},
		{name: "not_blank_whitespace", err: NotBlank("s", " \t\n"), wantErr: ErrEmpty, wantMsg: "s: must not be blank"},
		{name: "not_blank_ok", err: NotBlank("s", " a ")},
		{name: "not_empty_slice_nil", err: NotEmptySlice[string]("items", nil), wantErr: ErrEmpty},
		{name: "not_empty_slice_ok", err: NotEmptySlice("items", []int{1})},
		{name: "min_length_runes", err: MinLength("s", "héé", 3)},
		{name: "min_length_fail", err: MinLength("s", "ab", 3), wantErr: ErrOutOfRange, wantMsg: "s: length 2 is less than 3"},
		{name: "max_length_fail", err: MaxLength("s", "abcd", 3), wantErr: ErrOutOfRange},
		{name: "length_ok", err: Length("s", "abc", 1, 3)},
		{name: "length_fail", err: Length("s", "", 1, 3), wantErr: ErrOutOfRange},
		{name: "in_range_inclusive_low", err: InRange("n", 1, 1, 10)},
		{name: "in_range_inclusive_high", err: InRange("n", 10, 1, 10)},
		{name: "in_range_fail", err: InRange("n", 11, 1, 10), wantErr: ErrOutOfRange, wantMsg: "n: 11 is not between 1 and 10"},
		{name: "in_range_strings", err: InRange("s", "m", "a", "z")},
		{name: "min_fail", err: Min("f", 0.5, 1.0), wantErr: ErrOutOfRange},
		{name: "max_fail", err: Max("n", 5, 4), wantErr: ErrOutOfRange},
		{name: "positive_zero", err: Positive("n", 0), wantErr: ErrOutOfRange},
		{name: "positive_ok", err: Positive("n", uint8(3))},
		{name: "non_negative_zero", err: NonNegative("n", 0)},
		{name: "non_negative_fail", err: NonNegative("n", -0.1), wantErr: ErrOutOfRange},
		{name: "matches_ok", err: Matches("id", "abc-123", regexp.MustCompile(`^[a-z]+-\d+$`))},
		{name: "matches_fail", err: Matches("id", "ABC", regexp.MustCompile(`^[a-z]+$`)), wantErr: ErrFormat},
		{name: "matches_nil_pattern", err: Matches("id", "x", nil), wantErr: ErrInvalid},
		{name: "one_of_ok", err: OneOf("mode", "b", "a", "b")},
		{name: "one_of_fail", err: OneOf("mode", "c", "a", "b"), wantErr: ErrInvalid, wantMsg: "mode: c is not one of [a b]"},
		{name: "true_fail", err: True("cond", false, "must hold"), wantErr: ErrInvalid, wantMsg: "cond: must hold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr == nil {
				assert.NoError(t, tt.err)
				return
			}
			require.Error(t, tt.err)
			assert.ErrorIs(t, tt.err, tt.wantErr)
			var aerr *ArgumentError
			require.True(t, errors.As(tt.err, &aerr), "should be an ArgumentError")
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, tt.err.Error())
			}
		})
	}
}

func TestProperty(t *testing.T) {
	err := Property("Server", NotBlank("Listen", ""))
	require.Error(t, err)
	assert.Equal(t, "Server.Listen: must not be blank", err.Error())
	assert.ErrorIs(t, err, ErrEmpty)

	nested := Property("Config", err)
	assert.Equal(t, "Config.Server.Listen: must not be blank", nested.Error())

	plain := errors.New("boom")
	assert.Equal(t, plain, Property("Server", plain))
	assert.NoError(t, Property("Server", nil))

	wrapped := errors.Errorf("loading: %w", NotEmpty("Name", ""))
	assert.Equal(t, wrapped, Property("Server", wrapped), "wrapped errors keep their own message")
}

func TestProperty_Joined(t *testing.T) {
	joined := All(NotEmpty("a", ""), NotEmpty("b", ""), plainErr)

	err := Property("owner", joined)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner.a: must not be empty")
	assert.Contains(t, err.Error(), "owner.b: must not be empty")
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, ErrEmpty)
	assert.ErrorIs(t, err, plainErr)

	untouched := All(plainErr, errors.New("bang"))
	assert.Equal(t, untouched, Property("owner", untouched))
}

var plainErr = errors.Base("boom")

func TestAll(t *testing.T) {
	assert.NoError(t, All())
	assert.NoError(t, All(nil, nil))

	err := All(nil, NotEmpty("a", ""), InRange("b", 5, 0, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "a: must not be empty")
	assert.Contains(t, err.Error(), "b: 5 is not between 0 and 1")
}

func TestMust(t *testing.T) {
	assert.NotPanics(t, func() { Must(nil) })
	assert.Panics(t, func() { Must(NotNil("x", nil)) })
}
