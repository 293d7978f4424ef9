// Copyright 2020-2024 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bufvalidate

import (
	"errors"
	"testing"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringLength(t *testing.T) {
	t.Parallel()
	// Three code points, nine bytes.
	const value = "你好吖"
	testCases := []struct {
		name  string
		rules *bufvalidaterule.StringRules
		code  Code
	}{
		{
			name:  "len_ok",
			rules: &bufvalidaterule.StringRules{Len: bufvalidaterule.Of[uint64](3)},
		},
		{
			name:  "len_bytes_ok",
			rules: &bufvalidaterule.StringRules{LenBytes: bufvalidaterule.Of[uint64](9)},
		},
		{
			name:  "max_len_ok",
			rules: &bufvalidaterule.StringRules{MaxLen: bufvalidaterule.Of[uint64](3)},
		},
		{
			name:  "len_counts_code_points",
			rules: &bufvalidaterule.StringRules{Len: bufvalidaterule.Of[uint64](9)},
			code:  CodeLen,
		},
		{
			name:  "min_bytes",
			rules: &bufvalidaterule.StringRules{MinBytes: bufvalidaterule.Of[uint64](10)},
			code:  CodeMinBytes,
		},
		{
			name:  "max_bytes",
			rules: &bufvalidaterule.StringRules{MaxBytes: bufvalidaterule.Of[uint64](8)},
			code:  CodeMaxBytes,
		},
		{
			name:  "min_len",
			rules: &bufvalidaterule.StringRules{MinLen: bufvalidaterule.Of[uint64](4)},
			code:  CodeMinLen,
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			checker, err := NewStringChecker(testCase.rules)
			require.NoError(t, err)
			err = checker.Check(value)
			if testCase.code == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, testCase.code, requireViolation(t, err).Code)
		})
	}
}

func TestStringRules(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		rules   *bufvalidaterule.StringRules
		valid   []string
		invalid []string
		code    Code
		ruleID  string
	}{
		{
			name:    "const",
			rules:   &bufvalidaterule.StringRules{Const: bufvalidaterule.Of("foo")},
			valid:   []string{"foo"},
			invalid: []string{"", "bar"},
			code:    CodeConst,
			ruleID:  "string.const",
		},
		{
			name:    "pattern",
			rules:   &bufvalidaterule.StringRules{Pattern: bufvalidaterule.Of("^[a-z]+$")},
			valid:   []string{"abc"},
			invalid: []string{"", "ABC", "a1"},
			code:    CodePattern,
			ruleID:  "string.pattern",
		},
		{
			name:    "prefix",
			rules:   &bufvalidaterule.StringRules{Prefix: bufvalidaterule.Of("foo")},
			valid:   []string{"foo", "foobar"},
			invalid: []string{"", "barfoo"},
			code:    CodePrefix,
			ruleID:  "string.prefix",
		},
		{
			name:    "suffix",
			rules:   &bufvalidaterule.StringRules{Suffix: bufvalidaterule.Of("bar")},
			valid:   []string{"bar", "foobar"},
			invalid: []string{"barfoo"},
			code:    CodeSuffix,
			ruleID:  "string.suffix",
		},
		{
			name:    "contains",
			rules:   &bufvalidaterule.StringRules{Contains: bufvalidaterule.Of("oo")},
			valid:   []string{"foo"},
			invalid: []string{"fo"},
			code:    CodeContains,
			ruleID:  "string.contains",
		},
		{
			name:    "not_contains",
			rules:   &bufvalidaterule.StringRules{NotContains: bufvalidaterule.Of("oo")},
			valid:   []string{"fo"},
			invalid: []string{"foo"},
			code:    CodeNotContains,
			ruleID:  "string.not_contains",
		},
		{
			name:    "in",
			rules:   &bufvalidaterule.StringRules{In: []string{"a", "b"}},
			valid:   []string{"a", "b"},
			invalid: []string{"", "c"},
			code:    CodeIn,
			ruleID:  "string.in",
		},
		{
			name:    "not_in",
			rules:   &bufvalidaterule.StringRules{NotIn: []string{"a", "b"}},
			valid:   []string{"", "c"},
			invalid: []string{"a"},
			code:    CodeNotIn,
			ruleID:  "string.not_in",
		},
		{
			name:    "email",
			rules:   &bufvalidaterule.StringRules{WellKnown: bufvalidaterule.WellKnownStringEmail},
			valid:   []string{"foo@bar.com"},
			invalid: []string{"", "foo", "Foo <foo@bar.com>", "foo@-bar.com"},
			code:    CodeEmail,
			ruleID:  "string.email",
		},
		{
			name:    "hostname",
			rules:   &bufvalidaterule.StringRules{WellKnown: bufvalidaterule.WellKnownStringHostname},
			valid:   []string{"example.com", "a-b.example.com"},
			invalid: []string{"", "-a.com", "a_b.com"},
			code:    CodeHostname,
			ruleID:  "string.hostname",
		},
		{
			name:    "ipv4",
			rules:   &bufvalidaterule.StringRules{WellKnown: bufvalidaterule.WellKnownStringIPv4},
			valid:   []string{"192.168.0.1"},
			invalid: []string{"::1", "256.0.0.1"},
			code:    CodeIPv4,
			ruleID:  "string.ipv4",
		},
		{
			name:    "ipv6",
			rules:   &bufvalidaterule.StringRules{WellKnown: bufvalidaterule.WellKnownStringIPv6},
			valid:   []string{"::1", "2001:db8::1"},
			invalid: []string{"192.168.0.1"},
			code:    CodeIPv6,
			ruleID:  "string.ipv6",
		},
		{
			name:    "uri",
			rules:   &bufvalidaterule.StringRules{WellKnown: bufvalidaterule.WellKnownStringURI},
			valid:   []string{"https://example.com/foo?bar=baz"},
			invalid: []string{"/foo/bar"},
			code:    CodeURI,
			ruleID:  "string.uri",
		},
		{
			name:    "http_header_name",
			rules:   &bufvalidaterule.StringRules{WellKnown: bufvalidaterule.WellKnownStringHTTPHeaderName},
			valid:   []string{"Content-Type", ":authority"},
			invalid: []string{"", "Content Type"},
			code:    CodeHTTPHeaderName,
			ruleID:  "string.well_known_regex.header_name",
		},
		{
			name: "http_header_name_lenient",
			rules: &bufvalidaterule.StringRules{
				WellKnown: bufvalidaterule.WellKnownStringHTTPHeaderName,
				Lenient:   true,
			},
			valid:   []string{"Content Type"},
			invalid: []string{"", "foo\r\nbar"},
			code:    CodeHTTPHeaderName,
			ruleID:  "string.well_known_regex.header_name",
		},
		{
			name: "ignore_empty",
			rules: &bufvalidaterule.StringRules{
				MinLen:      bufvalidaterule.Of[uint64](3),
				IgnoreEmpty: true,
			},
			valid:   []string{"", "foo"},
			invalid: []string{"fo"},
			code:    CodeMinLen,
			ruleID:  "string.min_len",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			checker, err := NewStringChecker(testCase.rules)
			require.NoError(t, err)
			for _, value := range testCase.valid {
				assert.NoError(t, checker.Check(value), "value %q", value)
			}
			for _, value := range testCase.invalid {
				violation := requireViolation(t, checker.Check(value))
				assert.Equal(t, testCase.code, violation.Code, "value %q", value)
				assert.Equal(t, testCase.ruleID, violation.RuleID, "value %q", value)
			}
		})
	}
}

func TestStringUUID(t *testing.T) {
	t.Parallel()
	checker, err := NewStringChecker(&bufvalidaterule.StringRules{WellKnown: bufvalidaterule.WellKnownStringUUID})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		id, err := uuid.NewV4()
		require.NoError(t, err)
		assert.NoError(t, checker.Check(id.String()))
	}
	violation := requireViolation(t, checker.Check("not-a-uuid"))
	assert.Equal(t, CodeUUID, violation.Code)
	assert.Equal(t, "value must be a valid UUID", violation.Message)
}

func TestStringInvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := NewStringChecker(&bufvalidaterule.StringRules{Pattern: bufvalidaterule.Of("[")})
	require.Error(t, err)
	invalidRulesError := &InvalidRulesError{}
	assert.True(t, errors.As(err, &invalidRulesError))
}

func TestBytesRules(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		rules   *bufvalidaterule.BytesRules
		valid   [][]byte
		invalid [][]byte
		code    Code
	}{
		{
			name:    "const",
			rules:   &bufvalidaterule.BytesRules{Const: bufvalidaterule.Of([]byte("foo"))},
			valid:   [][]byte{[]byte("foo")},
			invalid: [][]byte{nil, []byte("bar")},
			code:    CodeConst,
		},
		{
			name:    "len",
			rules:   &bufvalidaterule.BytesRules{Len: bufvalidaterule.Of[uint64](2)},
			valid:   [][]byte{{1, 2}},
			invalid: [][]byte{{1}, {1, 2, 3}},
			code:    CodeLen,
		},
		{
			name:    "pattern",
			rules:   &bufvalidaterule.BytesRules{Pattern: bufvalidaterule.Of("^[a-z]+$")},
			valid:   [][]byte{[]byte("abc")},
			invalid: [][]byte{[]byte("ABC"), {0xff, 0xfe}},
			code:    CodePattern,
		},
		{
			name:    "prefix",
			rules:   &bufvalidaterule.BytesRules{Prefix: []byte{0x01}},
			valid:   [][]byte{{0x01, 0x02}},
			invalid: [][]byte{{0x02, 0x01}},
			code:    CodePrefix,
		},
		{
			name:    "in",
			rules:   &bufvalidaterule.BytesRules{In: [][]byte{[]byte("a"), []byte("b")}},
			valid:   [][]byte{[]byte("a")},
			invalid: [][]byte{[]byte("c")},
			code:    CodeIn,
		},
		{
			name:    "ip",
			rules:   &bufvalidaterule.BytesRules{WellKnown: bufvalidaterule.WellKnownBytesIP},
			valid:   [][]byte{{127, 0, 0, 1}, make([]byte, 16)},
			invalid: [][]byte{{1, 2, 3}},
			code:    CodeIP,
		},
		{
			name:    "ipv4",
			rules:   &bufvalidaterule.BytesRules{WellKnown: bufvalidaterule.WellKnownBytesIPv4},
			valid:   [][]byte{{127, 0, 0, 1}},
			invalid: [][]byte{make([]byte, 16)},
			code:    CodeIPv4,
		},
		{
			name: "ignore_empty",
			rules: &bufvalidaterule.BytesRules{
				MinLen:      bufvalidaterule.Of[uint64](2),
				IgnoreEmpty: true,
			},
			valid:   [][]byte{nil, {1, 2}},
			invalid: [][]byte{{1}},
			code:    CodeMinLen,
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			checker, err := NewBytesChecker(testCase.rules)
			require.NoError(t, err)
			for _, value := range testCase.valid {
				assert.NoError(t, checker.Check(value), "value %x", value)
			}
			for _, value := range testCase.invalid {
				violation := requireViolation(t, checker.Check(value))
				assert.Equal(t, testCase.code, violation.Code, "value %x", value)
			}
		})
	}
}

func TestBool(t *testing.T) {
	t.Parallel()
	checker := NewBoolChecker(&bufvalidaterule.BoolRules{Const: bufvalidaterule.Of(true)})
	assert.NoError(t, checker.Check(true))
	violation := requireViolation(t, checker.Check(false))
	assert.Equal(t, CodeConst, violation.Code)
	assert.Equal(t, "bool.const", violation.RuleID)
	assert.Equal(t, "value must equal true", violation.Message)
}
