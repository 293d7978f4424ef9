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

package wellknownformat

import (
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHostname(t *testing.T) {
	t.Parallel()
	testIsValid(t, IsHostname, "example.com", true)
	testIsValid(t, IsHostname, "Example.COM.", true)
	testIsValid(t, IsHostname, "a-b.c1", true)
	testIsValid(t, IsHostname, "localhost", true)
	testIsValid(t, IsHostname, strings.Repeat("a", 63)+".com", true)
	testIsValid(t, IsHostname, strings.Repeat("a", 64)+".com", false)
	testIsValid(t, IsHostname, "-abc.com", false)
	testIsValid(t, IsHostname, "abc-.com", false)
	testIsValid(t, IsHostname, "a..com", false)
	testIsValid(t, IsHostname, "a_b.com", false)
	testIsValid(t, IsHostname, "", false)
	testIsValid(t, IsHostname, ".", false)
	testIsValid(t, IsHostname, "例子.com", false)
	// 4 labels of 63 plus 3 dots is 255 characters.
	label := strings.Repeat("a", 63)
	testIsValid(t, IsHostname, strings.Join([]string{label, label, label, label}, "."), false)
	testIsValid(t, IsHostname, strings.Join([]string{label, label, label, label[:61]}, "."), true)
}

func TestIsEmail(t *testing.T) {
	t.Parallel()
	testIsValid(t, IsEmail, "foo@bar.com", true)
	testIsValid(t, IsEmail, "foo.bar+baz@example.co.uk", true)
	testIsValid(t, IsEmail, "foobar", false)
	testIsValid(t, IsEmail, "foo@", false)
	testIsValid(t, IsEmail, "@bar.com", false)
	testIsValid(t, IsEmail, "Foo <foo@bar.com>", false)
	testIsValid(t, IsEmail, "<foo@bar.com>", false)
	testIsValid(t, IsEmail, "foo@-bar.com", false)
	testIsValid(t, IsEmail, strings.Repeat("a", 65)+"@bar.com", false)
}

func TestIsIP(t *testing.T) {
	t.Parallel()
	testIsValid(t, IsIP, "192.168.0.1", true)
	testIsValid(t, IsIP, "::1", true)
	testIsValid(t, IsIP, "256.0.0.1", false)
	testIsValid(t, IsIP, "example.com", false)
	testIsValid(t, IsIPv4, "192.168.0.1", true)
	testIsValid(t, IsIPv4, "::1", false)
	testIsValid(t, IsIPv4, "1.2.3", false)
	testIsValid(t, IsIPv6, "2001:db8::68", true)
	testIsValid(t, IsIPv6, "192.168.0.1", false)
	testIsValid(t, IsIPv6, "2001:db8:::68", false)
}

func TestIsAddress(t *testing.T) {
	t.Parallel()
	testIsValid(t, IsAddress, "127.0.0.1", true)
	testIsValid(t, IsAddress, "::1", true)
	testIsValid(t, IsAddress, "example.com", true)
	testIsValid(t, IsAddress, "example.com:8080", false)
	testIsValid(t, IsAddress, "-", false)
}

func TestIsURI(t *testing.T) {
	t.Parallel()
	testIsValid(t, IsURI, "https://example.com/foo?bar=baz#qux", true)
	testIsValid(t, IsURI, "urn:isbn:0451450523", true)
	testIsValid(t, IsURI, "/foo/bar", false)
	testIsValid(t, IsURI, "foo bar", false)
	testIsValid(t, IsURI, "http://[::1", false)
	testIsValid(t, IsURIRef, "/foo/bar", true)
	testIsValid(t, IsURIRef, "https://example.com", true)
	testIsValid(t, IsURIRef, "http://[::1", false)
}

func TestIsUUID(t *testing.T) {
	t.Parallel()
	generated, err := uuid.NewV4()
	require.NoError(t, err)
	testIsValid(t, IsUUID, generated.String(), true)
	testIsValid(t, IsUUID, strings.ToUpper(generated.String()), true)
	testIsValid(t, IsUUID, "00000000-0000-0000-0000-000000000000", true)
	testIsValid(t, IsUUID, "{"+generated.String()+"}", false)
	testIsValid(t, IsUUID, strings.ReplaceAll(generated.String(), "-", ""), false)
	testIsValid(t, IsUUID, "g0000000-0000-0000-0000-000000000000", false)
}

func TestIsIPBytes(t *testing.T) {
	t.Parallel()
	assert.True(t, IsIPv4Bytes([]byte{127, 0, 0, 1}))
	assert.False(t, IsIPv4Bytes(make([]byte, 16)))
	assert.True(t, IsIPv6Bytes(make([]byte, 16)))
	assert.False(t, IsIPv6Bytes(make([]byte, 4)))
	assert.True(t, IsIPBytes(make([]byte, 4)))
	assert.True(t, IsIPBytes(make([]byte, 16)))
	assert.False(t, IsIPBytes(make([]byte, 5)))
	assert.False(t, IsIPBytes(nil))
}

func TestIsHTTPHeaderName(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		strict  bool
		lenient bool
	}{
		{name: "Content-Type", strict: true, lenient: true},
		{name: ":authority", strict: true, lenient: true},
		{name: "::authority", strict: false, lenient: true},
		{name: ":", strict: false, lenient: true},
		{name: "", strict: false, lenient: false},
		{name: "foo bar", strict: false, lenient: true},
		{name: "foo\tbar", strict: false, lenient: true},
		{name: "foo\r\nbar", strict: false, lenient: false},
		{name: "foo\x00", strict: false, lenient: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.strict, IsHTTPHeaderName(testCase.name, true))
			assert.Equal(t, testCase.lenient, IsHTTPHeaderName(testCase.name, false))
		})
	}
}

func TestIsHTTPHeaderValue(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		value   string
		strict  bool
		lenient bool
	}{
		{value: "", strict: true, lenient: true},
		{value: "text/html; charset=utf-8", strict: true, lenient: true},
		{value: "a\tb", strict: true, lenient: true},
		{value: "a\x01b", strict: false, lenient: true},
		{value: "a\x7fb", strict: false, lenient: true},
		{value: "a\rb", strict: false, lenient: false},
		{value: "a\nb", strict: false, lenient: false},
		{value: "a\x00b", strict: false, lenient: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.value, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.strict, IsHTTPHeaderValue(testCase.value, true))
			assert.Equal(t, testCase.lenient, IsHTTPHeaderValue(testCase.value, false))
		})
	}
}

func testIsValid(t *testing.T, f func(string) bool, s string, expected bool) {
	assert.Equal(t, expected, f(s), "%q", s)
}
