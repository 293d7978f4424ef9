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
	"testing"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidatetesting"
	"github.com/bufbuild/protovalidate-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAgreesWithProtovalidate checks that messages pass and fail the same
// rules that protovalidate-go enforces.
func TestAgreesWithProtovalidate(t *testing.T) {
	t.Parallel()
	file := bufvalidatetesting.NewFile(
		t,
		`
message Range {
  int32 val = 1 [(buf.validate.field).int32 = {gt: 0, lte: 10}];
}

message Exclusive {
  int64 val = 1 [(buf.validate.field).int64 = {lt: 0, gt: 10}];
}

message ExclusiveInclusive {
  uint32 val = 1 [(buf.validate.field).uint32 = {lte: 3, gte: 7}];
}

message DoubleIn {
  double val = 1 [(buf.validate.field).double = {in: [1.5, 2.5]}];
}

message Strings {
  string val = 1 [(buf.validate.field).string = {
    min_len: 2,
    max_len: 4,
    prefix: "a",
    not_contains: "z"
  }];
}

message Pattern {
  string val = 1 [(buf.validate.field).string.pattern = "^[a-z]+[0-9]$"];
}

message Bytes {
  bytes val = 1 [(buf.validate.field).bytes = {min_len: 1, max_len: 3}];
}

message List {
  repeated int32 val = 1 [(buf.validate.field).repeated = {
    min_items: 1,
    max_items: 3,
    unique: true
  }];
}
`,
	)
	protovalidateValidator, err := protovalidate.New()
	require.NoError(t, err)
	registry := NewRegistry()
	testCases := []struct {
		message string
		json    []string
	}{
		{
			message: "Range",
			json:    []string{``, `{"val": 1}`, `{"val": 10}`, `{"val": 11}`, `{"val": -5}`},
		},
		{
			message: "Exclusive",
			json:    []string{`{"val": "-1"}`, `{"val": "0"}`, `{"val": "5"}`, `{"val": "10"}`, `{"val": "11"}`},
		},
		{
			message: "ExclusiveInclusive",
			json:    []string{``, `{"val": 3}`, `{"val": 4}`, `{"val": 6}`, `{"val": 7}`, `{"val": 8}`},
		},
		{
			message: "DoubleIn",
			json:    []string{`{"val": 1.5}`, `{"val": 2}`, ``},
		},
		{
			message: "Strings",
			json:    []string{``, `{"val": "a"}`, `{"val": "ab"}`, `{"val": "abcd"}`, `{"val": "abcde"}`, `{"val": "ba"}`, `{"val": "az"}`, `{"val": "añb"}`},
		},
		{
			message: "Pattern",
			json:    []string{``, `{"val": "abc1"}`, `{"val": "abc"}`, `{"val": "1abc1"}`},
		},
		{
			message: "Bytes",
			json:    []string{``, `{"val": "AQ=="}`, `{"val": "AQID"}`, `{"val": "AQIDBA=="}`},
		},
		{
			message: "List",
			json:    []string{``, `{"val": [1]}`, `{"val": [1, 2, 3]}`, `{"val": [1, 2, 3, 4]}`, `{"val": [1, 1]}`},
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.message, func(t *testing.T) {
			t.Parallel()
			for _, json := range testCase.json {
				message := file.NewMessage(t, testCase.message, json)
				err := Validate(registry, message)
				expected := protovalidateValidator.Validate(message)
				assert.Equal(t, expected == nil, err == nil, "%s %s: protovalidate returned %v, got %v", testCase.message, json, expected, err)
			}
		})
	}
}
