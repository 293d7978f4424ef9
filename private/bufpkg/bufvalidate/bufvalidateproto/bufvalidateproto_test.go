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

package bufvalidateproto

import (
	"testing"
	"time"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidatetesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func TestResolveFieldRules(t *testing.T) {
	t.Parallel()
	file := bufvalidatetesting.NewFile(
		t,
		`
message Rules {
  int32 none = 1;
  uint32 range_val = 2 [(buf.validate.field).uint32 = {gte: 8, lte: 24}];
  sfixed64 in_val = 3 [(buf.validate.field).sfixed64 = {in: [1, 2, 3]}];
  float float_val = 4 [(buf.validate.field).float = {gt: 1.5}];
  string email_val = 5 [(buf.validate.field).string = {email: true, min_len: 3}];
  string header_val = 6 [(buf.validate.field).string = {well_known_regex: KNOWN_REGEX_HTTP_HEADER_NAME, strict: false}];
  bytes ip_val = 7 [(buf.validate.field).bytes = {ipv4: true, prefix: "\x01"}];
  string required_val = 8 [(buf.validate.field).required = true];
  string always_val = 9 [(buf.validate.field).ignore = IGNORE_ALWAYS];
  string unpopulated_val = 10 [
    (buf.validate.field).ignore = IGNORE_IF_UNPOPULATED,
    (buf.validate.field).string.max_len = 4
  ];
  repeated string list_val = 11 [(buf.validate.field).repeated = {
    min_items: 1,
    unique: true,
    items: {string: {prefix: "a"}}
  }];
  map<string, int64> map_val = 12 [(buf.validate.field).map = {
    keys: {string: {min_len: 1}},
    values: {int64: {lt: 0}}
  }];
  google.protobuf.Duration duration_val = 13 [
    (buf.validate.field).required = true,
    (buf.validate.field).duration = {lt: {seconds: 60}}
  ];
  google.protobuf.Timestamp timestamp_val = 14 [(buf.validate.field).timestamp = {lt_now: true, within: {seconds: 3600}}];
  google.protobuf.Any any_val = 15 [(buf.validate.field).any = {not_in: ["type.googleapis.com/foo.Bar"]}];
  int32 cel_val = 16 [(buf.validate.field).cel = {id: "even", message: "must be even", expression: "this % 2 == 0"}];
  Enum enum_val = 17 [(buf.validate.field).enum = {defined_only: true, const: 1}];
}

enum Enum {
  ENUM_UNSPECIFIED = 0;
  ENUM_ONE = 1;
}
`,
	)
	messageDescriptor := file.MessageDescriptor(t, "Rules")
	resolver := NewResolver()
	testCases := []struct {
		field    string
		expected *bufvalidaterule.FieldRules
	}{
		{
			field: "range_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.UInt32Rules{
					Gte: bufvalidaterule.Of[uint32](8),
					Lte: bufvalidaterule.Of[uint32](24),
				},
			},
		},
		{
			field: "in_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.Int64Rules{
					In: []int64{1, 2, 3},
				},
			},
		},
		{
			field: "float_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.FloatRules{
					Gt: bufvalidaterule.Of[float32](1.5),
				},
			},
		},
		{
			field: "email_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.StringRules{
					MinLen:    bufvalidaterule.Of[uint64](3),
					WellKnown: bufvalidaterule.WellKnownStringEmail,
				},
			},
		},
		{
			field: "header_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.StringRules{
					WellKnown: bufvalidaterule.WellKnownStringHTTPHeaderName,
					Lenient:   true,
				},
			},
		},
		{
			field: "ip_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.BytesRules{
					Prefix:    []byte{1},
					WellKnown: bufvalidaterule.WellKnownBytesIPv4,
				},
			},
		},
		{
			field: "required_val",
			expected: &bufvalidaterule.FieldRules{
				Required: true,
			},
		},
		{
			field: "always_val",
			expected: &bufvalidaterule.FieldRules{
				Ignored: true,
			},
		},
		{
			field: "unpopulated_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.StringRules{
					MaxLen:      bufvalidaterule.Of[uint64](4),
					IgnoreEmpty: true,
				},
			},
		},
		{
			field: "list_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.RepeatedRules{
					MinItems: bufvalidaterule.Of[uint64](1),
					Unique:   true,
					Items: &bufvalidaterule.FieldRules{
						Type: &bufvalidaterule.StringRules{
							Prefix: bufvalidaterule.Of("a"),
						},
					},
				},
			},
		},
		{
			field: "map_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.MapRules{
					Keys: &bufvalidaterule.FieldRules{
						Type: &bufvalidaterule.StringRules{
							MinLen: bufvalidaterule.Of[uint64](1),
						},
					},
					Values: &bufvalidaterule.FieldRules{
						Type: &bufvalidaterule.Int64Rules{
							Lt: bufvalidaterule.Of[int64](0),
						},
					},
				},
			},
		},
		{
			field: "duration_val",
			expected: &bufvalidaterule.FieldRules{
				Required: true,
				Type: &bufvalidaterule.DurationRules{
					Lt: bufvalidaterule.Of(bufvalidaterule.NewDuration(time.Minute)),
				},
			},
		},
		{
			field: "timestamp_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.TimestampRules{
					LtNow:  true,
					Within: bufvalidaterule.Of(time.Hour),
				},
			},
		},
		{
			field: "any_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.AnyRules{
					NotIn: []string{"type.googleapis.com/foo.Bar"},
				},
			},
		},
		{
			field: "cel_val",
			expected: &bufvalidaterule.FieldRules{
				Expressions: []*bufvalidaterule.Expression{
					{
						ID:         "even",
						Message:    "must be even",
						Expression: "this % 2 == 0",
					},
				},
			},
		},
		{
			field: "enum_val",
			expected: &bufvalidaterule.FieldRules{
				Type: &bufvalidaterule.EnumRules{
					Const:       bufvalidaterule.Of[int32](1),
					DefinedOnly: true,
				},
			},
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.field, func(t *testing.T) {
			t.Parallel()
			fieldDescriptor := messageDescriptor.Fields().ByName(protoreflect.Name(testCase.field))
			require.NotNil(t, fieldDescriptor)
			fieldRules, err := resolver.ResolveFieldRules(fieldDescriptor)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, fieldRules)
		})
	}
	t.Run("none", func(t *testing.T) {
		t.Parallel()
		fieldRules, err := resolver.ResolveFieldRules(messageDescriptor.Fields().ByName("none"))
		require.NoError(t, err)
		assert.Nil(t, fieldRules)
	})
}

func TestResolveMessageAndOneofConstraints(t *testing.T) {
	t.Parallel()
	file := bufvalidatetesting.NewFile(
		t,
		`
message Disabled {
  option (buf.validate.message).disabled = true;
}

message WithExpression {
  option (buf.validate.message).cel = {id: "a", expression: "this.a > 0"};
  int32 a = 1;
  oneof choice {
    option (buf.validate.oneof).required = true;
    string b = 2;
    string c = 3;
  }
  oneof other {
    string d = 4;
  }
}

message Plain {}
`,
	)
	resolver := NewResolver()
	constraints, err := resolver.ResolveMessageConstraints(file.MessageDescriptor(t, "Disabled"))
	require.NoError(t, err)
	require.NotNil(t, constraints)
	assert.True(t, constraints.Disabled)

	withExpression := file.MessageDescriptor(t, "WithExpression")
	constraints, err = resolver.ResolveMessageConstraints(withExpression)
	require.NoError(t, err)
	require.NotNil(t, constraints)
	assert.False(t, constraints.Disabled)
	assert.Equal(
		t,
		[]*bufvalidaterule.Expression{
			{
				ID:         "a",
				Expression: "this.a > 0",
			},
		},
		constraints.Expressions,
	)
	oneofConstraints, err := resolver.ResolveOneofConstraints(withExpression.Oneofs().ByName("choice"))
	require.NoError(t, err)
	assert.Equal(t, &bufvalidaterule.OneofConstraints{Required: true}, oneofConstraints)
	oneofConstraints, err = resolver.ResolveOneofConstraints(withExpression.Oneofs().ByName("other"))
	require.NoError(t, err)
	assert.Nil(t, oneofConstraints)

	constraints, err = resolver.ResolveMessageConstraints(file.MessageDescriptor(t, "Plain"))
	require.NoError(t, err)
	assert.Nil(t, constraints)
}
