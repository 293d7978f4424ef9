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
	"time"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidatetesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProtoBody = `
message Int32Gtelte {
  int32 val = 1 [(buf.validate.field).int32 = {gte: 8, lte: 24}];
}

message Sint32Inverted {
  sint32 val = 1 [(buf.validate.field).sint32 = {lt: 0, gt: 10}];
}

message StringEmail {
  string val = 1 [(buf.validate.field).string.email = true];
}

message StringIgnoreEmpty {
  string val = 1 [
    (buf.validate.field).string.min_len = 3,
    (buf.validate.field).ignore = IGNORE_IF_UNPOPULATED
  ];
}

message OptionalInt32 {
  optional int32 val = 1 [(buf.validate.field).int32.gt = 0];
}

message ImplicitInt32 {
  int32 val = 1 [(buf.validate.field).int32.gt = 0];
}

message RepeatedUnique {
  repeated string val = 1 [(buf.validate.field).repeated.unique = true];
}

message RepeatedFloatUnique {
  repeated float val = 1 [(buf.validate.field).repeated.unique = true];
}

message RepeatedItems {
  repeated int64 val = 1 [(buf.validate.field).repeated = {
    min_items: 1,
    items: {int64: {gt: 0}}
  }];
}

message Nested {
  string val = 1 [(buf.validate.field).string.const = "foo"];
}

message MessageRequired {
  Nested val = 1 [(buf.validate.field).required = true];
}

message MessageIgnored {
  Nested val = 1 [(buf.validate.field).ignore = IGNORE_ALWAYS];
}

message RepeatedNested {
  repeated Nested val = 1;
}

message MapRules {
  map<string, int32> val = 1 [(buf.validate.field).map = {
    max_pairs: 3,
    keys: {string: {min_len: 2}},
    values: {int32: {gt: 0}}
  }];
}

message MapNested {
  map<int32, Nested> val = 1;
}

message OneofRequired {
  oneof choice {
    option (buf.validate.oneof).required = true;
    string a = 1;
    int32 b = 2 [(buf.validate.field).int32.gt = 5];
  }
}

message Enum {
  enum State {
    STATE_UNSPECIFIED = 0;
    STATE_ON = 1;
    STATE_OFF = 2;
  }
  State val = 1 [(buf.validate.field).enum = {defined_only: true, not_in: [2]}];
}

message AnyIn {
  google.protobuf.Any val = 1 [(buf.validate.field).any = {
    in: ["type.googleapis.com/google.protobuf.Duration"]
  }];
}

message DurationRequired {
  google.protobuf.Duration val = 1 [
    (buf.validate.field).required = true,
    (buf.validate.field).duration.gte = {seconds: 1}
  ];
}

message TimestampLtNow {
  google.protobuf.Timestamp val = 1 [(buf.validate.field).timestamp.lt_now = true];
}

message WrapperRules {
  google.protobuf.Int32Value val = 1 [(buf.validate.field).int32.gt = 10];
}

message FieldExpression {
  int32 val = 1 [(buf.validate.field).cel = {
    id: "val.even",
    message: "val must be even",
    expression: "this % 2 == 0"
  }];
}

message StringExpression {
  string val = 1 [(buf.validate.field).cel = {
    id: "val.email",
    expression: "this.isEmail() ? '' : 'val must be an email'"
  }];
}

message MessageExpression {
  option (buf.validate.message).cel = {
    id: "min.lte.max",
    message: "min must be less than or equal to max",
    expression: "this.min <= this.max"
  };
  int32 min = 1;
  int32 max = 2;
}

message Disabled {
  option (buf.validate.message).disabled = true;
  int32 val = 1 [(buf.validate.field).int32.gt = 0];
}

message Recursive {
  string name = 1 [(buf.validate.field).string.min_len = 1];
  Recursive child = 2;
}
`

type testScenario struct {
	name        string
	message     string
	json        string
	code        Code
	fieldPath   string
	ruleID      string
	deepestCode Code
}

func TestValidate(t *testing.T) {
	t.Parallel()
	file := bufvalidatetesting.NewFile(t, testProtoBody)
	registry := NewRegistry(
		RegistryWithNowFunc(func() time.Time { return testNow }),
	)
	testScenarios := []testScenario{
		{name: "int32_gte_lte_valid", message: "Int32Gtelte", json: `{"val": 8}`},
		{
			name:      "int32_gte_lte_below",
			message:   "Int32Gtelte",
			json:      `{"val": 7}`,
			code:      CodeGte,
			fieldPath: "val",
			ruleID:    "int32.gte_lte",
		},
		{
			name:      "int32_gte_lte_above",
			message:   "Int32Gtelte",
			json:      `{"val": 25}`,
			code:      CodeLte,
			fieldPath: "val",
			ruleID:    "int32.gte_lte",
		},
		{name: "sint32_inverted_below", message: "Sint32Inverted", json: `{"val": -1}`},
		{
			name:      "sint32_inverted_inside",
			message:   "Sint32Inverted",
			json:      `{"val": 5}`,
			code:      CodeNotInRange,
			fieldPath: "val",
			ruleID:    "sint32.gt_lt_exclusive",
		},
		{name: "string_email_valid", message: "StringEmail", json: `{"val": "foo@bar.com"}`},
		{
			name:      "string_email_invalid",
			message:   "StringEmail",
			json:      `{"val": "foo"}`,
			code:      CodeEmail,
			fieldPath: "val",
			ruleID:    "string.email",
		},
		{
			name:      "string_email_empty",
			message:   "StringEmail",
			json:      ``,
			code:      CodeEmail,
			fieldPath: "val",
			ruleID:    "string.email",
		},
		{name: "string_ignore_empty_unset", message: "StringIgnoreEmpty", json: ``},
		{
			name:      "string_ignore_empty_short",
			message:   "StringIgnoreEmpty",
			json:      `{"val": "ab"}`,
			code:      CodeMinLen,
			fieldPath: "val",
			ruleID:    "string.min_len",
		},
		{name: "optional_unset", message: "OptionalInt32", json: ``},
		{
			name:      "optional_set_zero",
			message:   "OptionalInt32",
			json:      `{"val": 0}`,
			code:      CodeGt,
			fieldPath: "val",
			ruleID:    "int32.gt",
		},
		{
			name:      "implicit_zero",
			message:   "ImplicitInt32",
			json:      ``,
			code:      CodeGt,
			fieldPath: "val",
			ruleID:    "int32.gt",
		},
		{name: "repeated_unique_valid", message: "RepeatedUnique", json: `{"val": ["foo", "bar"]}`},
		{name: "repeated_unique_case_sensitive", message: "RepeatedUnique", json: `{"val": ["foo", "Foo"]}`},
		{
			name:      "repeated_unique_duplicate",
			message:   "RepeatedUnique",
			json:      `{"val": ["foo", "bar", "foo"]}`,
			code:      CodeUnique,
			fieldPath: "val",
			ruleID:    "repeated.unique",
		},
		{
			name:      "repeated_float_unique_nan",
			message:   "RepeatedFloatUnique",
			json:      `{"val": ["NaN", 1, "NaN"]}`,
			code:      CodeUnique,
			fieldPath: "val",
			ruleID:    "repeated.unique",
		},
		{name: "repeated_float_unique_signed_zero", message: "RepeatedFloatUnique", json: `{"val": [0, -0]}`},
		{
			name:      "repeated_items_min",
			message:   "RepeatedItems",
			json:      ``,
			code:      CodeMinItems,
			fieldPath: "val",
			ruleID:    "repeated.min_items",
		},
		{
			name:        "repeated_items_item",
			message:     "RepeatedItems",
			json:        `{"val": ["1", "2", "0"]}`,
			code:        CodeItem,
			fieldPath:   "val[2]",
			ruleID:      "int64.gt",
			deepestCode: CodeGt,
		},
		{name: "message_required_valid", message: "MessageRequired", json: `{"val": {"val": "foo"}}`},
		{
			name:      "message_required_unset",
			message:   "MessageRequired",
			json:      ``,
			code:      CodeRequired,
			fieldPath: "val",
			ruleID:    "required",
		},
		{
			name:        "message_required_nested",
			message:     "MessageRequired",
			json:        `{"val": {"val": "bar"}}`,
			code:        CodeMessage,
			fieldPath:   "val.val",
			ruleID:      "string.const",
			deepestCode: CodeConst,
		},
		{name: "message_ignored", message: "MessageIgnored", json: `{"val": {"val": "bar"}}`},
		{
			name:        "repeated_nested",
			message:     "RepeatedNested",
			json:        `{"val": [{"val": "foo"}, {"val": "bar"}]}`,
			code:        CodeItem,
			fieldPath:   "val[1].val",
			ruleID:      "string.const",
			deepestCode: CodeConst,
		},
		{name: "map_valid", message: "MapRules", json: `{"val": {"ab": 1, "cd": 2}}`},
		{
			name:      "map_max_pairs",
			message:   "MapRules",
			json:      `{"val": {"ab": 1, "cd": 2, "ef": 3, "gh": 4}}`,
			code:      CodeMaxPairs,
			fieldPath: "val",
			ruleID:    "map.max_pairs",
		},
		{
			name:        "map_key",
			message:     "MapRules",
			json:        `{"val": {"ab": 1, "c": 2}}`,
			code:        CodeKeys,
			fieldPath:   `val["c"]`,
			ruleID:      "string.min_len",
			deepestCode: CodeMinLen,
		},
		{
			name:        "map_value",
			message:     "MapRules",
			json:        `{"val": {"ab": 1, "cd": 0}}`,
			code:        CodeValues,
			fieldPath:   `val["cd"]`,
			ruleID:      "int32.gt",
			deepestCode: CodeGt,
		},
		{
			name:        "map_value_sorted_first",
			message:     "MapRules",
			json:        `{"val": {"zz": 0, "aa": 0}}`,
			code:        CodeValues,
			fieldPath:   `val["aa"]`,
			ruleID:      "int32.gt",
			deepestCode: CodeGt,
		},
		{
			name:        "map_nested",
			message:     "MapNested",
			json:        `{"val": {"7": {"val": "bar"}}}`,
			code:        CodeValues,
			fieldPath:   "val[7].val",
			ruleID:      "string.const",
			deepestCode: CodeConst,
		},
		{name: "oneof_valid", message: "OneofRequired", json: `{"a": "foo"}`},
		{
			name:      "oneof_unset",
			message:   "OneofRequired",
			json:      ``,
			code:      CodeRequired,
			fieldPath: "choice",
			ruleID:    "required",
		},
		{
			name:      "oneof_field_rules",
			message:   "OneofRequired",
			json:      `{"b": 3}`,
			code:      CodeGt,
			fieldPath: "b",
			ruleID:    "int32.gt",
		},
		{name: "enum_valid", message: "Enum", json: `{"val": "STATE_ON"}`},
		{
			name:      "enum_undefined",
			message:   "Enum",
			json:      `{"val": 5}`,
			code:      CodeDefinedOnly,
			fieldPath: "val",
			ruleID:    "enum.defined_only",
		},
		{
			name:      "enum_not_in",
			message:   "Enum",
			json:      `{"val": "STATE_OFF"}`,
			code:      CodeNotIn,
			fieldPath: "val",
			ruleID:    "enum.not_in",
		},
		{name: "any_unset", message: "AnyIn", json: ``},
		{
			name:      "any_in_valid",
			message:   "AnyIn",
			json:      `{"val": {"@type": "type.googleapis.com/google.protobuf.Duration", "value": "1s"}}`,
		},
		{
			name:      "any_in_invalid",
			message:   "AnyIn",
			json:      `{"val": {"@type": "type.googleapis.com/google.protobuf.Timestamp", "value": "2024-01-01T00:00:00Z"}}`,
			code:      CodeIn,
			fieldPath: "val",
			ruleID:    "any.in",
		},
		{
			name:      "duration_required_unset",
			message:   "DurationRequired",
			json:      ``,
			code:      CodeRequired,
			fieldPath: "val",
			ruleID:    "required",
		},
		{name: "duration_past_time_duration", message: "DurationRequired", json: `{"val": "9223372036.900s"}`},
		{
			name:      "duration_gte",
			message:   "DurationRequired",
			json:      `{"val": "0.5s"}`,
			code:      CodeGte,
			fieldPath: "val",
			ruleID:    "duration.gte",
		},
		{name: "timestamp_lt_now_valid", message: "TimestampLtNow", json: `{"val": "2024-02-01T00:00:00Z"}`},
		{
			name:      "timestamp_lt_now_invalid",
			message:   "TimestampLtNow",
			json:      `{"val": "2024-04-01T00:00:00Z"}`,
			code:      CodeLtNow,
			fieldPath: "val",
			ruleID:    "timestamp.lt_now",
		},
		{name: "wrapper_unset", message: "WrapperRules", json: ``},
		{
			name:      "wrapper_set",
			message:   "WrapperRules",
			json:      `{"val": 3}`,
			code:      CodeGt,
			fieldPath: "val",
			ruleID:    "int32.gt",
		},
		{name: "field_expression_valid", message: "FieldExpression", json: `{"val": 4}`},
		{
			name:      "field_expression_invalid",
			message:   "FieldExpression",
			json:      `{"val": 3}`,
			code:      CodeExpression,
			fieldPath: "val",
			ruleID:    "val.even",
		},
		{
			name:      "string_expression_invalid",
			message:   "StringExpression",
			json:      `{"val": "foo"}`,
			code:      CodeExpression,
			fieldPath: "val",
			ruleID:    "val.email",
		},
		{name: "message_expression_valid", message: "MessageExpression", json: `{"min": 1, "max": 2}`},
		{
			name:    "message_expression_invalid",
			message: "MessageExpression",
			json:    `{"min": 3, "max": 2}`,
			code:    CodeExpression,
			ruleID:  "min.lte.max",
		},
		{name: "disabled", message: "Disabled", json: ``},
		{name: "recursive_valid", message: "Recursive", json: `{"name": "a", "child": {"name": "b"}}`},
		{
			name:        "recursive_deep",
			message:     "Recursive",
			json:        `{"name": "a", "child": {"name": "b", "child": {}}}`,
			code:        CodeMessage,
			fieldPath:   "child.child.name",
			ruleID:      "string.min_len",
			deepestCode: CodeMinLen,
		},
	}
	for _, testScenario := range testScenarios {
		testScenario := testScenario
		t.Run(testScenario.name, func(t *testing.T) {
			t.Parallel()
			message := file.NewMessage(t, testScenario.message, testScenario.json)
			err := Validate(registry, message)
			if testScenario.code == 0 {
				assert.NoError(t, err)
				return
			}
			violation := requireValidationViolation(t, err)
			assert.Equal(t, testScenario.code, violation.Code)
			assert.Equal(t, testScenario.fieldPath, violation.FieldPath)
			assert.Equal(t, testScenario.ruleID, violation.RuleID)
			deepestCode := testScenario.deepestCode
			if deepestCode == 0 {
				deepestCode = testScenario.code
			}
			assert.Equal(t, deepestCode, violation.Deepest().Code)
		})
	}
}

func TestValidateViolationMessages(t *testing.T) {
	t.Parallel()
	file := bufvalidatetesting.NewFile(t, testProtoBody)
	registry := NewRegistry()
	err := Validate(registry, file.NewMessage(t, "MessageRequired", `{"val": {"val": "bar"}}`))
	var validationError *ValidationError
	require.True(t, errors.As(err, &validationError))
	assert.Equal(t, "test.MessageRequired", string(validationError.Message))
	assert.Equal(t, `invalid test.MessageRequired: val.val: value must equal "foo"`, err.Error())
	assert.Equal(t, "test.MessageRequired.val", string(validationError.Violation.Field))
	assert.Equal(t, "test.Nested.val", string(validationError.Violation.Deepest().Field))

	err = Validate(registry, file.NewMessage(t, "FieldExpression", `{"val": 3}`))
	violation := requireValidationViolation(t, err)
	assert.Equal(t, "val must be even", violation.Message)

	err = Validate(registry, file.NewMessage(t, "StringExpression", `{"val": "foo"}`))
	violation = requireValidationViolation(t, err)
	assert.Equal(t, "val must be an email", violation.Message)

	err = Validate(registry, file.NewMessage(t, "MessageExpression", `{"min": 3, "max": 2}`))
	violation = requireValidationViolation(t, err)
	assert.Equal(t, "min must be less than or equal to max", violation.Message)
	assert.Empty(t, violation.FieldPath)
}

func TestValidator(t *testing.T) {
	t.Parallel()
	file := bufvalidatetesting.NewFile(t, testProtoBody)
	validator, err := NewValidator(
		ValidatorWithDescriptors(
			file.MessageDescriptor(t, "Int32Gtelte"),
			file.MessageDescriptor(t, "Recursive"),
		),
	)
	require.NoError(t, err)
	assert.NoError(t, validator.Validate(file.NewMessage(t, "Int32Gtelte", `{"val": 10}`)))
	violation := requireValidationViolation(t, validator.Validate(file.NewMessage(t, "Int32Gtelte", `{"val": 30}`)))
	assert.Equal(t, CodeLte, violation.Code)
}

func TestInvalidRules(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name       string
		body       string
		descriptor string
	}{
		{
			name: "kind_mismatch",
			body: `message Invalid {
  string val = 1 [(buf.validate.field).int32.gt = 0];
}`,
			descriptor: "test.Invalid.val",
		},
		{
			name: "invalid_pattern",
			body: `message Invalid {
  string val = 1 [(buf.validate.field).string.pattern = "["];
}`,
			descriptor: "test.Invalid.val",
		},
		{
			name: "lt_now_and_gt_now",
			body: `message Invalid {
  google.protobuf.Timestamp val = 1 [(buf.validate.field).timestamp = {lt_now: true, gt_now: true}];
}`,
			descriptor: "test.Invalid.val",
		},
		{
			name: "expression_on_repeated",
			body: `message Invalid {
  repeated int32 val = 1 [(buf.validate.field).cel = {id: "x", expression: "true"}];
}`,
			descriptor: "test.Invalid.val",
		},
		{
			name: "expression_does_not_compile",
			body: `message Invalid {
  int32 val = 1 [(buf.validate.field).cel = {id: "x", expression: "this +"}];
}`,
			descriptor: "test.Invalid.val",
		},
		{
			name: "expression_wrong_output",
			body: `message Invalid {
  int32 val = 1 [(buf.validate.field).cel = {id: "x", expression: "this + 1"}];
}`,
			descriptor: "test.Invalid.val",
		},
		{
			name: "unique_messages",
			body: `message Item {}
message Invalid {
  repeated Item val = 1 [(buf.validate.field).repeated.unique = true];
}`,
			descriptor: "test.Invalid.val",
		},
		{
			name: "dependency",
			body: `message Item {
  string val = 1 [(buf.validate.field).bytes.min_len = 1];
}
message Invalid {
  Item item = 1;
}`,
			descriptor: "test.Invalid",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			file := bufvalidatetesting.NewFile(t, testCase.body)
			registry := NewRegistry()
			message := file.NewMessage(t, "Invalid", "")
			err := Validate(registry, message)
			var invalidRulesError *InvalidRulesError
			require.True(t, errors.As(err, &invalidRulesError), "expected *InvalidRulesError, got %v", err)
			assert.Equal(t, testCase.descriptor, string(invalidRulesError.Descriptor))
			// The failure is cached.
			_, err = registry.Register(message.ProtoReflect().Descriptor())
			assert.True(t, errors.As(err, &invalidRulesError))
		})
	}
}

func requireValidationViolation(t *testing.T, err error) *Violation {
	t.Helper()
	require.Error(t, err)
	var validationError *ValidationError
	require.True(t, errors.As(err, &validationError), "expected *ValidationError, got %v", err)
	require.NotNil(t, validationError.Violation)
	return validationError.Violation
}
