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
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	// CodeRequired is a required field, oneof, or message that was not populated.
	CodeRequired Code = iota + 1
	CodeConst
	CodeLt
	CodeLte
	CodeGt
	CodeGte
	// CodeNotInRange is a value inside the exclusion zone of a range with swapped bounds.
	CodeNotInRange
	CodeIn
	CodeNotIn
	CodeLen
	CodeMinLen
	CodeMaxLen
	CodeLenBytes
	CodeMinBytes
	CodeMaxBytes
	CodePattern
	CodePrefix
	CodeSuffix
	CodeContains
	CodeNotContains
	CodeEmail
	CodeHostname
	CodeIP
	CodeIPv4
	CodeIPv6
	CodeURI
	CodeURIRef
	CodeAddress
	CodeUUID
	CodeHTTPHeaderName
	CodeHTTPHeaderValue
	CodeDefinedOnly
	CodeMinItems
	CodeMaxItems
	CodeUnique
	// CodeItem wraps a violation of a list item.
	CodeItem
	CodeMinPairs
	CodeMaxPairs
	CodeNoSparse
	// CodeKeys wraps a violation of a map key.
	CodeKeys
	// CodeValues wraps a violation of a map value.
	CodeValues
	// CodeMessage wraps a violation of a nested message.
	CodeMessage
	// CodeOneofMultiple is a oneof with more than one populated field.
	CodeOneofMultiple
	CodeLtNow
	CodeGtNow
	CodeWithin
	CodeExpression
)

const (
	// OutcomeContinue says to run the next step.
	OutcomeContinue Outcome = iota
	// OutcomeSkipRest says to stop running steps for the value without a violation.
	OutcomeSkipRest
	// OutcomeViolation says that the value failed a step.
	OutcomeViolation
)

var codeToString = map[Code]string{
	CodeRequired:        "required",
	CodeConst:           "const",
	CodeLt:              "lt",
	CodeLte:             "lte",
	CodeGt:              "gt",
	CodeGte:             "gte",
	CodeNotInRange:      "not_in_range",
	CodeIn:              "in",
	CodeNotIn:           "not_in",
	CodeLen:             "len",
	CodeMinLen:          "min_len",
	CodeMaxLen:          "max_len",
	CodeLenBytes:        "len_bytes",
	CodeMinBytes:        "min_bytes",
	CodeMaxBytes:        "max_bytes",
	CodePattern:         "pattern",
	CodePrefix:          "prefix",
	CodeSuffix:          "suffix",
	CodeContains:        "contains",
	CodeNotContains:     "not_contains",
	CodeEmail:           "email",
	CodeHostname:        "hostname",
	CodeIP:              "ip",
	CodeIPv4:            "ipv4",
	CodeIPv6:            "ipv6",
	CodeURI:             "uri",
	CodeURIRef:          "uri_ref",
	CodeAddress:         "address",
	CodeUUID:            "uuid",
	CodeHTTPHeaderName:  "http_header_name",
	CodeHTTPHeaderValue: "http_header_value",
	CodeDefinedOnly:     "defined_only",
	CodeMinItems:        "min_items",
	CodeMaxItems:        "max_items",
	CodeUnique:          "unique",
	CodeItem:            "item",
	CodeMinPairs:        "min_pairs",
	CodeMaxPairs:        "max_pairs",
	CodeNoSparse:        "no_sparse",
	CodeKeys:            "keys",
	CodeValues:          "values",
	CodeMessage:         "message",
	CodeOneofMultiple:   "oneof_multiple",
	CodeLtNow:           "lt_now",
	CodeGtNow:           "gt_now",
	CodeWithin:          "within",
	CodeExpression:      "expression",
}

// Code is the reason for a Violation.
type Code int

// String implements fmt.Stringer.
func (c Code) String() string {
	if s, ok := codeToString[c]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// IsWrapper returns true if the Code wraps the Violation of a nested value.
func (c Code) IsWrapper() bool {
	switch c {
	case CodeItem, CodeKeys, CodeValues, CodeMessage:
		return true
	default:
		return false
	}
}

// Outcome is the result of a single validation step.
type Outcome int

// Violation describes why a value failed its rules.
//
// Violations for nested values are wrapped: the outer Violation has a wrapper
// Code and the Violation of the nested value as its Cause.
type Violation struct {
	// FieldPath is the path of the field relative to the message the Violation
	// was returned for, such as "a.b[2].c" or `labels["foo"]`.
	//
	// Empty for violations of message-level rules.
	FieldPath string
	// Field is the full name of the field at this level, if any.
	Field protoreflect.FullName
	Code  Code
	// RuleID identifies the rule, such as "int32.gte" or "repeated.unique".
	RuleID  string
	Message string
	// Cause is the wrapped Violation if Code.IsWrapper().
	Cause *Violation
}

// Error implements error.
func (v *Violation) Error() string {
	if v == nil {
		return ""
	}
	if v.FieldPath == "" {
		return v.Message
	}
	return v.FieldPath + ": " + v.Message
}

// Unwrap implements errors.Unwrap for Violation.
func (v *Violation) Unwrap() error {
	if v == nil || v.Cause == nil {
		return nil
	}
	return v.Cause
}

// Deepest returns the originating Violation by following Cause.
func (v *Violation) Deepest() *Violation {
	for v != nil && v.Cause != nil {
		v = v.Cause
	}
	return v
}

// ValidationError is the error returned when a message fails validation.
type ValidationError struct {
	// Message is the full name of the validated message.
	Message   protoreflect.FullName
	Violation *Violation
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid %s: %s", e.Message, e.Violation.Error())
}

// Unwrap implements errors.Unwrap for ValidationError.
func (e *ValidationError) Unwrap() error {
	if e == nil || e.Violation == nil {
		return nil
	}
	return e.Violation
}

// InvalidRulesError is the error returned when the declared rules are malformed.
//
// This is a defect in the schema, not in the validated message.
type InvalidRulesError struct {
	// Descriptor is the full name of the message, oneof, or field with invalid rules.
	Descriptor protoreflect.FullName
	Err        error
}

// Error implements error.
func (e *InvalidRulesError) Error() string {
	if e == nil {
		return ""
	}
	var builder strings.Builder
	_, _ = builder.WriteString("invalid rules")
	if e.Descriptor != "" {
		_, _ = builder.WriteString(" for ")
		_, _ = builder.WriteString(string(e.Descriptor))
	}
	if e.Err != nil {
		_, _ = builder.WriteString(": ")
		_, _ = builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

// Unwrap implements errors.Unwrap for InvalidRulesError.
func (e *InvalidRulesError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newViolation(code Code, ruleID string, format string, args ...any) *Violation {
	return &Violation{
		Code:    code,
		RuleID:  ruleID,
		Message: fmt.Sprintf(format, args...),
	}
}

// wrapViolation wraps cause with a wrapper code, prefixing pathSegment to the
// path of cause.
func wrapViolation(code Code, pathSegment string, cause *Violation) *Violation {
	return &Violation{
		FieldPath: joinFieldPath(pathSegment, cause.FieldPath),
		Code:      code,
		RuleID:    cause.RuleID,
		Message:   cause.Message,
		Cause:     cause,
	}
}

// prefixViolation sets the field of v and prefixes its path with the field name.
func prefixViolation(fieldDescriptor protoreflect.FieldDescriptor, v *Violation) *Violation {
	v.FieldPath = joinFieldPath(fieldName(fieldDescriptor), v.FieldPath)
	v.Field = fieldDescriptor.FullName()
	return v
}

func joinFieldPath(prefix string, suffix string) string {
	switch {
	case prefix == "":
		return suffix
	case suffix == "":
		return prefix
	case strings.HasPrefix(suffix, "["):
		return prefix + suffix
	default:
		return prefix + "." + suffix
	}
}

func fieldName(fieldDescriptor protoreflect.FieldDescriptor) string {
	if fieldDescriptor.IsExtension() {
		return "[" + string(fieldDescriptor.FullName()) + "]"
	}
	return string(fieldDescriptor.Name())
}
