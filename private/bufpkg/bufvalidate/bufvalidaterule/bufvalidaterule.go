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

// Package bufvalidaterule contains the declared validation rules for messages,
// oneofs, and fields.
//
// Rules are plain immutable values. They are produced by a Resolver, either from
// buf.validate descriptor options or from a Schema declared in Go, and consumed by
// the evaluator builder in bufvalidate.
package bufvalidaterule

import (
	"time"

	"golang.org/x/exp/constraints"
)

// Number is the set of Go types that numeric rules can be declared over.
type Number interface {
	constraints.Integer | constraints.Float
}

// TypeRules is the kind-specific rule-set for a field.
//
// The set of implementations is closed:
//
//   - *NumericRules[float32] (FloatRules)
//   - *NumericRules[float64] (DoubleRules)
//   - *NumericRules[int32] (Int32Rules, also used for sint32 and sfixed32)
//   - *NumericRules[int64] (Int64Rules, also used for sint64 and sfixed64)
//   - *NumericRules[uint32] (UInt32Rules, also used for fixed32)
//   - *NumericRules[uint64] (UInt64Rules, also used for fixed64)
//   - *BoolRules
//   - *StringRules
//   - *BytesRules
//   - *EnumRules
//   - *MessageRules
//   - *RepeatedRules
//   - *MapRules
//   - *AnyRules
//   - *DurationRules
//   - *TimestampRules
type TypeRules interface {
	isTypeRules()
}

// NumericRules are the rules for any numeric field.
type NumericRules[T Number] struct {
	Const *T
	Lt    *T
	Lte   *T
	Gt    *T
	Gte   *T
	In    []T
	NotIn []T
	// IgnoreEmpty skips all rules, including Const, if the value is zero.
	IgnoreEmpty bool
}

// FloatRules are the rules for float fields.
type FloatRules = NumericRules[float32]

// DoubleRules are the rules for double fields.
type DoubleRules = NumericRules[float64]

// Int32Rules are the rules for int32, sint32, and sfixed32 fields.
type Int32Rules = NumericRules[int32]

// Int64Rules are the rules for int64, sint64, and sfixed64 fields.
type Int64Rules = NumericRules[int64]

// UInt32Rules are the rules for uint32 and fixed32 fields.
type UInt32Rules = NumericRules[uint32]

// UInt64Rules are the rules for uint64 and fixed64 fields.
type UInt64Rules = NumericRules[uint64]

// BoolRules are the rules for bool fields.
type BoolRules struct {
	Const *bool
}

// StringRules are the rules for string fields.
type StringRules struct {
	Const *string
	// Len, MinLen, and MaxLen count Unicode code points.
	Len    *uint64
	MinLen *uint64
	MaxLen *uint64
	// LenBytes, MinBytes, and MaxBytes count bytes.
	LenBytes    *uint64
	MinBytes    *uint64
	MaxBytes    *uint64
	Pattern     *string
	Prefix      *string
	Suffix      *string
	Contains    *string
	NotContains *string
	In          []string
	NotIn       []string
	WellKnown   WellKnownString
	// Lenient relaxes the HTTP header well-known formats.
	Lenient     bool
	IgnoreEmpty bool
}

// BytesRules are the rules for bytes fields.
type BytesRules struct {
	Const *[]byte
	// Len, MinLen, and MaxLen count bytes.
	Len         *uint64
	MinLen      *uint64
	MaxLen      *uint64
	Pattern     *string
	Prefix      []byte
	Suffix      []byte
	Contains    []byte
	In          [][]byte
	NotIn       [][]byte
	WellKnown   WellKnownBytes
	IgnoreEmpty bool
}

// EnumRules are the rules for enum fields.
type EnumRules struct {
	Const       *int32
	DefinedOnly bool
	In          []int32
	NotIn       []int32
}

// MessageRules are the rules for singular message fields.
type MessageRules struct {
	// Skip disables validation of the nested message.
	Skip     bool
	Required bool
}

// RepeatedRules are the rules for repeated fields.
type RepeatedRules struct {
	MinItems *uint64
	MaxItems *uint64
	Unique   bool
	// Items are applied to every item.
	Items       *FieldRules
	IgnoreEmpty bool
}

// MapRules are the rules for map fields.
type MapRules struct {
	MinPairs *uint64
	MaxPairs *uint64
	// NoSparse requires every value to be populated.
	NoSparse    bool
	Keys        *FieldRules
	Values      *FieldRules
	IgnoreEmpty bool
}

// AnyRules are the rules for google.protobuf.Any fields.
//
// In and NotIn are matched against the type URL of the Any.
type AnyRules struct {
	Required bool
	In       []string
	NotIn    []string
}

// DurationRules are the rules for google.protobuf.Duration fields.
type DurationRules struct {
	Required bool
	Const    *Duration
	Lt       *Duration
	Lte      *Duration
	Gt       *Duration
	Gte      *Duration
	In       []Duration
	NotIn    []Duration
}

// TimestampRules are the rules for google.protobuf.Timestamp fields.
//
// LtNow, GtNow, and Within are only evaluated if none of Lt, Lte, Gt, and
// Gte are set. A Within beyond the range of time.Duration is saturated.
type TimestampRules struct {
	Required bool
	Const    *time.Time
	Lt       *time.Time
	Lte      *time.Time
	Gt       *time.Time
	Gte      *time.Time
	LtNow    bool
	GtNow    bool
	Within   *time.Duration
}

// FieldRules are the rules for a single field, map key, map value, or list item.
type FieldRules struct {
	// Required fails the field if it is not populated.
	Required bool
	// Ignored disables all rules for the field, including recursion into messages.
	Ignored     bool
	Expressions []*Expression
	// Type may be nil.
	Type TypeRules
}

// Expression is a CEL expression evaluated against a value or message.
//
// The expression has a variable "this" bound to the value being validated and
// a variable "now" bound to the current time. It must evaluate to a bool or a
// string. True or the empty string passes. False fails with Message. A non-empty
// string fails with that string.
type Expression struct {
	ID         string
	Message    string
	Expression string
}

// MessageConstraints are the rules for a message.
type MessageConstraints struct {
	// Disabled skips all rules of the message and its fields.
	Disabled bool
	// Ignored behaves the same as Disabled.
	Ignored     bool
	Expressions []*Expression
	Oneofs      []*MessageOneofRule
}

// MessageOneofRule requires that at most one of the named fields is populated.
type MessageOneofRule struct {
	Fields []string
	// Required requires that exactly one of the fields is populated.
	Required bool
}

// OneofConstraints are the rules for a oneof.
type OneofConstraints struct {
	// Required requires that exactly one field of the oneof is populated.
	Required bool
}

// Of returns a pointer to v.
//
// This is useful when declaring optional rule bounds.
func Of[T any](v T) *T {
	return &v
}

func (*NumericRules[T]) isTypeRules() {}
func (*BoolRules) isTypeRules()       {}
func (*StringRules) isTypeRules()     {}
func (*BytesRules) isTypeRules()      {}
func (*EnumRules) isTypeRules()       {}
func (*MessageRules) isTypeRules()    {}
func (*RepeatedRules) isTypeRules()   {}
func (*MapRules) isTypeRules()        {}
func (*AnyRules) isTypeRules()        {}
func (*DurationRules) isTypeRules()   {}
func (*TimestampRules) isTypeRules()  {}
