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

// Package bufvalidateproto resolves rules from buf.validate descriptor options.
package bufvalidateproto

import (
	"fmt"
	"strings"
	"time"

	"buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/bufbuild/protovalidate-go/resolver"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	typeOneofName      protoreflect.Name = "type"
	wellKnownOneofName protoreflect.Name = "well_known"
)

// NewResolver returns a new Resolver that reads the buf.validate.message,
// buf.validate.oneof, and buf.validate.field options.
//
// Options are read whether the extensions are known to the descriptor's
// file or left unknown, as is the case for descriptors built at runtime.
func NewResolver() bufvalidaterule.Resolver {
	return newProtoResolver()
}

// *** PRIVATE ***

type protoResolver struct {
	delegate resolver.DefaultResolver
}

func newProtoResolver() *protoResolver {
	return &protoResolver{}
}

func (r *protoResolver) ResolveMessageConstraints(
	messageDescriptor protoreflect.MessageDescriptor,
) (*bufvalidaterule.MessageConstraints, error) {
	messageConstraints := r.delegate.ResolveMessageConstraints(messageDescriptor)
	if messageConstraints == nil {
		return nil, nil
	}
	oneofRules, err := getMessageOneofRules(messageConstraints.ProtoReflect())
	if err != nil {
		return nil, err
	}
	return &bufvalidaterule.MessageConstraints{
		Disabled:    messageConstraints.GetDisabled(),
		Expressions: getExpressions(messageConstraints.GetCel()),
		Oneofs:      oneofRules,
	}, nil
}

func (r *protoResolver) ResolveOneofConstraints(
	oneofDescriptor protoreflect.OneofDescriptor,
) (*bufvalidaterule.OneofConstraints, error) {
	oneofConstraints := r.delegate.ResolveOneofConstraints(oneofDescriptor)
	if oneofConstraints == nil {
		return nil, nil
	}
	return &bufvalidaterule.OneofConstraints{
		Required: oneofConstraints.GetRequired(),
	}, nil
}

func (r *protoResolver) ResolveFieldRules(
	fieldDescriptor protoreflect.FieldDescriptor,
) (*bufvalidaterule.FieldRules, error) {
	fieldConstraints := r.delegate.ResolveFieldConstraints(fieldDescriptor)
	if fieldConstraints == nil {
		return nil, nil
	}
	return getFieldRules(fieldConstraints.ProtoReflect())
}

// getFieldRules converts a buf.validate.FieldConstraints message.
//
// The message is read by field name, so that fields added to or removed from
// buf.validate over time are handled the same way.
//
// buf.validate has no per-type required for Any, Duration, and Timestamp
// fields, and no map no_sparse. Presence of these fields is only required
// by the field-level required, and NoSparse is only set by a schema Resolver.
func getFieldRules(message protoreflect.Message) (*bufvalidaterule.FieldRules, error) {
	ignored, ignoreEmpty := getIgnore(message)
	fieldRules := &bufvalidaterule.FieldRules{
		Required: getBool(message, "required"),
		Ignored:  ignored || getBool(message, "skipped"),
	}
	ignoreEmpty = ignoreEmpty || getBool(message, "ignore_empty")
	expressions, err := getExpressionList(message, "cel")
	if err != nil {
		return nil, err
	}
	fieldRules.Expressions = expressions
	typeOneof := message.Descriptor().Oneofs().ByName(typeOneofName)
	if typeOneof == nil {
		return fieldRules, nil
	}
	typeField := message.WhichOneof(typeOneof)
	if typeField == nil {
		return fieldRules, nil
	}
	typeRules, err := getTypeRules(typeField.Name(), message.Get(typeField).Message(), ignoreEmpty)
	if err != nil {
		return nil, err
	}
	fieldRules.Type = typeRules
	return fieldRules, nil
}

func getTypeRules(name protoreflect.Name, rules protoreflect.Message, ignoreEmpty bool) (bufvalidaterule.TypeRules, error) {
	switch name {
	case "float":
		return getNumericRules(rules, toFloat32, ignoreEmpty), nil
	case "double":
		return getNumericRules(rules, protoreflect.Value.Float, ignoreEmpty), nil
	case "int32", "sint32", "sfixed32":
		return getNumericRules(rules, toInt32, ignoreEmpty), nil
	case "int64", "sint64", "sfixed64":
		return getNumericRules(rules, protoreflect.Value.Int, ignoreEmpty), nil
	case "uint32", "fixed32":
		return getNumericRules(rules, toUint32, ignoreEmpty), nil
	case "uint64", "fixed64":
		return getNumericRules(rules, protoreflect.Value.Uint, ignoreEmpty), nil
	case "bool":
		return &bufvalidaterule.BoolRules{
			Const: getScalar(rules, "const", protoreflect.Value.Bool),
		}, nil
	case "string":
		return getStringRules(rules, ignoreEmpty)
	case "bytes":
		return getBytesRules(rules, ignoreEmpty)
	case "enum":
		return &bufvalidaterule.EnumRules{
			Const:       getScalar(rules, "const", toInt32),
			DefinedOnly: getBool(rules, "defined_only"),
			In:          getList(rules, "in", toInt32),
			NotIn:       getList(rules, "not_in", toInt32),
		}, nil
	case "repeated":
		items, err := getNestedFieldRules(rules, "items")
		if err != nil {
			return nil, err
		}
		return &bufvalidaterule.RepeatedRules{
			MinItems:    getScalar(rules, "min_items", protoreflect.Value.Uint),
			MaxItems:    getScalar(rules, "max_items", protoreflect.Value.Uint),
			Unique:      getBool(rules, "unique"),
			Items:       items,
			IgnoreEmpty: ignoreEmpty || getBool(rules, "ignore_empty"),
		}, nil
	case "map":
		keys, err := getNestedFieldRules(rules, "keys")
		if err != nil {
			return nil, err
		}
		values, err := getNestedFieldRules(rules, "values")
		if err != nil {
			return nil, err
		}
		return &bufvalidaterule.MapRules{
			MinPairs:    getScalar(rules, "min_pairs", protoreflect.Value.Uint),
			MaxPairs:    getScalar(rules, "max_pairs", protoreflect.Value.Uint),
			Keys:        keys,
			Values:      values,
			IgnoreEmpty: ignoreEmpty || getBool(rules, "ignore_empty"),
		}, nil
	case "any":
		return &bufvalidaterule.AnyRules{
			In:    getList(rules, "in", protoreflect.Value.String),
			NotIn: getList(rules, "not_in", protoreflect.Value.String),
		}, nil
	case "duration":
		return &bufvalidaterule.DurationRules{
			Const: getScalar(rules, "const", toDuration),
			Lt:    getScalar(rules, "lt", toDuration),
			Lte:   getScalar(rules, "lte", toDuration),
			Gt:    getScalar(rules, "gt", toDuration),
			Gte:   getScalar(rules, "gte", toDuration),
			In:    getList(rules, "in", toDuration),
			NotIn: getList(rules, "not_in", toDuration),
		}, nil
	case "timestamp":
		return &bufvalidaterule.TimestampRules{
			Const:  getScalar(rules, "const", toTime),
			Lt:     getScalar(rules, "lt", toTime),
			Lte:    getScalar(rules, "lte", toTime),
			Gt:     getScalar(rules, "gt", toTime),
			Gte:    getScalar(rules, "gte", toTime),
			LtNow:  getBool(rules, "lt_now"),
			GtNow:  getBool(rules, "gt_now"),
			Within: getScalar(rules, "within", toWithin),
		}, nil
	case "message":
		return &bufvalidaterule.MessageRules{
			Skip:     getBool(rules, "skip"),
			Required: getBool(rules, "required"),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported rules %q", name)
	}
}

func getNumericRules[T bufvalidaterule.Number](
	rules protoreflect.Message,
	convert func(protoreflect.Value) T,
	ignoreEmpty bool,
) *bufvalidaterule.NumericRules[T] {
	return &bufvalidaterule.NumericRules[T]{
		Const:       getScalar(rules, "const", convert),
		Lt:          getScalar(rules, "lt", convert),
		Lte:         getScalar(rules, "lte", convert),
		Gt:          getScalar(rules, "gt", convert),
		Gte:         getScalar(rules, "gte", convert),
		In:          getList(rules, "in", convert),
		NotIn:       getList(rules, "not_in", convert),
		IgnoreEmpty: ignoreEmpty || getBool(rules, "ignore_empty"),
	}
}

func getStringRules(rules protoreflect.Message, ignoreEmpty bool) (*bufvalidaterule.StringRules, error) {
	wellKnown, err := getWellKnownString(rules)
	if err != nil {
		return nil, err
	}
	strict := true
	if strictField := rules.Descriptor().Fields().ByName("strict"); strictField != nil && rules.Has(strictField) {
		strict = rules.Get(strictField).Bool()
	}
	return &bufvalidaterule.StringRules{
		Const:       getScalar(rules, "const", protoreflect.Value.String),
		Len:         getScalar(rules, "len", protoreflect.Value.Uint),
		MinLen:      getScalar(rules, "min_len", protoreflect.Value.Uint),
		MaxLen:      getScalar(rules, "max_len", protoreflect.Value.Uint),
		LenBytes:    getScalar(rules, "len_bytes", protoreflect.Value.Uint),
		MinBytes:    getScalar(rules, "min_bytes", protoreflect.Value.Uint),
		MaxBytes:    getScalar(rules, "max_bytes", protoreflect.Value.Uint),
		Pattern:     getScalar(rules, "pattern", protoreflect.Value.String),
		Prefix:      getScalar(rules, "prefix", protoreflect.Value.String),
		Suffix:      getScalar(rules, "suffix", protoreflect.Value.String),
		Contains:    getScalar(rules, "contains", protoreflect.Value.String),
		NotContains: getScalar(rules, "not_contains", protoreflect.Value.String),
		In:          getList(rules, "in", protoreflect.Value.String),
		NotIn:       getList(rules, "not_in", protoreflect.Value.String),
		WellKnown:   wellKnown,
		Lenient:     !strict,
		IgnoreEmpty: ignoreEmpty || getBool(rules, "ignore_empty"),
	}, nil
}

func getWellKnownString(rules protoreflect.Message) (bufvalidaterule.WellKnownString, error) {
	wellKnownOneof := rules.Descriptor().Oneofs().ByName(wellKnownOneofName)
	if wellKnownOneof == nil {
		return bufvalidaterule.WellKnownStringUnspecified, nil
	}
	wellKnownField := rules.WhichOneof(wellKnownOneof)
	if wellKnownField == nil {
		return bufvalidaterule.WellKnownStringUnspecified, nil
	}
	value := rules.Get(wellKnownField)
	if wellKnownField.Kind() == protoreflect.BoolKind && !value.Bool() {
		return bufvalidaterule.WellKnownStringUnspecified, nil
	}
	switch name := wellKnownField.Name(); name {
	case "email":
		return bufvalidaterule.WellKnownStringEmail, nil
	case "hostname":
		return bufvalidaterule.WellKnownStringHostname, nil
	case "ip":
		return bufvalidaterule.WellKnownStringIP, nil
	case "ipv4":
		return bufvalidaterule.WellKnownStringIPv4, nil
	case "ipv6":
		return bufvalidaterule.WellKnownStringIPv6, nil
	case "uri":
		return bufvalidaterule.WellKnownStringURI, nil
	case "uri_ref":
		return bufvalidaterule.WellKnownStringURIRef, nil
	case "address":
		return bufvalidaterule.WellKnownStringAddress, nil
	case "uuid":
		return bufvalidaterule.WellKnownStringUUID, nil
	case "well_known_regex":
		switch knownRegex := validate.KnownRegex(value.Enum()); knownRegex {
		case validate.KnownRegex_KNOWN_REGEX_UNSPECIFIED:
			return bufvalidaterule.WellKnownStringUnspecified, nil
		case validate.KnownRegex_KNOWN_REGEX_HTTP_HEADER_NAME:
			return bufvalidaterule.WellKnownStringHTTPHeaderName, nil
		case validate.KnownRegex_KNOWN_REGEX_HTTP_HEADER_VALUE:
			return bufvalidaterule.WellKnownStringHTTPHeaderValue, nil
		default:
			return 0, fmt.Errorf("unsupported well_known_regex %v", knownRegex)
		}
	default:
		return 0, fmt.Errorf("unsupported string format %q", name)
	}
}

func getBytesRules(rules protoreflect.Message, ignoreEmpty bool) (*bufvalidaterule.BytesRules, error) {
	wellKnown := bufvalidaterule.WellKnownBytesUnspecified
	if wellKnownOneof := rules.Descriptor().Oneofs().ByName(wellKnownOneofName); wellKnownOneof != nil {
		if wellKnownField := rules.WhichOneof(wellKnownOneof); wellKnownField != nil && rules.Get(wellKnownField).Bool() {
			switch name := wellKnownField.Name(); name {
			case "ip":
				wellKnown = bufvalidaterule.WellKnownBytesIP
			case "ipv4":
				wellKnown = bufvalidaterule.WellKnownBytesIPv4
			case "ipv6":
				wellKnown = bufvalidaterule.WellKnownBytesIPv6
			default:
				return nil, fmt.Errorf("unsupported bytes format %q", name)
			}
		}
	}
	return &bufvalidaterule.BytesRules{
		Const:       getScalar(rules, "const", protoreflect.Value.Bytes),
		Len:         getScalar(rules, "len", protoreflect.Value.Uint),
		MinLen:      getScalar(rules, "min_len", protoreflect.Value.Uint),
		MaxLen:      getScalar(rules, "max_len", protoreflect.Value.Uint),
		Pattern:     getScalar(rules, "pattern", protoreflect.Value.String),
		Prefix:      getBytes(rules, "prefix"),
		Suffix:      getBytes(rules, "suffix"),
		Contains:    getBytes(rules, "contains"),
		In:          getList(rules, "in", protoreflect.Value.Bytes),
		NotIn:       getList(rules, "not_in", protoreflect.Value.Bytes),
		WellKnown:   wellKnown,
		IgnoreEmpty: ignoreEmpty || getBool(rules, "ignore_empty"),
	}, nil
}

func getNestedFieldRules(rules protoreflect.Message, name protoreflect.Name) (*bufvalidaterule.FieldRules, error) {
	fieldDescriptor := rules.Descriptor().Fields().ByName(name)
	if fieldDescriptor == nil || !rules.Has(fieldDescriptor) {
		return nil, nil
	}
	fieldRules, err := getFieldRules(rules.Get(fieldDescriptor).Message())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return fieldRules, nil
}

func getMessageOneofRules(message protoreflect.Message) ([]*bufvalidaterule.MessageOneofRule, error) {
	fieldDescriptor := message.Descriptor().Fields().ByName("oneof")
	if fieldDescriptor == nil || !fieldDescriptor.IsList() || fieldDescriptor.Message() == nil {
		return nil, nil
	}
	list := message.Get(fieldDescriptor).List()
	oneofRules := make([]*bufvalidaterule.MessageOneofRule, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		oneofRule := list.Get(i).Message()
		oneofRules = append(
			oneofRules,
			&bufvalidaterule.MessageOneofRule{
				Fields:   getList(oneofRule, "fields", protoreflect.Value.String),
				Required: getBool(oneofRule, "required"),
			},
		)
	}
	return oneofRules, nil
}

// getIgnore returns whether the field is always ignored, and whether it is
// ignored when empty.
func getIgnore(message protoreflect.Message) (bool, bool) {
	fieldDescriptor := message.Descriptor().Fields().ByName("ignore")
	if fieldDescriptor == nil || fieldDescriptor.Kind() != protoreflect.EnumKind {
		return false, false
	}
	number := message.Get(fieldDescriptor).Enum()
	if number == 0 {
		return false, false
	}
	enumValue := fieldDescriptor.Enum().Values().ByNumber(number)
	if enumValue != nil && strings.HasSuffix(string(enumValue.Name()), "_ALWAYS") {
		return true, false
	}
	return false, true
}

func getExpressions(constraints []*validate.Constraint) []*bufvalidaterule.Expression {
	if len(constraints) == 0 {
		return nil
	}
	expressions := make([]*bufvalidaterule.Expression, len(constraints))
	for i, constraint := range constraints {
		expressions[i] = &bufvalidaterule.Expression{
			ID:         constraint.GetId(),
			Message:    constraint.GetMessage(),
			Expression: constraint.GetExpression(),
		}
	}
	return expressions
}

func getExpressionList(message protoreflect.Message, name protoreflect.Name) ([]*bufvalidaterule.Expression, error) {
	fieldDescriptor := message.Descriptor().Fields().ByName(name)
	if fieldDescriptor == nil {
		return nil, nil
	}
	list := message.Get(fieldDescriptor).List()
	if list.Len() == 0 {
		return nil, nil
	}
	constraints := make([]*validate.Constraint, list.Len())
	for i := 0; i < list.Len(); i++ {
		constraint, ok := list.Get(i).Message().Interface().(*validate.Constraint)
		if !ok {
			return nil, fmt.Errorf("unexpected %s value of type %T", name, list.Get(i).Message().Interface())
		}
		constraints[i] = constraint
	}
	return getExpressions(constraints), nil
}

func getScalar[T any](message protoreflect.Message, name protoreflect.Name, convert func(protoreflect.Value) T) *T {
	fieldDescriptor := message.Descriptor().Fields().ByName(name)
	if fieldDescriptor == nil || fieldDescriptor.IsList() || !message.Has(fieldDescriptor) {
		return nil
	}
	value := convert(message.Get(fieldDescriptor))
	return &value
}

func getList[T any](message protoreflect.Message, name protoreflect.Name, convert func(protoreflect.Value) T) []T {
	fieldDescriptor := message.Descriptor().Fields().ByName(name)
	if fieldDescriptor == nil || !fieldDescriptor.IsList() {
		return nil
	}
	list := message.Get(fieldDescriptor).List()
	if list.Len() == 0 {
		return nil
	}
	values := make([]T, list.Len())
	for i := 0; i < list.Len(); i++ {
		values[i] = convert(list.Get(i))
	}
	return values
}

func getBool(message protoreflect.Message, name protoreflect.Name) bool {
	value := getScalar(message, name, protoreflect.Value.Bool)
	return value != nil && *value
}

func getBytes(message protoreflect.Message, name protoreflect.Name) []byte {
	if value := getScalar(message, name, protoreflect.Value.Bytes); value != nil {
		return *value
	}
	return nil
}

func toFloat32(value protoreflect.Value) float32 {
	return float32(value.Float())
}

func toInt32(value protoreflect.Value) int32 {
	return int32(value.Int())
}

func toUint32(value protoreflect.Value) uint32 {
	return uint32(value.Uint())
}

func toDuration(value protoreflect.Value) bufvalidaterule.Duration {
	return bufvalidaterule.DurationFromMessage(value.Message())
}

func toWithin(value protoreflect.Value) time.Duration {
	within, _ := toDuration(value).AsDuration()
	return within
}

func toTime(value protoreflect.Value) time.Time {
	return bufvalidaterule.TimestampFromMessage(value.Message())
}
