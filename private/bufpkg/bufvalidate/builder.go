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
	"fmt"
	"time"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/bufbuild/protoguard/private/pkg/syserror"
	"go.uber.org/multierr"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	anyFullName           protoreflect.FullName = "google.protobuf.Any"
	wellKnownTypesPackage protoreflect.FullName = "google.protobuf"
	wrapperValueFieldName protoreflect.Name     = "value"
)

const expressionsOnCollection = "expressions are not supported on repeated and map fields, declare them on the items, keys, or values instead"

var wrapperFullNames = map[protoreflect.FullName]struct{}{
	"google.protobuf.DoubleValue": {},
	"google.protobuf.FloatValue":  {},
	"google.protobuf.Int64Value":  {},
	"google.protobuf.UInt64Value": {},
	"google.protobuf.Int32Value":  {},
	"google.protobuf.UInt32Value": {},
	"google.protobuf.BoolValue":   {},
	"google.protobuf.StringValue": {},
	"google.protobuf.BytesValue":  {},
}

// builder builds the checklists of message types into entries.
//
// A builder is used for a single registration, under the registry lock.
type builder struct {
	resolver           bufvalidaterule.Resolver
	now                func() time.Time
	expressionCompiler func() (*expressionCompiler, error)
	// entries is the registry snapshot being built into.
	entries map[protoreflect.MessageDescriptor]*messageEntry
	// created are the entries created by this builder, in creation order.
	created []*messageEntry
	// dependencies are the entries of the nested message types that each
	// created entry recurses into.
	dependencies map[*messageEntry][]*messageEntry
}

func newBuilder(
	resolver bufvalidaterule.Resolver,
	now func() time.Time,
	expressionCompiler func() (*expressionCompiler, error),
	entries map[protoreflect.MessageDescriptor]*messageEntry,
) *builder {
	return &builder{
		resolver:           resolver,
		now:                now,
		expressionCompiler: expressionCompiler,
		entries:            entries,
		dependencies:       make(map[*messageEntry][]*messageEntry),
	}
}

// build builds the entry for the message type and every message type it
// recurses into that has no entry yet.
func (b *builder) build(messageDescriptor protoreflect.MessageDescriptor) *messageEntry {
	entry := b.loadOrBuild(messageDescriptor)
	b.propagateErrors()
	return entry
}

func (b *builder) loadOrBuild(messageDescriptor protoreflect.MessageDescriptor) *messageEntry {
	if entry, ok := b.entries[messageDescriptor]; ok {
		return entry
	}
	// The placeholder is inserted before any field is inspected, so that
	// recursive types find it instead of building again.
	entry := &messageEntry{}
	b.entries[messageDescriptor] = entry
	b.created = append(b.created, entry)
	checklist, err := b.buildChecklist(entry, messageDescriptor)
	if err != nil {
		entry.err = err
		return entry
	}
	entry.checklist = checklist
	return entry
}

// propagateErrors fails every created entry that recurses, directly or
// transitively, into an entry that failed.
func (b *builder) propagateErrors() {
	for changed := true; changed; {
		changed = false
		for _, entry := range b.created {
			if entry.err != nil {
				continue
			}
			for _, dependency := range b.dependencies[entry] {
				if dependency.err == nil {
					continue
				}
				entry.err = &InvalidRulesError{
					Descriptor: entry.checklist.descriptor.FullName(),
					Err:        dependency.err,
				}
				entry.checklist = nil
				changed = true
				break
			}
		}
	}
}

func (b *builder) buildChecklist(
	entry *messageEntry,
	messageDescriptor protoreflect.MessageDescriptor,
) (*checklist, error) {
	constraints, err := b.resolver.ResolveMessageConstraints(messageDescriptor)
	if err != nil {
		return nil, &InvalidRulesError{Descriptor: messageDescriptor.FullName(), Err: err}
	}
	checklist := &checklist{
		descriptor: messageDescriptor,
	}
	if constraints != nil && (constraints.Disabled || constraints.Ignored) {
		checklist.noop = true
		return checklist, nil
	}
	var errs []error
	fields := messageDescriptor.Fields()
	for i := 0; i < fields.Len(); i++ {
		fieldDescriptor := fields.Get(i)
		fieldEvaluator, err := b.buildField(entry, fieldDescriptor)
		if err != nil {
			errs = append(errs, &InvalidRulesError{Descriptor: fieldDescriptor.FullName(), Err: err})
			continue
		}
		if fieldEvaluator != nil {
			checklist.fields = append(checklist.fields, fieldEvaluator)
		}
	}
	oneofs := messageDescriptor.Oneofs()
	for i := 0; i < oneofs.Len(); i++ {
		oneofDescriptor := oneofs.Get(i)
		if oneofDescriptor.IsSynthetic() {
			continue
		}
		oneofConstraints, err := b.resolver.ResolveOneofConstraints(oneofDescriptor)
		if err != nil {
			errs = append(errs, &InvalidRulesError{Descriptor: oneofDescriptor.FullName(), Err: err})
			continue
		}
		if oneofConstraints != nil && oneofConstraints.Required {
			checklist.oneofs = append(checklist.oneofs, newOneofCheck(oneofDescriptor))
		}
	}
	if constraints != nil {
		for _, oneofRule := range constraints.Oneofs {
			messageCheck, err := newMessageOneofCheck(messageDescriptor, oneofRule)
			if err != nil {
				errs = append(errs, &InvalidRulesError{Descriptor: messageDescriptor.FullName(), Err: err})
				continue
			}
			checklist.messageChecks = append(checklist.messageChecks, messageCheck)
		}
		if len(constraints.Expressions) > 0 {
			messageCheck, err := b.buildMessageExpressionCheck(messageDescriptor, constraints.Expressions)
			if err != nil {
				errs = append(errs, &InvalidRulesError{Descriptor: messageDescriptor.FullName(), Err: err})
			} else {
				checklist.messageChecks = append(checklist.messageChecks, messageCheck)
			}
		}
	}
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	return checklist, nil
}

// buildField returns nil if the field has nothing to check.
func (b *builder) buildField(
	entry *messageEntry,
	fieldDescriptor protoreflect.FieldDescriptor,
) (*fieldEvaluator, error) {
	fieldRules, err := b.resolver.ResolveFieldRules(fieldDescriptor)
	if err != nil {
		return nil, err
	}
	if fieldRules != nil && fieldRules.Ignored {
		return nil, nil
	}
	var steps valueSteps
	switch {
	case fieldDescriptor.IsMap():
		steps, err = b.buildMapSteps(entry, fieldDescriptor, fieldRules)
	case fieldDescriptor.IsList():
		steps, err = b.buildListSteps(entry, fieldDescriptor, fieldRules)
	default:
		steps, err = b.buildValueSteps(entry, fieldDescriptor, fieldRules)
	}
	if err != nil {
		return nil, err
	}
	required := fieldRules != nil && (fieldRules.Required || isTypeRequired(fieldRules.Type))
	if !required && len(steps) == 0 {
		return nil, nil
	}
	return &fieldEvaluator{
		descriptor:      fieldDescriptor,
		required:        required,
		skipUnpopulated: fieldDescriptor.HasPresence(),
		steps:           steps,
	}, nil
}

func (b *builder) buildMapSteps(
	entry *messageEntry,
	fieldDescriptor protoreflect.FieldDescriptor,
	fieldRules *bufvalidaterule.FieldRules,
) (valueSteps, error) {
	mapRules := &bufvalidaterule.MapRules{}
	if fieldRules != nil {
		if len(fieldRules.Expressions) > 0 {
			return nil, errors.New(expressionsOnCollection)
		}
		if fieldRules.Type != nil {
			typedRules, ok := fieldRules.Type.(*bufvalidaterule.MapRules)
			if !ok {
				return nil, newRulesKindError(fieldRules.Type, fieldDescriptor)
			}
			mapRules = typedRules
		}
	}
	keySteps, err := b.buildValueSteps(entry, fieldDescriptor.MapKey(), mapRules.Keys)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	mapValueSteps, err := b.buildValueSteps(entry, fieldDescriptor.MapValue(), mapRules.Values)
	if err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}
	if mapRules.Keys != nil && mapRules.Keys.Required {
		return nil, errors.New("keys: map keys are always populated and cannot be required")
	}
	if *mapRules == (bufvalidaterule.MapRules{}) && len(keySteps) == 0 && len(mapValueSteps) == 0 {
		return nil, nil
	}
	mapEvaluator, err := newMapEvaluator(fieldDescriptor, mapRules, keySteps, mapValueSteps)
	if err != nil {
		return nil, err
	}
	return valueSteps{mapEvaluator.evaluate}, nil
}

func (b *builder) buildListSteps(
	entry *messageEntry,
	fieldDescriptor protoreflect.FieldDescriptor,
	fieldRules *bufvalidaterule.FieldRules,
) (valueSteps, error) {
	repeatedRules := &bufvalidaterule.RepeatedRules{}
	if fieldRules != nil {
		if len(fieldRules.Expressions) > 0 {
			return nil, errors.New(expressionsOnCollection)
		}
		if fieldRules.Type != nil {
			typedRules, ok := fieldRules.Type.(*bufvalidaterule.RepeatedRules)
			if !ok {
				return nil, newRulesKindError(fieldRules.Type, fieldDescriptor)
			}
			repeatedRules = typedRules
		}
	}
	// The descriptor of a repeated field describes its items as well.
	itemSteps, err := b.buildValueSteps(entry, fieldDescriptor, repeatedRules.Items)
	if err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	if *repeatedRules == (bufvalidaterule.RepeatedRules{}) && len(itemSteps) == 0 {
		return nil, nil
	}
	listEvaluator, err := newListEvaluator(fieldDescriptor, repeatedRules, itemSteps)
	if err != nil {
		return nil, err
	}
	return valueSteps{listEvaluator.evaluate}, nil
}

// buildValueSteps builds the steps for a single value of the field, which is
// the field itself, an item, a map key, or a map value.
func (b *builder) buildValueSteps(
	entry *messageEntry,
	fieldDescriptor protoreflect.FieldDescriptor,
	fieldRules *bufvalidaterule.FieldRules,
) (valueSteps, error) {
	var typeRules bufvalidaterule.TypeRules
	if fieldRules != nil {
		if fieldRules.Ignored {
			return nil, nil
		}
		typeRules = fieldRules.Type
	}
	var steps valueSteps
	switch fieldDescriptor.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		messageSteps, err := b.buildMessageValueSteps(entry, fieldDescriptor, typeRules)
		if err != nil {
			return nil, err
		}
		steps = messageSteps
	default:
		step, err := newScalarStep(fieldDescriptor, typeRules)
		if err != nil {
			return nil, err
		}
		if step != nil {
			steps = append(steps, step)
		}
	}
	if fieldRules != nil && len(fieldRules.Expressions) > 0 {
		compiler, err := b.expressionCompiler()
		if err != nil {
			return nil, syserror.Wrap(err)
		}
		step, err := compiler.newFieldExpressionStep(fieldDescriptor, fieldRules.Expressions)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	if recursion := b.buildRecursionStep(entry, fieldDescriptor, typeRules); recursion != nil {
		steps = append(steps, recursion)
	}
	return steps, nil
}

// buildMessageValueSteps builds the steps for the rules of a message value,
// not including recursion into the message.
func (b *builder) buildMessageValueSteps(
	entry *messageEntry,
	fieldDescriptor protoreflect.FieldDescriptor,
	typeRules bufvalidaterule.TypeRules,
) (valueSteps, error) {
	if typeRules == nil {
		return nil, nil
	}
	messageDescriptor := fieldDescriptor.Message()
	fullName := messageDescriptor.FullName()
	if _, ok := typeRules.(*bufvalidaterule.MessageRules); ok {
		// Message rules are applied by buildField and buildRecursionStep.
		return nil, nil
	}
	switch {
	case isWrapper(messageDescriptor):
		valueField := messageDescriptor.Fields().ByName(wrapperValueFieldName)
		if valueField == nil {
			return nil, syserror.Newf("wrapper %s has no value field", fullName)
		}
		step, err := newScalarStep(valueField, typeRules)
		if err != nil {
			return nil, err
		}
		return valueSteps{newWrapperStep(valueField, step)}, nil
	case fullName == anyFullName:
		anyRules, ok := typeRules.(*bufvalidaterule.AnyRules)
		if !ok {
			return nil, newRulesKindError(typeRules, fieldDescriptor)
		}
		anyEvaluator := newAnyEvaluator(anyRules)
		return valueSteps{
			newMessageValueStep(func(message protoreflect.Message) (Outcome, *Violation) {
				return anyEvaluator.evaluate(anyTypeURL(message))
			}),
		}, nil
	case fullName == durationFullName:
		durationRules, ok := typeRules.(*bufvalidaterule.DurationRules)
		if !ok {
			return nil, newRulesKindError(typeRules, fieldDescriptor)
		}
		durationEvaluator := newDurationEvaluator(durationRules)
		return valueSteps{
			newMessageValueStep(func(message protoreflect.Message) (Outcome, *Violation) {
				return durationEvaluator.evaluate(bufvalidaterule.DurationFromMessage(message))
			}),
		}, nil
	case fullName == timestampFullName:
		timestampRules, ok := typeRules.(*bufvalidaterule.TimestampRules)
		if !ok {
			return nil, newRulesKindError(typeRules, fieldDescriptor)
		}
		timestampEvaluator, err := newTimestampEvaluator(timestampRules, b.now)
		if err != nil {
			return nil, err
		}
		return valueSteps{
			newMessageValueStep(func(message protoreflect.Message) (Outcome, *Violation) {
				return timestampEvaluator.evaluate(bufvalidaterule.TimestampFromMessage(message))
			}),
		}, nil
	default:
		return nil, newRulesKindError(typeRules, fieldDescriptor)
	}
}

// buildRecursionStep returns the step that validates a nested message against
// the checklist of its own type, or nil if the value is not recursed into.
func (b *builder) buildRecursionStep(
	entry *messageEntry,
	fieldDescriptor protoreflect.FieldDescriptor,
	typeRules bufvalidaterule.TypeRules,
) valueStep {
	switch fieldDescriptor.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
	default:
		return nil
	}
	if messageRules, ok := typeRules.(*bufvalidaterule.MessageRules); ok && messageRules.Skip {
		return nil
	}
	messageDescriptor := fieldDescriptor.Message()
	if isWellKnownMessage(messageDescriptor) {
		return nil
	}
	dependency := b.loadOrBuild(messageDescriptor)
	b.dependencies[entry] = append(b.dependencies[entry], dependency)
	return newMessageStep(dependency)
}

func (b *builder) buildMessageExpressionCheck(
	messageDescriptor protoreflect.MessageDescriptor,
	expressions []*bufvalidaterule.Expression,
) (messageCheck, error) {
	compiler, err := b.expressionCompiler()
	if err != nil {
		return nil, syserror.Wrap(err)
	}
	return compiler.newMessageExpressionCheck(messageDescriptor, expressions)
}

// newScalarStep returns the step for the type rules of a scalar value, or nil
// if there are no type rules.
func newScalarStep(
	fieldDescriptor protoreflect.FieldDescriptor,
	typeRules bufvalidaterule.TypeRules,
) (valueStep, error) {
	if typeRules == nil {
		return nil, nil
	}
	kind := fieldDescriptor.Kind()
	switch rules := typeRules.(type) {
	case *bufvalidaterule.FloatRules:
		if kind != protoreflect.FloatKind {
			break
		}
		return newNumericStep(kind, rules, func(value protoreflect.Value) float32 {
			return float32(value.Float())
		}), nil
	case *bufvalidaterule.DoubleRules:
		if kind != protoreflect.DoubleKind {
			break
		}
		return newNumericStep(kind, rules, protoreflect.Value.Float), nil
	case *bufvalidaterule.Int32Rules:
		if kind != protoreflect.Int32Kind && kind != protoreflect.Sint32Kind && kind != protoreflect.Sfixed32Kind {
			break
		}
		return newNumericStep(kind, rules, func(value protoreflect.Value) int32 {
			return int32(value.Int())
		}), nil
	case *bufvalidaterule.Int64Rules:
		if kind != protoreflect.Int64Kind && kind != protoreflect.Sint64Kind && kind != protoreflect.Sfixed64Kind {
			break
		}
		return newNumericStep(kind, rules, protoreflect.Value.Int), nil
	case *bufvalidaterule.UInt32Rules:
		if kind != protoreflect.Uint32Kind && kind != protoreflect.Fixed32Kind {
			break
		}
		return newNumericStep(kind, rules, func(value protoreflect.Value) uint32 {
			return uint32(value.Uint())
		}), nil
	case *bufvalidaterule.UInt64Rules:
		if kind != protoreflect.Uint64Kind && kind != protoreflect.Fixed64Kind {
			break
		}
		return newNumericStep(kind, rules, protoreflect.Value.Uint), nil
	case *bufvalidaterule.BoolRules:
		if kind != protoreflect.BoolKind {
			break
		}
		boolEvaluator := newBoolEvaluator(rules)
		return func(value protoreflect.Value) (Outcome, *Violation) {
			return boolEvaluator.evaluate(value.Bool())
		}, nil
	case *bufvalidaterule.StringRules:
		if kind != protoreflect.StringKind {
			break
		}
		stringEvaluator, err := newStringEvaluator(rules)
		if err != nil {
			return nil, err
		}
		return func(value protoreflect.Value) (Outcome, *Violation) {
			return stringEvaluator.evaluate(value.String())
		}, nil
	case *bufvalidaterule.BytesRules:
		if kind != protoreflect.BytesKind {
			break
		}
		bytesEvaluator, err := newBytesEvaluator(rules)
		if err != nil {
			return nil, err
		}
		return func(value protoreflect.Value) (Outcome, *Violation) {
			return bytesEvaluator.evaluate(value.Bytes())
		}, nil
	case *bufvalidaterule.EnumRules:
		if kind != protoreflect.EnumKind {
			break
		}
		enumEvaluator := newEnumEvaluator(fieldDescriptor.Enum(), rules)
		return func(value protoreflect.Value) (Outcome, *Violation) {
			return enumEvaluator.evaluate(value.Enum())
		}, nil
	case *bufvalidaterule.MessageRules,
		*bufvalidaterule.RepeatedRules,
		*bufvalidaterule.MapRules,
		*bufvalidaterule.AnyRules,
		*bufvalidaterule.DurationRules,
		*bufvalidaterule.TimestampRules:
	default:
		return nil, syserror.Newf("unknown rules type %T", typeRules)
	}
	return nil, newRulesKindError(typeRules, fieldDescriptor)
}

func newNumericStep[T bufvalidaterule.Number](
	kind protoreflect.Kind,
	rules *bufvalidaterule.NumericRules[T],
	convert func(protoreflect.Value) T,
) valueStep {
	numericEvaluator := newNumericEvaluator(kind.String(), rules)
	return func(value protoreflect.Value) (Outcome, *Violation) {
		return numericEvaluator.evaluate(convert(value))
	}
}

// newMessageValueStep returns a step that evaluates populated message values.
func newMessageValueStep(evaluate func(protoreflect.Message) (Outcome, *Violation)) valueStep {
	return func(value protoreflect.Value) (Outcome, *Violation) {
		message := value.Message()
		if !message.IsValid() {
			return OutcomeContinue, nil
		}
		return evaluate(message)
	}
}

// newWrapperStep returns a step that evaluates the wrapped value of a populated
// wrapper message.
func newWrapperStep(valueField protoreflect.FieldDescriptor, step valueStep) valueStep {
	return newMessageValueStep(func(message protoreflect.Message) (Outcome, *Violation) {
		return step(message.Get(valueField))
	})
}

func isTypeRequired(typeRules bufvalidaterule.TypeRules) bool {
	switch rules := typeRules.(type) {
	case *bufvalidaterule.MessageRules:
		return rules.Required
	case *bufvalidaterule.AnyRules:
		return rules.Required
	case *bufvalidaterule.DurationRules:
		return rules.Required
	case *bufvalidaterule.TimestampRules:
		return rules.Required
	default:
		return false
	}
}

func isWrapper(messageDescriptor protoreflect.MessageDescriptor) bool {
	_, ok := wrapperFullNames[messageDescriptor.FullName()]
	return ok
}

// isWellKnownMessage returns true for the messages of the well-known types,
// which are never recursed into.
func isWellKnownMessage(messageDescriptor protoreflect.MessageDescriptor) bool {
	return messageDescriptor.ParentFile().Package() == wellKnownTypesPackage
}

func newRulesKindError(typeRules bufvalidaterule.TypeRules, fieldDescriptor protoreflect.FieldDescriptor) error {
	return fmt.Errorf("%s rules cannot be applied to a field of type %s", rulesName(typeRules), fieldTypeName(fieldDescriptor))
}

func rulesName(typeRules bufvalidaterule.TypeRules) string {
	switch typeRules.(type) {
	case *bufvalidaterule.FloatRules:
		return "float"
	case *bufvalidaterule.DoubleRules:
		return "double"
	case *bufvalidaterule.Int32Rules:
		return "int32"
	case *bufvalidaterule.Int64Rules:
		return "int64"
	case *bufvalidaterule.UInt32Rules:
		return "uint32"
	case *bufvalidaterule.UInt64Rules:
		return "uint64"
	case *bufvalidaterule.BoolRules:
		return "bool"
	case *bufvalidaterule.StringRules:
		return "string"
	case *bufvalidaterule.BytesRules:
		return "bytes"
	case *bufvalidaterule.EnumRules:
		return "enum"
	case *bufvalidaterule.MessageRules:
		return "message"
	case *bufvalidaterule.RepeatedRules:
		return "repeated"
	case *bufvalidaterule.MapRules:
		return "map"
	case *bufvalidaterule.AnyRules:
		return "any"
	case *bufvalidaterule.DurationRules:
		return "duration"
	case *bufvalidaterule.TimestampRules:
		return "timestamp"
	default:
		return fmt.Sprintf("%T", typeRules)
	}
}

func fieldTypeName(fieldDescriptor protoreflect.FieldDescriptor) string {
	var typeName string
	switch fieldDescriptor.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		typeName = string(fieldDescriptor.Message().FullName())
	case protoreflect.EnumKind:
		typeName = string(fieldDescriptor.Enum().FullName())
	default:
		typeName = fieldDescriptor.Kind().String()
	}
	switch {
	case fieldDescriptor.IsMap():
		return "map"
	case fieldDescriptor.IsList():
		return "repeated " + typeName
	default:
		return typeName
	}
}
