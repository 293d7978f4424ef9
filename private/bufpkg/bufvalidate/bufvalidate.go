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

// Package bufvalidate validates messages against declared rules.
//
// Rules are resolved per message type by a bufvalidaterule.Resolver, compiled
// into a Checklist once, and cached in a Registry. Validation stops at the first
// failing rule and returns a single Violation.
package bufvalidate

import (
	"fmt"
	"time"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidateproto"
	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Checklist is the compiled validation of a message type.
type Checklist interface {
	// Descriptor returns the descriptor of the message type.
	Descriptor() protoreflect.MessageDescriptor
	// Check validates the message.
	//
	// Returns a *ValidationError if the message is invalid. The message must be
	// of the type of Descriptor.
	Check(message protoreflect.Message) error

	isChecklist()
}

// Registry caches the Checklists of message types.
//
// A Registry is safe for concurrent use. Checklists are never evicted.
type Registry interface {
	// Register builds the Checklist of the message type and the message types
	// it recurses into, unless it was already built.
	//
	// Returns a *InvalidRulesError if the rules of the message type or any
	// message type it recurses into are invalid. The error is cached.
	Register(messageDescriptor protoreflect.MessageDescriptor) (Checklist, error)

	lookup(messageDescriptor protoreflect.MessageDescriptor) (Checklist, error)
	isRegistry()
}

// NewRegistry returns a new Registry.
func NewRegistry(options ...RegistryOption) Registry {
	return newRegistry(options...)
}

// RegistryOption is an option for a new Registry.
type RegistryOption func(*registry)

// RegistryWithLogger returns a new RegistryOption that sets the logger.
//
// The default is zap.NewNop().
func RegistryWithLogger(logger *zap.Logger) RegistryOption {
	return func(registry *registry) {
		registry.logger = logger
	}
}

// RegistryWithRuleResolver returns a new RegistryOption that sets the resolver
// of rules.
//
// The default resolves rules from buf.validate options.
func RegistryWithRuleResolver(resolver bufvalidaterule.Resolver) RegistryOption {
	return func(registry *registry) {
		registry.resolver = resolver
	}
}

// RegistryWithNowFunc returns a new RegistryOption that sets the clock used by
// timestamp rules relative to now and by expressions.
//
// The default is time.Now.
func RegistryWithNowFunc(now func() time.Time) RegistryOption {
	return func(registry *registry) {
		registry.now = now
	}
}

// Validate validates the message with the Checklist of its type, building the
// Checklist if necessary.
//
// Returns nil, a *ValidationError, or a *InvalidRulesError.
func Validate(registry Registry, message proto.Message) error {
	reflectMessage := message.ProtoReflect()
	checklist, err := registry.lookup(reflectMessage.Descriptor())
	if err != nil {
		return err
	}
	return checklist.Check(reflectMessage)
}

// Validator validates messages.
//
// A Validator can be passed wherever a protoyaml.Validator is accepted.
type Validator interface {
	// Validate validates the message.
	//
	// Returns nil, a *ValidationError, or a *InvalidRulesError.
	Validate(message proto.Message) error
}

// NewValidator returns a new Validator.
//
// The Checklists of the message types given with ValidatorWithMessages are
// built eagerly, and a *InvalidRulesError is returned if any of them fail.
func NewValidator(options ...ValidatorOption) (Validator, error) {
	validator := &validator{}
	for _, option := range options {
		option(validator)
	}
	if validator.registry == nil {
		validator.registry = NewRegistry()
	}
	for _, messageDescriptor := range validator.messageDescriptors {
		if _, err := validator.registry.Register(messageDescriptor); err != nil {
			return nil, err
		}
	}
	return validator, nil
}

// ValidatorOption is an option for a new Validator.
type ValidatorOption func(*validator)

// ValidatorWithRegistry returns a new ValidatorOption that sets the Registry.
//
// The default is a new Registry with default options.
func ValidatorWithRegistry(registry Registry) ValidatorOption {
	return func(validator *validator) {
		validator.registry = registry
	}
}

// ValidatorWithMessages returns a new ValidatorOption that registers the types
// of the messages when the Validator is created.
func ValidatorWithMessages(messages ...proto.Message) ValidatorOption {
	return func(validator *validator) {
		for _, message := range messages {
			validator.messageDescriptors = append(validator.messageDescriptors, message.ProtoReflect().Descriptor())
		}
	}
}

// ValidatorWithDescriptors returns a new ValidatorOption that registers the
// message types when the Validator is created.
func ValidatorWithDescriptors(messageDescriptors ...protoreflect.MessageDescriptor) ValidatorOption {
	return func(validator *validator) {
		validator.messageDescriptors = append(validator.messageDescriptors, messageDescriptors...)
	}
}

// ValueChecker checks single values against rules.
//
// ValueCheckers apply the same checks to values as a Registry applies to
// fields, without reflection.
type ValueChecker[T any] interface {
	// Check returns a *Violation if the value is invalid.
	//
	// The FieldPath of the Violation is empty.
	Check(value T) error
}

// NewNumberChecker returns a new ValueChecker for the rules of a numeric field.
func NewNumberChecker[T bufvalidaterule.Number](rules *bufvalidaterule.NumericRules[T]) ValueChecker[T] {
	return newValueChecker(newNumericEvaluator(numberRuleKind[T](), rules).evaluate)
}

// NewBoolChecker returns a new ValueChecker for the rules of a bool field.
func NewBoolChecker(rules *bufvalidaterule.BoolRules) ValueChecker[bool] {
	return newValueChecker(newBoolEvaluator(rules).evaluate)
}

// NewStringChecker returns a new ValueChecker for the rules of a string field.
func NewStringChecker(rules *bufvalidaterule.StringRules) (ValueChecker[string], error) {
	stringEvaluator, err := newStringEvaluator(rules)
	if err != nil {
		return nil, &InvalidRulesError{Err: err}
	}
	return newValueChecker(stringEvaluator.evaluate), nil
}

// NewBytesChecker returns a new ValueChecker for the rules of a bytes field.
func NewBytesChecker(rules *bufvalidaterule.BytesRules) (ValueChecker[[]byte], error) {
	bytesEvaluator, err := newBytesEvaluator(rules)
	if err != nil {
		return nil, &InvalidRulesError{Err: err}
	}
	return newValueChecker(bytesEvaluator.evaluate), nil
}

// NewEnumChecker returns a new ValueChecker for the rules of an enum field.
func NewEnumChecker(
	enumDescriptor protoreflect.EnumDescriptor,
	rules *bufvalidaterule.EnumRules,
) ValueChecker[protoreflect.EnumNumber] {
	return newValueChecker(newEnumEvaluator(enumDescriptor, rules).evaluate)
}

// NewDurationChecker returns a new ValueChecker for the rules of a
// google.protobuf.Duration field.
//
// Values are checked as a bufvalidaterule.Duration, which keeps the order of
// durations outside the range of time.Duration.
func NewDurationChecker(rules *bufvalidaterule.DurationRules) ValueChecker[bufvalidaterule.Duration] {
	return newValueChecker(newDurationEvaluator(rules).evaluate)
}

// NewTimestampChecker returns a new ValueChecker for the rules of a
// google.protobuf.Timestamp field.
//
// If now is nil, time.Now is used.
func NewTimestampChecker(
	rules *bufvalidaterule.TimestampRules,
	now func() time.Time,
) (ValueChecker[time.Time], error) {
	if now == nil {
		now = time.Now
	}
	timestampEvaluator, err := newTimestampEvaluator(rules, now)
	if err != nil {
		return nil, &InvalidRulesError{Err: err}
	}
	return newValueChecker(timestampEvaluator.evaluate), nil
}

// *** PRIVATE ***

type validator struct {
	registry           Registry
	messageDescriptors []protoreflect.MessageDescriptor
}

func (v *validator) Validate(message proto.Message) error {
	return Validate(v.registry, message)
}

type valueChecker[T any] struct {
	evaluate func(T) (Outcome, *Violation)
}

func newValueChecker[T any](evaluate func(T) (Outcome, *Violation)) *valueChecker[T] {
	return &valueChecker[T]{
		evaluate: evaluate,
	}
}

func (c *valueChecker[T]) Check(value T) error {
	if _, violation := c.evaluate(value); violation != nil {
		return violation
	}
	return nil
}

// numberRuleKind returns the rule kind of the proto type that T is the Go type of.
func numberRuleKind[T bufvalidaterule.Number]() string {
	var zero T
	switch any(zero).(type) {
	case float32:
		return "float"
	case float64:
		return "double"
	default:
		return fmt.Sprintf("%T", zero)
	}
}

func defaultResolver() bufvalidaterule.Resolver {
	return bufvalidateproto.NewResolver()
}

func (*checklist) isChecklist() {}
