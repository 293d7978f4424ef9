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
	"google.golang.org/protobuf/reflect/protoreflect"
)

// valueStep is a single check of a value.
type valueStep func(value protoreflect.Value) (Outcome, *Violation)

// valueSteps are run in order until the first violation or skip.
type valueSteps []valueStep

func (s valueSteps) run(value protoreflect.Value) *Violation {
	for _, step := range s {
		switch outcome, violation := step(value); outcome {
		case OutcomeViolation:
			return violation
		case OutcomeSkipRest:
			return nil
		}
	}
	return nil
}

// messageEntry is the registry entry for a message type.
//
// The entry is inserted as a placeholder before its checklist is built, so that
// the checklists of recursive types can refer to it. It is not mutated once the
// registry publishes it.
type messageEntry struct {
	checklist *checklist
	err       error
}

func (e *messageEntry) result() (Checklist, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.checklist, nil
}

// checklist is the compiled validation of a message type.
type checklist struct {
	descriptor protoreflect.MessageDescriptor
	// noop is set for messages with validation disabled.
	noop          bool
	fields        []*fieldEvaluator
	oneofs        []messageCheck
	messageChecks []messageCheck
}

// messageCheck is a check of a whole message, such as a oneof or a message expression.
type messageCheck func(message protoreflect.Message) *Violation

func (c *checklist) Descriptor() protoreflect.MessageDescriptor {
	return c.descriptor
}

func (c *checklist) Check(message protoreflect.Message) error {
	if violation := c.check(message); violation != nil {
		return &ValidationError{
			Message:   c.descriptor.FullName(),
			Violation: violation,
		}
	}
	return nil
}

func (c *checklist) check(message protoreflect.Message) *Violation {
	if c.noop {
		return nil
	}
	for _, field := range c.fields {
		if violation := field.check(message); violation != nil {
			return violation
		}
	}
	for _, oneof := range c.oneofs {
		if violation := oneof(message); violation != nil {
			return violation
		}
	}
	for _, messageCheck := range c.messageChecks {
		if violation := messageCheck(message); violation != nil {
			return violation
		}
	}
	return nil
}

// fieldEvaluator checks a single field of a message.
type fieldEvaluator struct {
	descriptor protoreflect.FieldDescriptor
	required   bool
	// skipUnpopulated is set for fields with explicit presence.
	skipUnpopulated bool
	steps           valueSteps
}

func (e *fieldEvaluator) check(message protoreflect.Message) *Violation {
	if !message.Has(e.descriptor) {
		if e.required {
			return prefixViolation(
				e.descriptor,
				newViolation(CodeRequired, "required", "value is required"),
			)
		}
		if e.skipUnpopulated {
			return nil
		}
	}
	if violation := e.steps.run(message.Get(e.descriptor)); violation != nil {
		return prefixViolation(e.descriptor, violation)
	}
	return nil
}

// newMessageStep returns the step that recurses into a nested message.
//
// The checklist of entry is read at evaluation time, since entry may be a
// placeholder that is still being built.
func newMessageStep(entry *messageEntry) valueStep {
	return func(value protoreflect.Value) (Outcome, *Violation) {
		message := value.Message()
		if !message.IsValid() {
			return OutcomeContinue, nil
		}
		if violation := entry.checklist.check(message); violation != nil {
			return OutcomeViolation, wrapViolation(CodeMessage, "", violation)
		}
		return OutcomeContinue, nil
	}
}
