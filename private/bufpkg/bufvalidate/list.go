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
	"math"
	"strconv"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type listEvaluator struct {
	descriptor  protoreflect.FieldDescriptor
	minItems    *uint64
	maxItems    *uint64
	ignoreEmpty bool
	// nil unless unique is set.
	uniqueKey func(protoreflect.Value) any
	itemSteps valueSteps
}

func newListEvaluator(
	fieldDescriptor protoreflect.FieldDescriptor,
	rules *bufvalidaterule.RepeatedRules,
	itemSteps valueSteps,
) (*listEvaluator, error) {
	evaluator := &listEvaluator{
		descriptor:  fieldDescriptor,
		minItems:    rules.MinItems,
		maxItems:    rules.MaxItems,
		ignoreEmpty: rules.IgnoreEmpty,
		itemSteps:   itemSteps,
	}
	if rules.MinItems != nil && rules.MaxItems != nil && *rules.MinItems > *rules.MaxItems {
		return nil, fmt.Errorf("min_items %d is greater than max_items %d", *rules.MinItems, *rules.MaxItems)
	}
	if rules.Unique {
		uniqueKey, err := newUniqueKeyFunc(fieldDescriptor.Kind())
		if err != nil {
			return nil, err
		}
		evaluator.uniqueKey = uniqueKey
	}
	return evaluator, nil
}

func (e *listEvaluator) evaluate(value protoreflect.Value) (Outcome, *Violation) {
	list := value.List()
	length := list.Len()
	if e.ignoreEmpty && length == 0 {
		return OutcomeSkipRest, nil
	}
	if e.minItems != nil && uint64(length) < *e.minItems {
		return violationOutcome(
			CodeMinItems,
			"repeated.min_items",
			"value must contain at least %d item(s), got %d",
			*e.minItems,
			length,
		)
	}
	if e.maxItems != nil && uint64(length) > *e.maxItems {
		return violationOutcome(
			CodeMaxItems,
			"repeated.max_items",
			"value must contain no more than %d item(s), got %d",
			*e.maxItems,
			length,
		)
	}
	if e.uniqueKey != nil {
		seen := make(map[any]struct{}, length)
		for i := 0; i < length; i++ {
			key := e.uniqueKey(list.Get(i))
			if _, ok := seen[key]; ok {
				return violationOutcome(CodeUnique, "repeated.unique", "repeated value must contain unique items")
			}
			seen[key] = struct{}{}
		}
	}
	if len(e.itemSteps) == 0 {
		return OutcomeContinue, nil
	}
	for i := 0; i < length; i++ {
		if violation := e.itemSteps.run(list.Get(i)); violation != nil {
			if violation.Field == "" {
				violation.Field = e.descriptor.FullName()
			}
			return OutcomeViolation, wrapViolation(CodeItem, "["+strconv.Itoa(i)+"]", violation)
		}
	}
	return OutcomeContinue, nil
}

// newUniqueKeyFunc returns a function that returns a comparable key for an item,
// such that two items are duplicates if and only if their keys are equal.
//
// Floating point items are compared by their bits.
func newUniqueKeyFunc(kind protoreflect.Kind) (func(protoreflect.Value) any, error) {
	switch kind {
	case protoreflect.FloatKind:
		return func(value protoreflect.Value) any {
			return math.Float32bits(float32(value.Float()))
		}, nil
	case protoreflect.DoubleKind:
		return func(value protoreflect.Value) any {
			return math.Float64bits(value.Float())
		}, nil
	case protoreflect.BytesKind:
		return func(value protoreflect.Value) any {
			return string(value.Bytes())
		}, nil
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return nil, errors.New("unique is not supported for message items")
	default:
		return protoreflect.Value.Interface, nil
	}
}
