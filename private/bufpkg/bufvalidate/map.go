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
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type mapEvaluator struct {
	descriptor  protoreflect.FieldDescriptor
	minPairs    *uint64
	maxPairs    *uint64
	noSparse    bool
	ignoreEmpty bool
	keySteps    valueSteps
	valueSteps  valueSteps
}

func newMapEvaluator(
	fieldDescriptor protoreflect.FieldDescriptor,
	rules *bufvalidaterule.MapRules,
	keySteps valueSteps,
	valueSteps valueSteps,
) (*mapEvaluator, error) {
	if rules.MinPairs != nil && rules.MaxPairs != nil && *rules.MinPairs > *rules.MaxPairs {
		return nil, fmt.Errorf("min_pairs %d is greater than max_pairs %d", *rules.MinPairs, *rules.MaxPairs)
	}
	return &mapEvaluator{
		descriptor:  fieldDescriptor,
		minPairs:    rules.MinPairs,
		maxPairs:    rules.MaxPairs,
		noSparse:    rules.NoSparse,
		ignoreEmpty: rules.IgnoreEmpty,
		keySteps:    keySteps,
		valueSteps:  valueSteps,
	}, nil
}

func (e *mapEvaluator) evaluate(value protoreflect.Value) (Outcome, *Violation) {
	mapValue := value.Map()
	length := mapValue.Len()
	if e.ignoreEmpty && length == 0 {
		return OutcomeSkipRest, nil
	}
	if e.minPairs != nil && uint64(length) < *e.minPairs {
		return violationOutcome(
			CodeMinPairs,
			"map.min_pairs",
			"map must be at least %d entries, got %d",
			*e.minPairs,
			length,
		)
	}
	if e.maxPairs != nil && uint64(length) > *e.maxPairs {
		return violationOutcome(
			CodeMaxPairs,
			"map.max_pairs",
			"map must be at most %d entries, got %d",
			*e.maxPairs,
			length,
		)
	}
	if !e.noSparse && len(e.keySteps) == 0 && len(e.valueSteps) == 0 {
		return OutcomeContinue, nil
	}
	// Keys are visited in sorted order so that the reported violation does not
	// depend on map iteration order.
	for _, key := range sortedMapKeys(mapValue) {
		pathSegment := "[" + formatMapKey(key) + "]"
		entryValue := mapValue.Get(key)
		if e.noSparse && isSparse(e.descriptor.MapValue(), entryValue) {
			violation := newViolation(CodeNoSparse, "map.no_sparse", "map values must be populated")
			violation.FieldPath = pathSegment
			return OutcomeViolation, violation
		}
		if violation := e.keySteps.run(key.Value()); violation != nil {
			return OutcomeViolation, e.wrap(CodeKeys, pathSegment, violation)
		}
		if violation := e.valueSteps.run(entryValue); violation != nil {
			return OutcomeViolation, e.wrap(CodeValues, pathSegment, violation)
		}
	}
	return OutcomeContinue, nil
}

func (e *mapEvaluator) wrap(code Code, pathSegment string, violation *Violation) *Violation {
	if violation.Field == "" {
		violation.Field = e.descriptor.FullName()
	}
	return wrapViolation(code, pathSegment, violation)
}

// isSparse returns true if the map value is unset or has its default value.
func isSparse(valueDescriptor protoreflect.FieldDescriptor, value protoreflect.Value) bool {
	switch valueDescriptor.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		message := value.Message()
		if !message.IsValid() {
			return true
		}
		populated := false
		message.Range(func(protoreflect.FieldDescriptor, protoreflect.Value) bool {
			populated = true
			return false
		})
		return !populated
	default:
		return value.Equal(valueDescriptor.Default())
	}
}

func sortedMapKeys(mapValue protoreflect.Map) []protoreflect.MapKey {
	keys := make([]protoreflect.MapKey, 0, mapValue.Len())
	mapValue.Range(func(key protoreflect.MapKey, _ protoreflect.Value) bool {
		keys = append(keys, key)
		return true
	})
	slices.SortFunc(keys, compareMapKeys)
	return keys
}

func compareMapKeys(a protoreflect.MapKey, b protoreflect.MapKey) int {
	switch a.Interface().(type) {
	case string:
		return cmp.Compare(a.String(), b.String())
	case bool:
		return cmp.Compare(boolToInt(a.Bool()), boolToInt(b.Bool()))
	case int32, int64:
		return cmp.Compare(a.Int(), b.Int())
	case uint32, uint64:
		return cmp.Compare(a.Uint(), b.Uint())
	default:
		return cmp.Compare(a.String(), b.String())
	}
}

func formatMapKey(key protoreflect.MapKey) string {
	if s, ok := key.Interface().(string); ok {
		return strconv.Quote(s)
	}
	return key.String()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
