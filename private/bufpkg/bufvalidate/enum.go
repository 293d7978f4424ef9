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
	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// enumEvaluator evaluates const, then defined_only, then in and not_in.
type enumEvaluator struct {
	constant   *numericEvaluator[int32]
	membership *numericEvaluator[int32]
	// nil unless defined_only is set.
	values protoreflect.EnumValueDescriptors
}

func newEnumEvaluator(enumDescriptor protoreflect.EnumDescriptor, rules *bufvalidaterule.EnumRules) *enumEvaluator {
	evaluator := &enumEvaluator{
		constant: newNumericEvaluator("enum", &bufvalidaterule.NumericRules[int32]{
			Const: rules.Const,
		}),
		membership: newNumericEvaluator("enum", &bufvalidaterule.NumericRules[int32]{
			In:    rules.In,
			NotIn: rules.NotIn,
		}),
	}
	if rules.DefinedOnly {
		evaluator.values = enumDescriptor.Values()
	}
	return evaluator
}

func (e *enumEvaluator) evaluate(value protoreflect.EnumNumber) (Outcome, *Violation) {
	if outcome, violation := e.constant.evaluate(int32(value)); outcome != OutcomeContinue {
		return outcome, violation
	}
	if e.values != nil && e.values.ByNumber(value) == nil {
		return violationOutcome(CodeDefinedOnly, "enum.defined_only", "value must be one of the defined enum values")
	}
	return e.membership.evaluate(int32(value))
}
