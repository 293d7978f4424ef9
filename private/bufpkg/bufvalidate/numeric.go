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
	"math"
	"slices"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/bufbuild/protoguard/private/pkg/slicesext"
	"github.com/bufbuild/protoguard/private/pkg/stringutil"
)

// numericEvaluator evaluates the rules of every numeric kind, including the
// number of an enum.
type numericEvaluator[T bufvalidaterule.Number] struct {
	ruleKind    string
	constant    *T
	rangeRule   *rangeRule[T]
	in          []T
	notIn       []T
	ignoreEmpty bool
}

func newNumericEvaluator[T bufvalidaterule.Number](
	ruleKind string,
	rules *bufvalidaterule.NumericRules[T],
) *numericEvaluator[T] {
	return &numericEvaluator[T]{
		ruleKind: ruleKind,
		constant: rules.Const,
		rangeRule: newRangeRule(
			numericOrdering[T](),
			ruleKind,
			rules.Lt,
			rules.Lte,
			rules.Gt,
			rules.Gte,
		),
		in:          rules.In,
		notIn:       rules.NotIn,
		ignoreEmpty: rules.IgnoreEmpty,
	}
}

func (e *numericEvaluator[T]) evaluate(value T) (Outcome, *Violation) {
	if e.ignoreEmpty && value == 0 {
		return OutcomeSkipRest, nil
	}
	if e.constant != nil && !sameNumber(value, *e.constant) {
		return OutcomeViolation, newViolation(
			CodeConst,
			e.ruleKind+".const",
			"value must equal %s",
			formatNumber(*e.constant),
		)
	}
	if e.rangeRule != nil {
		if violation := e.rangeRule.check(value); violation != nil {
			return OutcomeViolation, violation
		}
	}
	if len(e.in) > 0 && !containsNumber(e.in, value) {
		return OutcomeViolation, newViolation(
			CodeIn,
			e.ruleKind+".in",
			"value must be in list %s",
			formatNumbers(e.in),
		)
	}
	if containsNumber(e.notIn, value) {
		return OutcomeViolation, newViolation(
			CodeNotIn,
			e.ruleKind+".not_in",
			"value must not be in list %s",
			formatNumbers(e.notIn),
		)
	}
	return OutcomeContinue, nil
}

func numericOrdering[T bufvalidaterule.Number]() ordering[T] {
	return ordering[T]{
		less: func(a T, b T) bool {
			return a < b
		},
		equal: func(a T, b T) bool {
			return a == b
		},
		format: formatNumber[T],
	}
}

// sameNumber compares floating point values by their bits, so that identical
// NaNs are the same and 0 and -0 are not.
func sameNumber[T bufvalidaterule.Number](a T, b T) bool {
	switch a := any(a).(type) {
	case float32:
		return math.Float32bits(a) == math.Float32bits(any(b).(float32))
	case float64:
		return math.Float64bits(a) == math.Float64bits(any(b).(float64))
	default:
		return any(a) == any(b)
	}
}

func containsNumber[T bufvalidaterule.Number](values []T, value T) bool {
	return slices.ContainsFunc(values, func(other T) bool {
		return sameNumber(other, value)
	})
}

func formatNumber[T bufvalidaterule.Number](value T) string {
	return fmt.Sprint(value)
}

func formatNumbers[T bufvalidaterule.Number](values []T) string {
	return stringutil.SliceToString(slicesext.Map(values, formatNumber[T]))
}
