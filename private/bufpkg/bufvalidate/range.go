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

// ordering is a total order over T, used by the range algorithm.
//
// Values for which equal and less are both false against every bound, such as
// NaN, fail every bound.
type ordering[T any] struct {
	less   func(a T, b T) bool
	equal  func(a T, b T) bool
	format func(T) string
}

func (o ordering[T]) lessOrEqual(a T, b T) bool {
	return o.less(a, b) || o.equal(a, b)
}

// bound is one end of a range.
type bound[T any] struct {
	value T
	// inclusive is true for lte and gte.
	inclusive bool
}

// rangeRule is the range group of a rule-set, with an optional lower and upper bound.
type rangeRule[T any] struct {
	ordering ordering[T]
	// ruleKind prefixes rule IDs, such as "int32".
	ruleKind string
	lower    *bound[T]
	upper    *bound[T]
}

func newRangeRule[T any](
	ordering ordering[T],
	ruleKind string,
	lt *T,
	lte *T,
	gt *T,
	gte *T,
) *rangeRule[T] {
	rangeRule := &rangeRule[T]{
		ordering: ordering,
		ruleKind: ruleKind,
	}
	switch {
	case lt != nil:
		rangeRule.upper = &bound[T]{value: *lt}
	case lte != nil:
		rangeRule.upper = &bound[T]{value: *lte, inclusive: true}
	}
	switch {
	case gt != nil:
		rangeRule.lower = &bound[T]{value: *gt}
	case gte != nil:
		rangeRule.lower = &bound[T]{value: *gte, inclusive: true}
	}
	if rangeRule.lower == nil && rangeRule.upper == nil {
		return nil
	}
	return rangeRule
}

// check returns a violation if value is outside of the range.
//
// With both bounds set and lower < upper, value must be inside the range. With
// upper <= lower, the bounds are swapped and value must be outside of the
// exclusion zone between them instead. Each comparison is strict or inclusive
// exactly per the operator of its bound.
func (r *rangeRule[T]) check(value T) *Violation {
	switch {
	case r.lower == nil:
		if r.belowUpper(value) {
			return nil
		}
		return r.upperViolation()
	case r.upper == nil:
		if r.aboveLower(value) {
			return nil
		}
		return r.lowerViolation()
	case r.isInsideRange():
		if !r.aboveLower(value) {
			return r.insideViolation(r.lowerCode())
		}
		if !r.belowUpper(value) {
			return r.insideViolation(r.upperCode())
		}
		return nil
	default:
		if r.belowUpper(value) || r.aboveLower(value) {
			return nil
		}
		return newViolation(
			CodeNotInRange,
			r.ruleKind+"."+r.lowerCode().String()+"_"+r.upperCode().String()+"_exclusive",
			"value must be %s %s or %s %s",
			upperPhrase(r.upper.inclusive),
			r.ordering.format(r.upper.value),
			lowerPhrase(r.lower.inclusive),
			r.ordering.format(r.lower.value),
		)
	}
}

// isInsideRange returns true if the bounds describe a non-empty range, that is
// lower < upper, or lower == upper with both bounds inclusive.
func (r *rangeRule[T]) isInsideRange() bool {
	if r.lower.inclusive && r.upper.inclusive {
		return r.ordering.lessOrEqual(r.lower.value, r.upper.value)
	}
	return r.ordering.less(r.lower.value, r.upper.value)
}

func (r *rangeRule[T]) belowUpper(value T) bool {
	if r.upper.inclusive {
		return r.ordering.lessOrEqual(value, r.upper.value)
	}
	return r.ordering.less(value, r.upper.value)
}

func (r *rangeRule[T]) aboveLower(value T) bool {
	if r.lower.inclusive {
		return r.ordering.lessOrEqual(r.lower.value, value)
	}
	return r.ordering.less(r.lower.value, value)
}

func (r *rangeRule[T]) lowerCode() Code {
	if r.lower.inclusive {
		return CodeGte
	}
	return CodeGt
}

func (r *rangeRule[T]) upperCode() Code {
	if r.upper.inclusive {
		return CodeLte
	}
	return CodeLt
}

func (r *rangeRule[T]) upperViolation() *Violation {
	code := r.upperCode()
	return newViolation(
		code,
		r.ruleKind+"."+code.String(),
		"value must be %s %s",
		upperPhrase(r.upper.inclusive),
		r.ordering.format(r.upper.value),
	)
}

func (r *rangeRule[T]) lowerViolation() *Violation {
	code := r.lowerCode()
	return newViolation(
		code,
		r.ruleKind+"."+code.String(),
		"value must be %s %s",
		lowerPhrase(r.lower.inclusive),
		r.ordering.format(r.lower.value),
	)
}

func (r *rangeRule[T]) insideViolation(code Code) *Violation {
	return newViolation(
		code,
		r.ruleKind+"."+r.lowerCode().String()+"_"+r.upperCode().String(),
		"value must be %s %s and %s %s",
		lowerPhrase(r.lower.inclusive),
		r.ordering.format(r.lower.value),
		upperPhrase(r.upper.inclusive),
		r.ordering.format(r.upper.value),
	)
}

func lowerPhrase(inclusive bool) string {
	if inclusive {
		return "greater than or equal to"
	}
	return "greater than"
}

func upperPhrase(inclusive bool) string {
	if inclusive {
		return "less than or equal to"
	}
	return "less than"
}
