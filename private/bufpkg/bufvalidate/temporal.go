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
	"slices"
	"time"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/bufbuild/protoguard/private/pkg/slicesext"
	"github.com/bufbuild/protoguard/private/pkg/stringutil"
)

var (
	durationOrdering = ordering[bufvalidaterule.Duration]{
		less: func(a bufvalidaterule.Duration, b bufvalidaterule.Duration) bool {
			return a.Compare(b) < 0
		},
		equal: func(a bufvalidaterule.Duration, b bufvalidaterule.Duration) bool {
			return a.Compare(b) == 0
		},
		format: bufvalidaterule.Duration.String,
	}
	timestampOrdering = ordering[time.Time]{
		less:   time.Time.Before,
		equal:  time.Time.Equal,
		format: formatTimestamp,
	}
)

type durationEvaluator struct {
	constant  *bufvalidaterule.Duration
	rangeRule *rangeRule[bufvalidaterule.Duration]
	in        []bufvalidaterule.Duration
	notIn     []bufvalidaterule.Duration
}

func newDurationEvaluator(rules *bufvalidaterule.DurationRules) *durationEvaluator {
	return &durationEvaluator{
		constant: rules.Const,
		rangeRule: newRangeRule(
			durationOrdering,
			"duration",
			rules.Lt,
			rules.Lte,
			rules.Gt,
			rules.Gte,
		),
		in:    rules.In,
		notIn: rules.NotIn,
	}
}

func (e *durationEvaluator) evaluate(value bufvalidaterule.Duration) (Outcome, *Violation) {
	if e.constant != nil && value.Compare(*e.constant) != 0 {
		return violationOutcome(CodeConst, "duration.const", "value must equal %s", e.constant.String())
	}
	if e.rangeRule != nil {
		if violation := e.rangeRule.check(value); violation != nil {
			return OutcomeViolation, violation
		}
	}
	if len(e.in) > 0 && !containsDuration(e.in, value) {
		return violationOutcome(CodeIn, "duration.in", "value must be in list %s", formatDurations(e.in))
	}
	if containsDuration(e.notIn, value) {
		return violationOutcome(CodeNotIn, "duration.not_in", "value must not be in list %s", formatDurations(e.notIn))
	}
	return OutcomeContinue, nil
}

type timestampEvaluator struct {
	constant  *time.Time
	rangeRule *rangeRule[time.Time]
	ltNow     bool
	gtNow     bool
	within    *time.Duration
	now       func() time.Time
}

func newTimestampEvaluator(rules *bufvalidaterule.TimestampRules, now func() time.Time) (*timestampEvaluator, error) {
	if rules.LtNow && rules.GtNow {
		return nil, errors.New("lt_now and gt_now cannot both be set")
	}
	if rules.Within != nil && *rules.Within <= 0 {
		return nil, errors.New("within must be positive")
	}
	return &timestampEvaluator{
		constant: rules.Const,
		rangeRule: newRangeRule(
			timestampOrdering,
			"timestamp",
			rules.Lt,
			rules.Lte,
			rules.Gt,
			rules.Gte,
		),
		ltNow:  rules.LtNow,
		gtNow:  rules.GtNow,
		within: rules.Within,
		now:    now,
	}, nil
}

func (e *timestampEvaluator) evaluate(value time.Time) (Outcome, *Violation) {
	if e.constant != nil && !value.Equal(*e.constant) {
		return violationOutcome(CodeConst, "timestamp.const", "value must equal %s", formatTimestamp(*e.constant))
	}
	if e.rangeRule != nil {
		if violation := e.rangeRule.check(value); violation != nil {
			return OutcomeViolation, violation
		}
		return OutcomeContinue, nil
	}
	if !e.ltNow && !e.gtNow && e.within == nil {
		return OutcomeContinue, nil
	}
	// Sampled per evaluation, never at construction.
	now := e.now()
	switch {
	case e.ltNow:
		if !value.Before(now) {
			return violationOutcome(CodeLtNow, "timestamp.lt_now", "value must be less than now")
		}
		if e.within != nil && value.Before(now.Add(-*e.within)) {
			return e.withinViolation("timestamp.lt_now_within")
		}
	case e.gtNow:
		if !value.After(now) {
			return violationOutcome(CodeGtNow, "timestamp.gt_now", "value must be greater than now")
		}
		if e.within != nil && value.After(now.Add(*e.within)) {
			return e.withinViolation("timestamp.gt_now_within")
		}
	default:
		if value.Before(now.Add(-*e.within)) || value.After(now.Add(*e.within)) {
			return e.withinViolation("timestamp.within")
		}
	}
	return OutcomeContinue, nil
}

func (e *timestampEvaluator) withinViolation(ruleID string) (Outcome, *Violation) {
	return violationOutcome(CodeWithin, ruleID, "value must be within %s of now", e.within.String())
}

func formatTimestamp(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func containsDuration(values []bufvalidaterule.Duration, value bufvalidaterule.Duration) bool {
	return slices.ContainsFunc(values, func(element bufvalidaterule.Duration) bool {
		return element.Compare(value) == 0
	})
}

func formatDurations(values []bufvalidaterule.Duration) string {
	return stringutil.SliceToString(slicesext.Map(values, bufvalidaterule.Duration.String))
}
