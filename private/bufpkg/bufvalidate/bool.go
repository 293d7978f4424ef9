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
)

type boolEvaluator struct {
	constant *bool
}

func newBoolEvaluator(rules *bufvalidaterule.BoolRules) *boolEvaluator {
	return &boolEvaluator{
		constant: rules.Const,
	}
}

func (e *boolEvaluator) evaluate(value bool) (Outcome, *Violation) {
	if e.constant != nil && value != *e.constant {
		return OutcomeViolation, newViolation(CodeConst, "bool.const", "value must equal %t", *e.constant)
	}
	return OutcomeContinue, nil
}
