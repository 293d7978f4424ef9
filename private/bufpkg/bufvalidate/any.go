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
	"github.com/bufbuild/protoguard/private/pkg/slicesext"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// anyEvaluator checks the type URL of a google.protobuf.Any. The payload is
// never inspected.
type anyEvaluator struct {
	in        map[string]struct{}
	notIn     map[string]struct{}
	inList    []string
	notInList []string
}

func newAnyEvaluator(rules *bufvalidaterule.AnyRules) *anyEvaluator {
	return &anyEvaluator{
		in:        slicesext.ToStructMap(rules.In, identity[string]),
		notIn:     slicesext.ToStructMap(rules.NotIn, identity[string]),
		inList:    rules.In,
		notInList: rules.NotIn,
	}
}

func (e *anyEvaluator) evaluate(typeURL string) (Outcome, *Violation) {
	if len(e.in) > 0 {
		if _, ok := e.in[typeURL]; !ok {
			return violationOutcome(CodeIn, "any.in", "type URL must be in the allow list %s", formatStrings(e.inList))
		}
	}
	if _, ok := e.notIn[typeURL]; ok {
		return violationOutcome(CodeNotIn, "any.not_in", "type URL must not be in the block list %s", formatStrings(e.notInList))
	}
	return OutcomeContinue, nil
}

func anyTypeURL(message protoreflect.Message) string {
	typeURLField := message.Descriptor().Fields().ByName("type_url")
	if typeURLField == nil {
		return ""
	}
	return message.Get(typeURLField).String()
}
