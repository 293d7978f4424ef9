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
	"strings"

	"github.com/bufbuild/protoguard/private/bufpkg/bufvalidate/bufvalidaterule"
	"github.com/bufbuild/protoguard/private/pkg/slicesext"
	"github.com/bufbuild/protoguard/private/pkg/stringutil"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// newOneofCheck returns the check for a oneof marked required.
//
// Exactly one field of the oneof must be populated. More than one populated
// field cannot be represented by generated messages, but is checked anyway.
func newOneofCheck(oneofDescriptor protoreflect.OneofDescriptor) messageCheck {
	fields := oneofDescriptor.Fields()
	name := string(oneofDescriptor.Name())
	return func(message protoreflect.Message) *Violation {
		var populated int
		for i := 0; i < fields.Len(); i++ {
			if message.Has(fields.Get(i)) {
				populated++
			}
		}
		switch {
		case populated == 0:
			violation := newViolation(CodeRequired, "required", "exactly one field is required in oneof")
			violation.FieldPath = name
			return violation
		case populated > 1:
			violation := newViolation(CodeOneofMultiple, "oneof", "only one field can be set in oneof")
			violation.FieldPath = name
			return violation
		default:
			return nil
		}
	}
}

// newMessageOneofCheck returns the check for a message-level oneof rule over an
// arbitrary set of fields.
func newMessageOneofCheck(
	messageDescriptor protoreflect.MessageDescriptor,
	rule *bufvalidaterule.MessageOneofRule,
) (messageCheck, error) {
	if len(rule.Fields) == 0 {
		return nil, errors.New("oneof rule must name at least one field")
	}
	if duplicates := slicesext.Duplicates(rule.Fields); len(duplicates) > 0 {
		return nil, fmt.Errorf("oneof rule has duplicate fields %s", stringutil.SliceToHumanString(duplicates))
	}
	fieldDescriptors := make([]protoreflect.FieldDescriptor, len(rule.Fields))
	for i, name := range rule.Fields {
		fieldDescriptor := messageDescriptor.Fields().ByName(protoreflect.Name(name))
		if fieldDescriptor == nil {
			return nil, fmt.Errorf("oneof rule names unknown field %q", name)
		}
		fieldDescriptors[i] = fieldDescriptor
	}
	fieldNames := strings.Join(rule.Fields, ", ")
	required := rule.Required
	return func(message protoreflect.Message) *Violation {
		populated := slicesext.Count(fieldDescriptors, message.Has)
		switch {
		case populated > 1:
			return newViolation(CodeOneofMultiple, "message.oneof", "only one of %s can be set", fieldNames)
		case populated == 0 && required:
			return newViolation(CodeRequired, "message.oneof", "one of %s must be set", fieldNames)
		default:
			return nil
		}
	}, nil
}
